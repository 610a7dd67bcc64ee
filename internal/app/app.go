// Package app wires configuration, storage, cache, the prefix store and the HTTP engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/rest-prefix-service/internal/cache"
	"github.com/maxviazov/rest-prefix-service/internal/config"
	"github.com/maxviazov/rest-prefix-service/internal/handler"
	"github.com/maxviazov/rest-prefix-service/internal/prefix"
	"github.com/maxviazov/rest-prefix-service/internal/repository"
	"github.com/maxviazov/rest-prefix-service/internal/repository/postgres"
	"github.com/maxviazov/rest-prefix-service/internal/repository/sqlite"
	"github.com/maxviazov/rest-prefix-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App holds every long-lived dependency of the service.
type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    repository.SettingsStore
	Prefixes *service.PrefixStore
	closers  []func()
}

// New opens the configured Settings Store, applies migrations and builds the prefix store.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	a := &App{cfg: cfg, log: logger.With().Str("module", "app").Logger()}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	c := cache.NewTTL[string, prefix.Prefix](cfg.Cache.TTL)
	a.Prefixes = service.NewPrefixStore(
		a.store,
		c,
		service.StaticHostPrefix(cfg.Prefix.HostDefault),
		cfg.App.HomeURL,
		logger,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, a.cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.log.Info().Str("path", a.cfg.SQLite.Path).Msg("using sqlite settings store")
	case config.DriverPostgres, "":
		pg, err := repository.New(ctx, a.cfg, &a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		a.store = postgres.NewSettingsRepository(pg.Pool())
	default:
		return fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
	return nil
}

// Engine builds the host gin engine: health, admin form and prefix-routed API.
func (a *App) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(a.log))
	handler.Register(r, a.store, a.Prefixes, handler.Options{
		HomeURL:    a.cfg.App.HomeURL,
		AdminToken: a.cfg.Admin.Token,
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Admin.Token == "" {
		a.log.Warn().Msg("admin.token is empty; settings endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.App.Port),
		Handler:           a.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("prefix", string(a.Prefixes.Resolve(ctx))).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.log.Info().Msg("http server stopped")
	return nil
}

// Close releases storage in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
