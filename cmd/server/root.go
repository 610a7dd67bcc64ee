package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxviazov/rest-prefix-service/internal/app"
	"github.com/maxviazov/rest-prefix-service/internal/config"
	"github.com/maxviazov/rest-prefix-service/internal/handler"
	"github.com/maxviazov/rest-prefix-service/internal/logger"
	"github.com/maxviazov/rest-prefix-service/internal/model"
)

const serverTimeout = 10 * time.Second

var (
	configPath string
	cfg        *config.Config
	appLogger  zerolog.Logger

	// serverURL, when set, sends lifecycle commands to a running server so it drops its
	// cached prefix right away instead of after cache.ttl.
	serverURL  string
	adminToken string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rest-prefix",
	Short: "Serve an API under an admin-configurable URL prefix",
	Long: `Keeps one override of the API URL prefix in a settings store, caches it and routes
every API request under the resolved prefix. Use "activate" once when enabling the
override and "uninstall" when removing it for good.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config loading failed: %w", err)
		}
		appLogger, err = logger.New(&cfg.Logger)
		if err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
		if cfg.Logger.Env == "prod" || cfg.Logger.Env == "staging" {
			gin.SetMode(gin.ReleaseMode)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		appLogger.Info().Msg("🚀 Service started")
		return a.Serve(ctx)
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Seed the prefix override with the host's current prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL != "" {
			st, err := callServer(cmd.Context(), http.MethodPost, handler.ActivatePath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prefix override active: %s\n", st.Effective)
			return nil
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Prefixes.Activate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prefix override active: %s\n", a.Prefixes.Resolve(ctx))
			printConvergence(cmd.OutOrStdout())
			return nil
		})
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Delete the stored prefix override and its cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL != "" {
			if _, err := callServer(cmd.Context(), http.MethodDelete, ""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "prefix override removed; routing falls back to the default")
			return nil
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Prefixes.Uninstall(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "prefix override removed; routing falls back to the default")
			printConvergence(cmd.OutOrStdout())
			return nil
		})
	},
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printConvergence(w io.Writer) {
	fmt.Fprintf(w, "running servers pick this up within %s (cache.ttl); pass --server to apply it now\n", cfg.Cache.TTL)
}

// callServer runs a lifecycle operation through the admin API of a running server.
func callServer(ctx context.Context, method, path string) (model.PrefixSettings, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, serverTimeout)
	defer cancel()

	url := strings.TrimRight(serverURL, "/") + handler.AdminPrefix + handler.PrefixSettingsPath + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return model.PrefixSettings{}, fmt.Errorf("build request: %w", err)
	}
	token := adminToken
	if token == "" {
		token = cfg.Admin.Token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return model.PrefixSettings{}, fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.PrefixSettings{}, fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	var st model.PrefixSettings
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return model.PrefixSettings{}, fmt.Errorf("decode server response: %w", err)
	}
	return st, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	for _, c := range []*cobra.Command{activateCmd, uninstallCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "base URL of a running server to apply the change through")
		c.Flags().StringVar(&adminToken, "token", "", "admin token for --server (defaults to admin.token)")
	}
	rootCmd.AddCommand(serveCmd, activateCmd, uninstallCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}
