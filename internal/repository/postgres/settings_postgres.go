package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/repository"
)

type settingsRepository struct{ pool *pgxpool.Pool }

// NewSettingsRepository stores settings in the "settings" table of pool's database.
// Closing the pool stays with whoever opened it.
func NewSettingsRepository(pool *pgxpool.Pool) repository.SettingsStore {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, name string) (model.Setting, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Setting{}, err
	}
	row := r.pool.QueryRow(ctx,
		`SELECT name, value, updated_at FROM settings WHERE name = $1`, name,
	)
	var out model.Setting
	if err := row.Scan(&out.Name, &out.Value, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Setting{}, repository.ErrNotFound
		}
		return model.Setting{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *settingsRepository) Put(ctx context.Context, name, value string) (model.Setting, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Setting{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO settings (name, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		 RETURNING name, value, updated_at`,
		name, value,
	)
	var out model.Setting
	if err := row.Scan(&out.Name, &out.Value, &out.UpdatedAt); err != nil {
		return model.Setting{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *settingsRepository) Delete(ctx context.Context, name string) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE name = $1`, name); err != nil {
		return repository.MapPgError(err)
	}
	return nil
}

func (r *settingsRepository) Ping(ctx context.Context) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	return repository.MapPgError(r.pool.Ping(ctx))
}

// Close is a no-op; the pool belongs to repository.Repository.
func (r *settingsRepository) Close() error { return nil }

// helper to assert we didn't accidentally nil the pool
func ensurePool(pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("pgx pool is nil")
	}
	return nil
}

var _ repository.SettingsStore = (*settingsRepository)(nil)
