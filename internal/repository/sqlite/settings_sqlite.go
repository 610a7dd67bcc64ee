// Package sqlite is the embedded Settings Store for single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/repository"
	"github.com/maxviazov/rest-prefix-service/migrations"
)

const timeFormat = time.RFC3339Nano

// Store is a SQLite-backed repository.SettingsStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, name string) (model.Setting, error) {
	var (
		out       model.Setting
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, value, updated_at FROM settings WHERE name = ?`, name,
	).Scan(&out.Name, &out.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Setting{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Setting{}, fmt.Errorf("get setting %s: %w", name, mapError(err))
	}
	out.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return out, nil
}

func (s *Store) Put(ctx context.Context, name, value string) (model.Setting, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, now.Format(timeFormat),
	)
	if err != nil {
		return model.Setting{}, fmt.Errorf("put setting %s: %w", name, mapError(err))
	}
	return model.Setting{Name: name, Value: value, UpdatedAt: now}, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete setting %s: %w", name, mapError(err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// errDBClosed matches database/sql's unexported error for calls after Close.
const errDBClosed = "sql: database is closed"

// mapError marks failures of the database itself, as opposed to the statement, as
// repository.ErrUnavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || err.Error() == errDBClosed || isBusy(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

var _ repository.SettingsStore = (*Store)(nil)
