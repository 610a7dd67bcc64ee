package repository

import (
	"context"

	"github.com/maxviazov/rest-prefix-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SettingsRepository is the durable key/value Settings Store.
// Writes to a single name are atomic; concurrent writers resolve last-writer-wins.
type SettingsRepository interface {
	// Get returns ErrNotFound when name has never been stored or was deleted.
	Get(ctx context.Context, name string) (model.Setting, error)
	// Put creates or replaces the value stored under name.
	Put(ctx context.Context, name, value string) (model.Setting, error)
	// Delete removes name; deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error
}

// SettingsStore is a SettingsRepository that can also report readiness and be closed.
type SettingsStore interface {
	SettingsRepository
	Pinger
	Close() error
}
