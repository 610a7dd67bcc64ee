package contract

import (
	"context"
	"sync"
	"testing"

	"github.com/maxviazov/rest-prefix-service/internal/repository"
)

// SettingsFactory builds a fresh, empty store for one subtest.
type SettingsFactory func(t *testing.T) (repository.SettingsStore, func())

// RunSettingsRepositoryContract checks the behaviour every Settings Store must share.
func RunSettingsRepositoryContract(t *testing.T, makeRepo SettingsFactory) {
	t.Helper()

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.Get(context.Background(), "missing")
		if err != repository.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put_and_get", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		put, err := repo.Put(ctx, "api_url_prefix_override", "my-api")
		if err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if put.Name != "api_url_prefix_override" || put.Value != "my-api" {
			t.Fatalf("unexpected put result: %+v", put)
		}
		got, err := repo.Get(ctx, "api_url_prefix_override")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Value != "my-api" || got.UpdatedAt.IsZero() {
			t.Fatalf("mismatch: %+v", got)
		}
	})

	t.Run("put_overwrites", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for _, v := range []string{"one", "two", "two"} {
			if _, err := repo.Put(ctx, "k", v); err != nil {
				t.Fatalf("put %q: %v", v, err)
			}
		}
		got, err := repo.Get(ctx, "k")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Value != "two" {
			t.Fatalf("expected last write to win, got %q", got.Value)
		}
	})

	t.Run("empty_value_round_trips", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := repo.Put(ctx, "k", ""); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := repo.Get(ctx, "k")
		if err != nil || got.Value != "" {
			t.Fatalf("expected stored empty value, got %+v err=%v", got, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := repo.Put(ctx, "k", "v"); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.Get(ctx, "k"); err != repository.ErrNotFound {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Fatalf("deleting an absent key must succeed, got %v", err)
		}
	})

	t.Run("concurrent_puts", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Put(ctx, "k", "same"); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent put: %v", err)
		}
		got, err := repo.Get(ctx, "k")
		if err != nil || got.Value != "same" {
			t.Fatalf("unexpected state: %+v err=%v", got, err)
		}
	})

	t.Run("ping_ok", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}
