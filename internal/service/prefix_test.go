package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/rest-prefix-service/internal/cache"
	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/prefix"
	"github.com/maxviazov/rest-prefix-service/internal/repository"
	"github.com/maxviazov/rest-prefix-service/internal/service"
)

// fakeSettingsRepo is an in-memory Settings Store that counts calls and can fail on demand.
type fakeSettingsRepo struct {
	mu        sync.Mutex
	items     map[string]string
	gets      int
	puts      int
	getErr    error
	putErr    error
	deleteErr error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{items: map[string]string{}}
}

func (f *fakeSettingsRepo) Get(_ context.Context, name string) (model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return model.Setting{}, f.getErr
	}
	v, ok := f.items[name]
	if !ok {
		return model.Setting{}, repository.ErrNotFound
	}
	return model.Setting{Name: name, Value: v}, nil
}

func (f *fakeSettingsRepo) Put(_ context.Context, name, value string) (model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return model.Setting{}, f.putErr
	}
	f.items[name] = value
	return model.Setting{Name: name, Value: value}, nil
}

func (f *fakeSettingsRepo) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.items, name)
	return nil
}

func (f *fakeSettingsRepo) stored() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[prefix.SettingName]
	return v, ok
}

func (f *fakeSettingsRepo) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

var _ repository.SettingsRepository = (*fakeSettingsRepo)(nil)

func newStore(repo repository.SettingsRepository, host string) (*service.PrefixStore, *cache.TTL[string, prefix.Prefix]) {
	c := cache.NewTTL[string, prefix.Prefix](0)
	return service.NewPrefixStore(repo, c, service.StaticHostPrefix(host), "https://example.org", zerolog.New(io.Discard)), c
}

func TestPrefixStore_LifecycleExample(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, _ := newStore(repo, "wp-json")

	require.NoError(t, svc.Activate(ctx))
	assert.Equal(t, prefix.Prefix("wp-json"), svc.Resolve(ctx))

	saved, err := svc.Save(ctx, "My API!! v2")
	require.NoError(t, err)
	assert.Equal(t, prefix.Prefix("my-api-v2"), saved)
	assert.Equal(t, prefix.Prefix("my-api-v2"), svc.Resolve(ctx))

	saved, err = svc.Save(ctx, "wp-json")
	require.NoError(t, err)
	assert.Equal(t, prefix.Default, saved)
	stored, _ := repo.stored()
	assert.Equal(t, "wp-json", stored, "explicit default is stored literally")
	assert.Equal(t, prefix.Default, svc.Resolve(ctx))
}

func TestPrefixStore_SaveThenResolve(t *testing.T) {
	for _, p := range []prefix.Prefix{"api", "my-api_2", "x", "v1-rest"} {
		t.Run(string(p), func(t *testing.T) {
			svc, _ := newStore(newFakeSettingsRepo(), "wp-json")
			saved, err := svc.Save(context.Background(), string(p))
			require.NoError(t, err)
			assert.Equal(t, p, saved)
			assert.Equal(t, p, svc.Resolve(context.Background()))
		})
	}
}

func TestPrefixStore_SaveEmptyRejected(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   \t"},
		{"only symbols", "!!!"},
		{"only marks", "\u0301\u0302"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newFakeSettingsRepo()
			svc, _ := newStore(repo, "wp-json")
			_, err := svc.Save(ctx, "custom")
			require.NoError(t, err)
			putsBefore := repo.puts

			_, err = svc.Save(ctx, tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
			assert.ErrorIs(t, err, service.ErrEmptyPrefix)
			fields := service.FieldErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, "prefix", fields[0].Field)

			assert.Equal(t, putsBefore, repo.puts, "no write on validation failure")
			assert.Equal(t, prefix.Prefix("custom"), svc.Resolve(ctx))
		})
	}
}

func TestPrefixStore_SaveEmptyWithNothingStoredResolvesDefault(t *testing.T) {
	svc, _ := newStore(newFakeSettingsRepo(), "wp-json")
	_, err := svc.Save(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, prefix.Default, svc.Resolve(context.Background()))
}

func TestPrefixStore_SaveIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, _ := newStore(repo, "wp-json")
	first, err := svc.Save(ctx, "Shop API")
	require.NoError(t, err)
	second, err := svc.Save(ctx, "shop-api")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	stored, _ := repo.stored()
	assert.Equal(t, "shop-api", stored)
}

func TestPrefixStore_SavePropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.putErr = repository.ErrUnavailable
	svc, _ := newStore(repo, "wp-json")

	_, err := svc.Save(ctx, "api")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.Equal(t, prefix.Default, svc.Resolve(ctx), "failed save must not reach the cache")
}

func TestPrefixStore_ResolveCachesAndReadsStoreOnce(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.items[prefix.SettingName] = "cached-api"
	svc, _ := newStore(repo, "wp-json")

	for i := 0; i < 10; i++ {
		assert.Equal(t, prefix.Prefix("cached-api"), svc.Resolve(ctx))
	}
	assert.Equal(t, 1, repo.getCount())
}

func TestPrefixStore_ResolveConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.items[prefix.SettingName] = "shared"
	svc, _ := newStore(repo, "wp-json")

	var wg sync.WaitGroup
	results := make(chan prefix.Prefix, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Resolve(ctx)
		}()
	}
	wg.Wait()
	close(results)
	for p := range results {
		assert.Equal(t, prefix.Prefix("shared"), p)
	}
}

func TestPrefixStore_ResolveDefaults(t *testing.T) {
	cases := []struct {
		name   string
		stored *string
		want   prefix.Prefix
	}{
		{"unset", nil, prefix.Default},
		{"empty", strPtr(""), prefix.Default},
		{"default literal", strPtr("wp-json"), prefix.Default},
		{"custom", strPtr("api"), "api"},
		{"hand edited row is normalized", strPtr("My API"), "my-api"},
		{"hand edited garbage falls back", strPtr("///"), prefix.Default},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeSettingsRepo()
			if tc.stored != nil {
				repo.items[prefix.SettingName] = *tc.stored
			}
			svc, _ := newStore(repo, "wp-json")
			got := svc.Resolve(context.Background())
			assert.Equal(t, tc.want, got)
			assert.True(t, prefix.Valid(string(got)))
			assert.NotEmpty(t, got)
		})
	}
}

func TestPrefixStore_ResolveStoreFailureFallsBackWithoutCaching(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.items[prefix.SettingName] = "api"
	repo.getErr = errors.New("connection refused")
	svc, c := newStore(repo, "wp-json")

	assert.Equal(t, prefix.Default, svc.Resolve(ctx))
	_, ok := c.Get(prefix.CacheKey)
	assert.False(t, ok)

	repo.mu.Lock()
	repo.getErr = nil
	repo.mu.Unlock()
	assert.Equal(t, prefix.Prefix("api"), svc.Resolve(ctx), "recovers once the store is back")
}

func TestPrefixStore_Uninstall(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, c := newStore(repo, "wp-json")
	_, err := svc.Save(ctx, "custom")
	require.NoError(t, err)
	require.Equal(t, prefix.Prefix("custom"), svc.Resolve(ctx))

	require.NoError(t, svc.Uninstall(ctx))
	_, ok := repo.stored()
	assert.False(t, ok)
	_, ok = c.Get(prefix.CacheKey)
	assert.False(t, ok)
	assert.Equal(t, prefix.Default, svc.Resolve(ctx))
}

func TestPrefixStore_UninstallInvalidatesCacheEvenOnError(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, c := newStore(repo, "wp-json")
	_, err := svc.Save(ctx, "custom")
	require.NoError(t, err)

	repo.deleteErr = repository.ErrUnavailable
	err = svc.Uninstall(ctx)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	_, ok := c.Get(prefix.CacheKey)
	assert.False(t, ok)
}

func TestPrefixStore_ActivateSeedsHostPrefix(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, c := newStore(repo, "Legacy API")
	c.Set(prefix.CacheKey, "stale")

	require.NoError(t, svc.Activate(ctx))
	stored, ok := repo.stored()
	require.True(t, ok)
	assert.Equal(t, "legacy-api", stored)
	assert.Equal(t, prefix.Prefix("legacy-api"), svc.Resolve(ctx))
}

func TestPrefixStore_ActivateEmptyHostSeedsDefault(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := service.NewPrefixStore(repo, cache.NewTTL[string, prefix.Prefix](0), nil, "", zerolog.New(io.Discard))
	require.NoError(t, svc.Activate(context.Background()))
	stored, _ := repo.stored()
	assert.Equal(t, "wp-json", stored)
}

func TestPrefixStore_StoredAndSettings(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	svc, _ := newStore(repo, "wp-json")

	stored, err := svc.Stored(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix.Prefix(""), stored)

	_, err = svc.Save(ctx, "api")
	require.NoError(t, err)

	st, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PrefixSettings{
		Stored:    "api",
		Effective: "api",
		Default:   "wp-json",
		APIRoot:   "https://example.org/api/",
	}, st)

	repo.getErr = repository.ErrUnavailable
	_, err = svc.Settings(ctx)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestPrefixStore_Preview(t *testing.T) {
	svc, _ := newStore(newFakeSettingsRepo(), "wp-json")

	p := svc.Preview("Büro API")
	assert.Equal(t, "buro-api", p.Normalized)
	assert.False(t, p.Empty)
	assert.Equal(t, "https://example.org/buro-api/", p.APIRoot)

	empty := svc.Preview("  ")
	assert.True(t, empty.Empty)
	assert.Equal(t, "", empty.Normalized)
	assert.Contains(t, empty.Message, "wp-json")
}

func strPtr(s string) *string { return &s }

// gatedRepo parks the first Get after it has read the store, until release is closed.
type gatedRepo struct {
	*fakeSettingsRepo
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *gatedRepo) Get(ctx context.Context, name string) (model.Setting, error) {
	s, err := g.fakeSettingsRepo.Get(ctx, name)
	g.once.Do(func() {
		close(g.read)
		<-g.release
	})
	return s, err
}

func TestPrefixStore_SaveDuringResolveKeepsNewValue(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.items[prefix.SettingName] = "old"
	g := &gatedRepo{fakeSettingsRepo: repo, read: make(chan struct{}), release: make(chan struct{})}
	store, _ := newStore(g, "wp-json")

	inFlight := make(chan prefix.Prefix, 1)
	go func() { inFlight <- store.Resolve(ctx) }()
	<-g.read

	_, err := store.Save(ctx, "new")
	require.NoError(t, err)
	close(g.release)

	assert.Equal(t, prefix.Prefix("old"), <-inFlight)
	for i := 0; i < 3; i++ {
		assert.Equal(t, prefix.Prefix("new"), store.Resolve(ctx))
	}
}

func TestPrefixStore_FlushDuringResolveDoesNotRepopulate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	repo.items[prefix.SettingName] = "old"
	g := &gatedRepo{fakeSettingsRepo: repo, read: make(chan struct{}), release: make(chan struct{})}
	store, c := newStore(g, "wp-json")

	inFlight := make(chan prefix.Prefix, 1)
	go func() { inFlight <- store.Resolve(ctx) }()
	<-g.read

	require.NoError(t, repo.Delete(ctx, prefix.SettingName))
	store.Flush()
	close(g.release)
	<-inFlight

	_, ok := c.Get(prefix.CacheKey)
	assert.False(t, ok)
	assert.Equal(t, prefix.Default, store.Resolve(ctx))
}

func TestPrefixStore_FlushPicksUpExternalChange(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSettingsRepo()
	store, _ := newStore(repo, "wp-json")
	_, err := store.Save(ctx, "custom")
	require.NoError(t, err)

	// another process removes the row
	require.NoError(t, repo.Delete(ctx, prefix.SettingName))
	assert.Equal(t, prefix.Prefix("custom"), store.Resolve(ctx))

	store.Flush()
	assert.Equal(t, prefix.Default, store.Resolve(ctx))
}
