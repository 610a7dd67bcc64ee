package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/rest-prefix-service/internal/cache"
	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/prefix"
	"github.com/maxviazov/rest-prefix-service/internal/repository"
)

// SaveNotice is shown to the operator after a successful save.
const SaveNotice = "New REST API URL prefix has been saved. Other nodes pick it up within the cache TTL; flush their prefix cache (DELETE /admin/settings/api-prefix/cache) to apply it now."

// HostPrefixSource reports the prefix the host currently serves, before any override.
type HostPrefixSource func(ctx context.Context) string

// StaticHostPrefix is a HostPrefixSource that always reports p.
func StaticHostPrefix(p string) HostPrefixSource {
	return func(context.Context) string { return p }
}

// PrefixStore owns validation, persistence, caching and resolution of the prefix.
type PrefixStore struct {
	repo    repository.SettingsRepository
	cache   cache.Cache[string, prefix.Prefix]
	host    HostPrefixSource
	homeURL string
	log     zerolog.Logger

	// mu guards gen. gen is bumped on every Save and Flush; a Resolve that read the
	// store under an older generation must not overwrite the newer cache entry.
	mu  sync.Mutex
	gen uint64
}

// NewPrefixStore wires the store. host may be nil, in which case activation seeds
// prefix.Default.
func NewPrefixStore(
	repo repository.SettingsRepository,
	c cache.Cache[string, prefix.Prefix],
	host HostPrefixSource,
	homeURL string,
	logger zerolog.Logger,
) *PrefixStore {
	if host == nil {
		host = StaticHostPrefix(string(prefix.Default))
	}
	l := logger.With().Str("module", "service").Str("component", "prefix").Logger()
	return &PrefixStore{repo: repo, cache: c, host: host, homeURL: homeURL, log: l}
}

// Resolve is on the request path: a cache hit costs one map lookup, a miss costs one
// Settings Store read. Store failures fall back to the default; routing never fails
// because an optional override is unreadable.
func (s *PrefixStore) Resolve(ctx context.Context) prefix.Prefix {
	if p, ok := s.cache.Get(prefix.CacheKey); ok {
		return p
	}
	gen := s.generation()

	setting, err := s.repo.Get(ctx, prefix.SettingName)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			// not cached: a transient outage must not pin the default
			s.log.Warn().Err(err).Msg("settings store read failed; serving default prefix")
			return prefix.Default
		}
		setting.Value = ""
	}

	resolved := s.effective(setting.Value)
	s.mu.Lock()
	if s.gen == gen {
		s.cache.Set(prefix.CacheKey, resolved)
	}
	s.mu.Unlock()
	return resolved
}

func (s *PrefixStore) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// effective maps a stored value onto the prefix routing should use.
func (s *PrefixStore) effective(stored string) prefix.Prefix {
	p := prefix.Prefix(stored)
	if !prefix.Valid(stored) {
		s.log.Warn().Str("stored", stored).Msg("stored prefix outside character class; normalizing")
		p = prefix.Normalize(stored)
	}
	if p.IsDefault() {
		return prefix.Default
	}
	return p
}

// Save trims and normalizes raw, persists it and replaces the cached prefix. Input that
// normalizes to nothing is rejected with ErrEmptyPrefix and nothing is written.
func (s *PrefixStore) Save(ctx context.Context, raw string) (prefix.Prefix, error) {
	start := time.Now()
	p := prefix.Normalize(strings.TrimSpace(raw))
	if p == "" {
		s.log.Debug().Str("prefix_raw", raw).Msg("prefix validation failed")
		return "", newInvalidInput(ErrEmptyPrefix, []FieldError{{Field: "prefix", Message: "must not be empty"}})
	}

	if _, err := s.repo.Put(ctx, prefix.SettingName, string(p)); err != nil {
		s.log.Error().Err(err).Str("prefix", string(p)).Msg("save prefix failed")
		return "", fmt.Errorf("save prefix: %w", err)
	}
	s.mu.Lock()
	s.gen++
	s.cache.Set(prefix.CacheKey, s.effective(string(p)))
	s.mu.Unlock()

	s.log.Info().Dur("took", time.Since(start)).Str("prefix", string(p)).Msg("prefix saved")
	return p, nil
}

// Stored returns the raw persisted override, bypassing the cache. It is "" when unset.
func (s *PrefixStore) Stored(ctx context.Context) (prefix.Prefix, error) {
	setting, err := s.repo.Get(ctx, prefix.SettingName)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read stored prefix: %w", err)
	}
	return prefix.Prefix(setting.Value), nil
}

// Settings reports the stored override next to the prefix routing currently uses.
func (s *PrefixStore) Settings(ctx context.Context) (model.PrefixSettings, error) {
	stored, err := s.Stored(ctx)
	if err != nil {
		return model.PrefixSettings{}, err
	}
	effective := s.Resolve(ctx)
	return model.PrefixSettings{
		Stored:    string(stored),
		Effective: string(effective),
		Default:   string(prefix.Default),
		APIRoot:   prefix.APIRoot(s.homeURL, effective),
	}, nil
}

// Preview shows what Save would store for raw and the API root it would produce.
func (s *PrefixStore) Preview(raw string) model.PrefixPreview {
	p := prefix.Normalize(strings.TrimSpace(raw))
	out := model.PrefixPreview{Input: raw, Normalized: string(p), Empty: p == ""}
	if out.Empty {
		out.Message = "cannot be empty! Just a reminder, the default is " + string(prefix.Default)
		out.APIRoot = prefix.APIRoot(s.homeURL, prefix.Default)
		return out
	}
	out.APIRoot = prefix.APIRoot(s.homeURL, p)
	out.Message = "would be " + out.APIRoot
	return out
}

// Activate stores whatever the host serves right now, so enabling the override does
// not move the API until an admin edits it.
func (s *PrefixStore) Activate(ctx context.Context) error {
	current := prefix.Normalize(s.host(ctx)).OrDefault()
	if _, err := s.repo.Put(ctx, prefix.SettingName, string(current)); err != nil {
		return fmt.Errorf("seed prefix: %w", err)
	}
	s.Flush()
	s.log.Info().Str("prefix", string(current)).Msg("prefix override activated")
	return nil
}

// Uninstall drops the setting; the cache entry goes even when the delete fails so this
// node stops serving the override.
func (s *PrefixStore) Uninstall(ctx context.Context) error {
	err := s.repo.Delete(ctx, prefix.SettingName)
	s.Flush()
	if err != nil {
		return fmt.Errorf("delete prefix setting: %w", err)
	}
	s.log.Info().Msg("prefix override removed")
	return nil
}

// Flush drops the cached prefix so the next Resolve reads the Settings Store. Admins
// call it after the setting was changed by another process.
func (s *PrefixStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Invalidate(prefix.CacheKey)
}

var _ PrefixService = (*PrefixStore)(nil)
