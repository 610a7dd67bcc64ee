package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/rest-prefix-service/internal/config"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestConfigLoad_FromYAMLAndEnv(t *testing.T) {
	yaml := `
app:
  name: rest-prefix-service
  version: 0.1.0
  env: test
  port: 18080
  home_url: https://example.org

logger:
  level: info
  format: json
  output_target: stdout
  time_format: rfc3339

storage:
  driver: postgres

postgres:
  host: 127.0.0.1
  port: 5432
  sslmode: disable
  max_conns: 5

cache:
  ttl: 30s
`
	path := writeTempConfig(t, yaml)

	t.Setenv("APP_POSTGRES_USER", "testuser")
	t.Setenv("APP_POSTGRES_PASSWORD", "testpass")
	t.Setenv("APP_POSTGRES_DB", "testdb")
	t.Setenv("APP_ADMIN_TOKEN", "tok")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.App.Port)
	assert.Equal(t, "https://example.org", cfg.App.HomeURL)
	assert.Equal(t, "testuser", cfg.Postgres.User)
	assert.Equal(t, "testpass", cfg.Postgres.Password)
	assert.Equal(t, "testdb", cfg.Postgres.DBName)
	assert.Equal(t, "127.0.0.1", cfg.Postgres.Host)
	assert.Equal(t, int32(5), cfg.Postgres.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "tok", cfg.Admin.Token)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "stdout", cfg.Logger.OutputTarget)
}

func TestConfigLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, "storage:\n  driver: sqlite\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "wp-json", cfg.Prefix.HostDefault)
	assert.Equal(t, "data/settings.db", cfg.SQLite.Path)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestConfigLoad_MissingRequiredEnvFails(t *testing.T) {
	yaml := `
storage:
  driver: postgres
postgres:
  host: localhost
`
	path := writeTempConfig(t, yaml)

	t.Setenv("APP_POSTGRES_USER", "")
	t.Setenv("APP_POSTGRES_PASSWORD", "")
	t.Setenv("APP_POSTGRES_DB", "")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestConfigLoad_InvalidDriver(t *testing.T) {
	path := writeTempConfig(t, "storage:\n  driver: redis\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestConfigLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigLoad_UnboundedCacheTTLRejected(t *testing.T) {
	for _, ttl := range []string{"0s", "-1s"} {
		t.Run(ttl, func(t *testing.T) {
			path := writeTempConfig(t, "storage:\n  driver: sqlite\ncache:\n  ttl: "+ttl+"\n")
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}
