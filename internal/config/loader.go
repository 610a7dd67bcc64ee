package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/maxviazov/rest-prefix-service/internal/prefix"
)

// ErrMissingCredentials is returned when the postgres driver is selected without user,
// password or database name.
var ErrMissingCredentials = errors.New("postgres user, password and db are required")

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only applies to keys viper already knows about; secrets usually
	// live in the environment only, so bind them explicitly.
	for _, key := range []string{"postgres.user", "postgres.password", "postgres.db", "admin.token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rest-prefix-service")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.home_url", "http://localhost:8080")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)
	v.SetDefault("sqlite.path", "data/settings.db")
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("prefix.host_default", string(prefix.Default))
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c.App); err != nil {
		return fmt.Errorf("app config validation error: %w", err)
	}
	if err := validator.New().Struct(c.Storage); err != nil {
		return fmt.Errorf("storage config validation error: %w", err)
	}
	if err := validator.New().Struct(c.Cache); err != nil {
		return fmt.Errorf("cache config validation error: %w", err)
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
			return ErrMissingCredentials
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return errors.New("sqlite.path is required")
		}
	}
	return nil
}
