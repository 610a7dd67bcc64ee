package config

import (
	"time"

	"github.com/maxviazov/rest-prefix-service/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App      AppConfig           `mapstructure:"app"`
	Logger   logger.LoggerConfig `mapstructure:"logger"`
	Storage  StorageConfig       `mapstructure:"storage"`
	Postgres PostgresConfig      `mapstructure:"postgres"`
	SQLite   SQLiteConfig        `mapstructure:"sqlite"`
	Cache    CacheConfig         `mapstructure:"cache"`
	Prefix   PrefixConfig        `mapstructure:"prefix"`
	Admin    AdminConfig         `mapstructure:"admin"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	// HomeURL is the public site root used to render API root previews.
	HomeURL string `mapstructure:"home_url"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	// TTL bounds how long a resolved prefix is served from memory. It is the longest a
	// node keeps routing a value another process or node has replaced or removed.
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type PrefixConfig struct {
	// HostDefault is the prefix the host serves before any override is stored. It seeds
	// the setting on activate.
	HostDefault string `mapstructure:"host_default"`
}

type AdminConfig struct {
	// Token guards the admin settings endpoints when non-empty.
	Token string `mapstructure:"token"`
}
