// Package config loads the server configuration.
//
// Sources, lowest to highest precedence:
//
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH, else ./config.yaml)
//  3. environment variables, after an optional .env file is loaded
//
// Environment variable names are flat (DB_HOST, PORT, LOG_LEVEL); see
// envMappings for the full list.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/validation"
)

// ConfigPathEnvVar names the variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are tried in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config is the complete server configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig describes the connection and pool.
type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=postgres sqlite3"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	Name     string `koanf:"name" validate:"required"` // file path for sqlite3
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`

	MaxConns         int           `koanf:"max_conns" validate:"min=1"`
	IdleTimeout      time.Duration `koanf:"idle_timeout"`
	ConnectTimeout   time.Duration `koanf:"connect_timeout"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`

	// AutoMigrate applies pending migrations at server start.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// ServerConfig describes the HTTP listener and its middleware.
type ServerConfig struct {
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	CORSOrigins       []string      `koanf:"cors_origins" validate:"min=1"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"` // 0 disables
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig is handed to logging.Init.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           "postgres",
			Host:             "localhost",
			Port:             5432,
			Name:             "graphql_db",
			User:             "graphql_user",
			Password:         "graphql_password",
			SSLMode:          "disable",
			MaxConns:         20,
			IdleTimeout:      30 * time.Second,
			ConnectTimeout:   2 * time.Second,
			StatementTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Port:              4000,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			ShutdownTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env (if present), then defaults, config file and environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load without the .env step and with an explicit config file
// path; an empty path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Conversions
// ─────────────────────────────────────────────────────────────────────────────

// DriverOptions converts the connection settings for db.BuildDSN.
func (c DatabaseConfig) DriverOptions() db.DriverOptions {
	return db.DriverOptions{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		Database:       c.Name,
		SSLMode:        c.SSLMode,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// PoolConfig converts the pool settings; DSN and driver are filled in by
// db.OpenWithDriver.
func (c DatabaseConfig) PoolConfig(hooks ...db.Hook) db.Config {
	return db.Config{
		MaxOpenConns:    c.MaxConns,
		MaxIdleConns:    c.MaxConns,
		ConnMaxIdleTime: c.IdleTimeout,
		PingTimeout:     c.ConnectTimeout,
		DefaultTimeout:  c.StatementTimeout,
		Hooks:           hooks,
	}
}

// Addr is the listen address, e.g. ":4000".
func (c ServerConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// ─────────────────────────────────────────────────────────────────────────────
// Environment
// ─────────────────────────────────────────────────────────────────────────────

var envMappings = map[string]string{
	"db_driver":            "database.driver",
	"db_host":              "database.host",
	"db_port":              "database.port",
	"db_name":              "database.name",
	"db_user":              "database.user",
	"db_password":          "database.password",
	"db_sslmode":           "database.sslmode",
	"db_max_conns":         "database.max_conns",
	"db_idle_timeout":      "database.idle_timeout",
	"db_connect_timeout":   "database.connect_timeout",
	"db_statement_timeout": "database.statement_timeout",
	"db_auto_migrate":      "database.auto_migrate",

	"port":                "server.port",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"shutdown_timeout":    "server.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc maps a variable name to its koanf path. Unknown variables
// map to "" and are ignored by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// splitList turns a comma-separated string value at path into a slice. YAML
// lists are left alone.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
