/*
Package config loads the server configuration.

PURPOSE:
  One Config struct for everything cmd/server needs: listen port, database
  path, logging, the optional scheme file, the accrual scheduler and CORS.
  Values come from, in increasing precedence:

    1. Built-in defaults
    2. An optional YAML/JSON/TOML file (-config flag)
    3. LOANENGINE_* environment variables

ENVIRONMENT:
  Nested keys use underscores: LOANENGINE_SERVER_PORT=9090,
  LOANENGINE_DATABASE_PATH=:memory:, LOANENGINE_LOG_LEVEL=debug.

EXAMPLE FILE (config.yml):
  server:
    port: 8080
  database:
    path: ./data/loans.db
  log:
    level: info
    format: json
  schemes_file: ./schemes.json
  scheduler:
    enabled: true
    interval: 1h
  cors:
    allowed_origins: ["http://localhost:3000"]

SEE ALSO:
  - config/logger.go: zap logger from LogConfig
  - cmd/server/main.go: consumer
*/
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "LOANENGINE"

// Config holds all configuration for the loan engine server.
type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Log         LogConfig       `mapstructure:"log"`
	SchemesFile string          `mapstructure:"schemes_file"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	CORS        CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Path is a SQLite file path or ":memory:".
	Path string `mapstructure:"path"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	OutputFile string `mapstructure:"output_file"`
}

// SchedulerConfig controls the daily accrual job.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	// Timezone decides which calendar day "today" is.
	Timezone string `mapstructure:"timezone"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: "loans.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: time.Hour,
			Timezone: "Asia/Kolkata",
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads configuration from path (may be empty) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AutomaticEnv only sees keys viper already knows, so every key gets a default.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_file", d.Log.OutputFile)
	v.SetDefault("schemes_file", d.SchemesFile)
	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.interval", d.Scheduler.Interval)
	v.SetDefault("scheduler.timezone", d.Scheduler.Timezone)
	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.Scheduler.Interval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the scheduler timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return loc, nil
}
