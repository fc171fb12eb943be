// Package config loads the relstore CLI configuration from relstore.yml and
// RELSTORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/relstore/internal/orm/store"
	"github.com/conduit-lang/relstore/internal/source"
)

// Config represents the relstore configuration
type Config struct {
	Schema       string              `mapstructure:"schema"`
	Data         string              `mapstructure:"data"`
	Indexes      []IndexConfig  `mapstructure:"indexes"`
	ExemptModels []string       `mapstructure:"exempt_models"`
	Source       source.Config  `mapstructure:"source"`
	Backfill     BackfillConfig `mapstructure:"backfill"`
	Server       ServerConfig   `mapstructure:"server"`
	Log          LogConfig      `mapstructure:"log"`
}

// IndexConfig declares the index keys of one model. Model names such as
// "pos.order" contain the viper key delimiter, so indexes are a list rather
// than a map keyed by model.
type IndexConfig struct {
	Model string   `mapstructure:"model"`
	Keys  []string `mapstructure:"keys"`
}

// IndexMap returns the indexes in the form store.WithIndexes takes
func (c *Config) IndexMap() map[string][]string {
	out := make(map[string][]string, len(c.Indexes))
	for _, idx := range c.Indexes {
		out[idx.Model] = append(out[idx.Model], idx.Keys...)
	}
	return out
}

// BackfillConfig bounds back-fill runs
type BackfillConfig struct {
	MaxRounds int `mapstructure:"max_rounds"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig selects the logger built by NewLogger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the configuration. An empty path looks for relstore.yml or
// relstore.yaml in the working directory and falls back to defaults when
// neither exists.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("exempt_models", store.DefaultExemptModels)
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.redis.addr", "localhost:6379")
	v.SetDefault("source.redis.prefix", "relstore:")
	v.SetDefault("source.sql.driver", "sqlite3")
	v.SetDefault("source.sql.table", "relstore_records")
	v.SetDefault("backfill.max_rounds", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RELSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Source.Kind {
	case "file", "redis", "sql":
	default:
		return fmt.Errorf("source.kind must be one of file, redis, sql, got: %q", cfg.Source.Kind)
	}
	for i, idx := range cfg.Indexes {
		if idx.Model == "" || len(idx.Keys) == 0 {
			return fmt.Errorf("indexes[%d] needs a model and at least one key", i)
		}
	}
	if cfg.Backfill.MaxRounds <= 0 {
		return fmt.Errorf("backfill.max_rounds must be positive, got: %d", cfg.Backfill.MaxRounds)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range, got: %d", cfg.Server.Port)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds the zap logger described by cfg
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
