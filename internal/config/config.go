// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/schema"
	"go-sales-insights/pkg/utils"
)

// Config holds server configuration.
type Config struct {
	Port            string        `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"` // "json" or "console"
	DatabasePath    string        `yaml:"database_path"`
	ExportDir       string        `yaml:"export_dir"`
	RedisURL        string        `yaml:"redis_url"`
	ForecastTimeout time.Duration `yaml:"forecast_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`

	// Resolver overrides the keyword table per canonical field.
	Resolver map[model.Field]schema.Rule `yaml:"resolver"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:            "8080",
		LogLevel:        "info",
		LogFormat:       "json",
		DatabasePath:    "insights.db",
		ExportDir:       "exports",
		ForecastTimeout: 30 * time.Second,
		CacheTTL:        time.Hour,
		MaxUploadMB:     32,
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return eris.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		c.ExportDir = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	c.ForecastTimeout = utils.ParseDuration(os.Getenv("FORECAST_TIMEOUT"), c.ForecastTimeout)
	c.CacheTTL = utils.ParseDuration(os.Getenv("CACHE_TTL"), c.CacheTTL)
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxUploadMB = n
		} else {
			log.Warn().Str("MAX_UPLOAD_MB", v).Msg("ignoring invalid value")
		}
	}
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(c.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}
