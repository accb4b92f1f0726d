// Package config loads process settings for formctl from the environment,
// an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/gofhir/forms/pkg/questionnaire"
)

// EnvPrefix prefixes every environment variable, e.g. FORMS_HTTP_ADDR.
const EnvPrefix = "FORMS"

// Config holds process settings.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	HTTPAddr     string `mapstructure:"HTTP_ADDR"`
	BodyLimit    string `mapstructure:"BODY_LIMIT"`
	ShutdownSecs int    `mapstructure:"SHUTDOWN_TIMEOUT"`

	ExtensionBase    string `mapstructure:"EXTENSION_BASE"`
	ExtensionVersion string `mapstructure:"EXTENSION_VERSION"`
	FHIRVersion      string `mapstructure:"FHIR_VERSION"`

	HistoryLimit        int `mapstructure:"HISTORY_LIMIT"`
	PatternCacheSize    int `mapstructure:"PATTERN_CACHE_SIZE"`
	ExpressionCacheSize int `mapstructure:"EXPRESSION_CACHE_SIZE"`

	// Workers bounds batch validation; 0 means one per CPU.
	Workers int `mapstructure:"WORKERS"`
}

var keys = []string{
	"LOG_LEVEL", "LOG_FORMAT",
	"HTTP_ADDR", "BODY_LIMIT", "SHUTDOWN_TIMEOUT",
	"EXTENSION_BASE", "EXTENSION_VERSION", "FHIR_VERSION",
	"HISTORY_LIMIT", "PATTERN_CACHE_SIZE", "EXPRESSION_CACHE_SIZE", "WORKERS",
}

// Load reads the configuration. file may name a YAML, JSON or TOML file;
// when empty, a .env file in the working directory is read if present.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10)
	v.SetDefault("EXTENSION_BASE", questionnaire.DefaultBase)
	v.SetDefault("EXTENSION_VERSION", questionnaire.DefaultVersion)
	v.SetDefault("FHIR_VERSION", "4.0.1")
	v.SetDefault("HISTORY_LIMIT", 100)
	v.SetDefault("PATTERN_CACHE_SIZE", 256)
	v.SetDefault("EXPRESSION_CACHE_SIZE", 512)
	v.SetDefault("WORKERS", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		// A missing .env file is fine.
		_ = v.ReadInConfig()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if u, err := url.Parse(c.ExtensionBase); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("EXTENSION_BASE must be an absolute URL, got %q", c.ExtensionBase))
	}
	if strings.TrimSpace(c.ExtensionVersion) == "" {
		errs = append(errs, errors.New("EXTENSION_VERSION is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("WORKERS must not be negative, got %d", c.Workers))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// JSONLogs reports whether logs should be written as JSON lines.
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}
