// Package config loads penguindash settings from defaults, an optional YAML
// file and PENGUINDASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"penguindash/internal/blob"
	"penguindash/internal/dashboard"
)

// EnvPrefix prefixes every environment override, e.g. PENGUINDASH_SERVER_ADDR.
const EnvPrefix = "PENGUINDASH"

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Dataset   DatasetConfig    `mapstructure:"dataset"`
	Blob      blob.Config      `mapstructure:"blob"`
	Sessions  SessionsConfig   `mapstructure:"sessions"`
	Exports   ExportsConfig    `mapstructure:"exports"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
	Links     []dashboard.Link `mapstructure:"links"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies     bool          `mapstructure:"secure_cookies"`
}

// DatasetConfig names where the dataset is loaded from.
type DatasetConfig struct {
	Source string `mapstructure:"source"`
	Table  string `mapstructure:"table"`
}

// SessionsConfig bounds the in-memory session registry.
type SessionsConfig struct {
	Max int `mapstructure:"max"`
}

// ExportsConfig sizes the export queue and how many finished jobs are kept.
type ExportsConfig struct {
	QueueSize int `mapstructure:"queue_size"`
	Retention int `mapstructure:"retention"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig enables OTLP trace export when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load reads configuration. An empty path searches for penguindash.yaml in
// the working directory; a missing file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("penguindash")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Links) == 0 {
		cfg.Links = append([]dashboard.Link(nil), dashboard.DefaultLinks...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr is required")
	}
	if strings.TrimSpace(c.Dataset.Source) == "" {
		problems = append(problems, "dataset.source is required")
	}
	if c.Sessions.Max < 0 {
		problems = append(problems, "sessions.max must not be negative")
	}
	if c.Exports.QueueSize < 0 {
		problems = append(problems, "exports.queue_size must not be negative")
	}
	if c.Exports.Retention < 0 {
		problems = append(problems, "exports.retention must not be negative")
	}
	for i, link := range c.Links {
		if link.Title == "" || link.URL == "" {
			problems = append(problems, fmt.Sprintf("links[%d] needs a title and url", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("dataset.source", "embedded:")
	v.SetDefault("dataset.table", "penguins")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fs_root", "./blobdata")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.session_token", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("sessions.max", dashboard.DefaultMaxSessions)
	v.SetDefault("exports.queue_size", 32)
	v.SetDefault("exports.retention", 256)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "penguindash")
}
