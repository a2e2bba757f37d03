// Package config provides the configuration structure for chatterbox-studio.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied to fields the TOML file leaves unset.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 7860
	DefaultEngineURL      = "http://127.0.0.1:8000"
	DefaultTimeoutSeconds = 300

	DefaultPersonaBucket   = "PERSONAS"
	DefaultReferenceBucket = "REFERENCE_AUDIO"
	DefaultGeneratedBucket = "GENERATED_AUDIO"
)

const maxPort = 65535

// Static validation errors.
var (
	ErrPortRange      = errors.New("server port must be between 1 and 65535")
	ErrTimeoutRange   = errors.New("engine timeout_seconds must be positive")
	ErrDataDirEmpty   = errors.New("paths data_dir cannot be empty")
	ErrBucketConflict = errors.New("storage buckets must have distinct names")
)

// ServerConfig holds the local web UI listen address.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port the web server binds.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig holds the external speech engine endpoint.
type EngineConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StorageConfig names the JetStream buckets the studio persists into.
type StorageConfig struct {
	PersonaBucket   string `toml:"persona_bucket"`
	ReferenceBucket string `toml:"reference_audio_bucket"`
	GeneratedBucket string `toml:"generated_audio_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	DataDir     string `toml:"data_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Engine  EngineConfig  `toml:"engine"`
	Storage StorageConfig `toml:"storage"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration via the central configurator, fills defaults,
// and validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Engine.URL == "" {
		c.Engine.URL = DefaultEngineURL
	}

	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Storage.PersonaBucket == "" {
		c.Storage.PersonaBucket = DefaultPersonaBucket
	}

	if c.Storage.ReferenceBucket == "" {
		c.Storage.ReferenceBucket = DefaultReferenceBucket
	}

	if c.Storage.GeneratedBucket == "" {
		c.Storage.GeneratedBucket = DefaultGeneratedBucket
	}
}

// Validate checks the configuration for values no component could run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: got %d", ErrPortRange, c.Server.Port)
	}

	if c.Engine.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: got %d", ErrTimeoutRange, c.Engine.TimeoutSeconds)
	}

	if c.Paths.DataDir == "" {
		return ErrDataDirEmpty
	}

	if c.Storage.PersonaBucket == c.Storage.ReferenceBucket ||
		c.Storage.PersonaBucket == c.Storage.GeneratedBucket ||
		c.Storage.ReferenceBucket == c.Storage.GeneratedBucket {
		return ErrBucketConflict
	}

	return nil
}
