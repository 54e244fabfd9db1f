// Package config resolves keystore settings from command-line flags,
// environment variables and an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvFile     = "KEYSTORE_FILE"
	EnvConfig   = "KEYSTORE_CONFIG"
	EnvBackend  = "KEYSTORE_BACKEND"
	EnvLogLevel = "KEYSTORE_LOG_LEVEL"
)

// Supported backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// ErrNoKeystoreFile is returned when no keystore path was configured.
// No default location is assumed.
var ErrNoKeystoreFile = errors.New("keystore file is not set: use --file or " + EnvFile)

// Config holds the resolved settings.
type Config struct {
	// File is the path of the backing keystore file.
	File string `yaml:"file"`

	// Backend selects the storage implementation: "file" or "bolt".
	Backend string `yaml:"backend"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load resolves the configuration with precedence flags > environment > YAML file.
// configPath may be empty, in which case KEYSTORE_CONFIG is consulted.
// Empty fields of flags are treated as not given.
func Load(configPath string, flags Config) (*Config, error) {
	cfg := &Config{
		Backend:  BackendFile,
		LogLevel: "warn",
	}

	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath != "" {
		if err := cfg.readFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.overlay(Config{
		File:     os.Getenv(EnvFile),
		Backend:  os.Getenv(EnvBackend),
		LogLevel: os.Getenv(EnvLogLevel),
	})
	cfg.overlay(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that a keystore file is set and the backend and log level are known.
func (c *Config) Validate() error {
	if c.File == "" {
		return ErrNoKeystoreFile
	}

	switch c.Backend {
	case BackendFile, BackendBolt:
	default:
		return fmt.Errorf("unknown backend %q: use %s or %s", c.Backend, BackendFile, BackendBolt)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) overlay(o Config) {
	if o.File != "" {
		c.File = o.File
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}
