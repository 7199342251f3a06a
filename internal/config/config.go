// Package config holds the sifter settings and their loading from file,
// environment, and defaults.
package config

import (
	"errors"
	"fmt"
)

// Validation sentinel errors.
var (
	ErrInvalidWorkers      = errors.New("pipeline workers must be positive")
	ErrInvalidPollInterval = errors.New("pipeline poll interval must be positive")
	ErrNoParsers           = errors.New("at least one parser must be enabled")
)

// Defaults applied when the config file and environment leave a key unset.
const (
	DefaultPipelineWorkers      = 4
	DefaultPipelinePollInterval = "10ms"
	DefaultStorageDir           = "sifter-store"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

// DefaultParsers are the parsers enabled when none are configured.
var DefaultParsers = []string{"filestat", "syslog"}

// DefaultPlugins are the analysis plugins enabled when none are configured.
var DefaultPlugins = []string{"parser_frequency"}

// Config is the full sifter configuration.
type Config struct {
	// Parsers lists the enabled parser names.
	Parsers []string `mapstructure:"parsers"`
	// Plugins lists the enabled analysis plugin names.
	Plugins []string `mapstructure:"plugins"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// PipelineConfig tunes the extraction engine.
type PipelineConfig struct {
	// Workers is the number of parallel task workers.
	Workers int `mapstructure:"workers"`
	// PollInterval is the cursor poll interval, as a duration string.
	PollInterval string `mapstructure:"poll_interval"`
}

// StorageConfig locates the session store.
type StorageConfig struct {
	// Dir is the session store directory.
	Dir string `mapstructure:"dir"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig enables the metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for the /metrics endpoint; empty disables
	// the endpoint.
	Addr string `mapstructure:"addr"`
}

// Validate checks the configuration for defects a run cannot proceed with.
func (c *Config) Validate() error {
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Pipeline.Workers)
	}

	_, err := c.Pipeline.PollIntervalDuration()
	if err != nil {
		return err
	}

	if len(c.Parsers) == 0 {
		return ErrNoParsers
	}

	return nil
}
