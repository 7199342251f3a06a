package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".sifter"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for sifter settings.
const envPrefix = "SIFTER"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults. If configPath
// is non-empty, it is used as the explicit config file path; otherwise the
// config file is searched in CWD and $HOME. A missing config file is not an
// error; defaults apply.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// PollIntervalDuration parses the configured poll interval.
func (p *PipelineConfig) PollIntervalDuration() (time.Duration, error) {
	interval, err := time.ParseDuration(p.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("parse poll interval: %w", err)
	}

	if interval <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPollInterval, p.PollInterval)
	}

	return interval, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("parsers", DefaultParsers)
	viperCfg.SetDefault("plugins", DefaultPlugins)

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)
	viperCfg.SetDefault("pipeline.poll_interval", DefaultPipelinePollInterval)

	viperCfg.SetDefault("storage.dir", DefaultStorageDir)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.format", DefaultLogFormat)

	viperCfg.SetDefault("metrics.addr", "")
}
