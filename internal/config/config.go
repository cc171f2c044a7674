// Package config loads the optional config.yaml from the resolved config
// directory. A missing file is not an error; flags and environment variables
// override anything read here.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the user-tunable settings.
type Config struct {
	// LogLevel is the default minimum severity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
	// Trace enables the performance event recorder at startup.
	Trace bool `mapstructure:"trace"`
	// FeedLines bounds the in-memory log feed shown by the viewer.
	FeedLines int `mapstructure:"feed_lines"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Trace:     false,
		FeedLines: 1000,
	}
}

// Load reads config.yaml from configDir, falling back to defaults when the
// file does not exist.
func Load(configDir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("trace", cfg.Trace)
	v.SetDefault("feed_lines", cfg.FeedLines)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
