// Package config loads the service configuration from a yaml file and the
// environment via viper. Every key has a default, so the binary runs with no
// config file at all.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teamvault/teamvault/internal/database"
)

type Config struct {
	Listen   string         `mapstructure:"listen"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	File string `mapstructure:"file"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type HTTPConfig struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SweepConfig struct {
	// MaxAge is how old an incomplete upload row must be before the
	// reconciliation sweep purges it. Young rows may still be in flight.
	MaxAge time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables rotated file output in addition to stderr.
	File     string         `mapstructure:"file"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// Init points viper at the config file and the environment. A missing config
// file is fine; defaults and env vars cover everything.
func Init(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("TEAMVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("database.file", database.DefaultFile)
	viper.SetDefault("storage.dir", "./data")
	viper.SetDefault("http.read_timeout", 30*time.Second)
	viper.SetDefault("http.write_timeout", 60*time.Second)
	viper.SetDefault("sweep.max_age", time.Hour)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.rotation.max_size", 100)
	viper.SetDefault("log.rotation.max_backups", 3)
	viper.SetDefault("log.rotation.max_age", 28)
}
