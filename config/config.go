// Package config loads service configuration from a YAML file and the
// environment via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the caremesh service.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Redis struct {
		Enable   bool          `mapstructure:"enable"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Extractor struct {
		// Provider selects the patient-info extractor: static, openai or
		// anthropic.
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
		APIKey   string `mapstructure:"api_key"`
	} `mapstructure:"extractor"`
	Sessions struct {
		// ReapInterval schedules idle-session reaping; zero disables it.
		ReapInterval time.Duration `mapstructure:"reap_interval"`
		MaxIdle      time.Duration `mapstructure:"max_idle"`
	} `mapstructure:"sessions"`
}

// Load reads configuration from the given file (or the default search path
// when empty) and the CAREMESH_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("caremesh")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/caremesh")
	}
	v.SetEnvPrefix("CAREMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("extractor.provider", "static")
	v.SetDefault("sessions.max_idle", 24*time.Hour)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file is fine; defaults plus environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
