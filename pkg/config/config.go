package config

// Package config provides a reusable loader for siteflow configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"siteflow-network/core"
	"siteflow-network/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a siteflow process. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		InboxCapacity   int `mapstructure:"inbox_capacity" json:"inbox_capacity"`
		RequestPeriodMS int `mapstructure:"request_period_ms" json:"request_period_ms"`
		RecvTimeoutMS   int `mapstructure:"recv_timeout_ms" json:"recv_timeout_ms"`
	} `mapstructure:"network" json:"network"`

	API struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Bind    string `mapstructure:"bind" json:"bind"`
	} `mapstructure:"api" json:"api"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		Dir   string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("network.inbox_capacity", core.DefaultInboxCapacity)
	viper.SetDefault("network.request_period_ms", int(core.DefaultRequestPeriod/time.Millisecond))
	viper.SetDefault("network.recv_timeout_ms", int(core.DefaultRecvTimeout/time.Millisecond))
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.bind", ":8088")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.dir", "./logs")
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. A missing default file is not an error: the compiled-in
// defaults apply.
func Load(env string) (*Config, error) {
	viper.Reset()
	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SITEFLOW_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SITEFLOW_ENV", ""))
}

// Engine converts the configured timings into the engine's form.
func (c *Config) Engine() core.EngineConfig {
	return core.EngineConfig{
		RequestPeriod: time.Duration(c.Network.RequestPeriodMS) * time.Millisecond,
		RecvTimeout:   time.Duration(c.Network.RecvTimeoutMS) * time.Millisecond,
	}
}
