// Package config provides a reusable loader for this library's CLI/service
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"icon-go/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for an iconctl/service process:
// which network to target, how to reach its node, an optional signing
// identity, and logging verbosity (spec.md §4.3 "Identity", §2 ambient
// stack).
type Config struct {
	Network struct {
		ID        string `mapstructure:"id" json:"id"`             // preset tag: mainnet, lisbon, berlin, sejong, btp
		NetworkID string `mapstructure:"network_id" json:"network_id"` // explicit 0x-hex override
		Node      string `mapstructure:"node" json:"node"`
		Debug     bool   `mapstructure:"debug" json:"debug"`
	} `mapstructure:"network" json:"network"`

	Wallet struct {
		PrivateKeyFile string `mapstructure:"private_key_file" json:"private_key_file"`
	} `mapstructure:"wallet" json:"wallet"`

	Stream struct {
		MaxBufferSize int `mapstructure:"max_buffer_size" json:"max_buffer_size"`
	} `mapstructure:"stream" json:"stream"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up ICON_* overrides via SetEnvPrefix in LoadFromEnv

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the ICON_ENV environment variable.
// A .env file in the working directory is merged first, if present, so
// local development can override ICON_* variables without exporting them.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, utils.Wrap(err, "load .env")
	}
	viper.SetEnvPrefix("icon")
	return Load(utils.EnvOrDefault("ICON_ENV", ""))
}
