// Package config provides configuration loading and validation for lincheck.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultParallelism       = 4
	DefaultCrossCheckTimeout = 30 * time.Second
	DefaultCrossCheckMaxOps  = 200
	DefaultFormat            = "bool"
	DefaultPort              = 8080
	DefaultLogLevel          = "warn"
	DefaultLogFormat         = "text"

	envPrefix = "LINCHECK"
)

// Config holds all configuration for lincheck.
type Config struct {
	Check   CheckConfig   `mapstructure:"check"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CheckConfig holds checker settings.
type CheckConfig struct {
	Parallelism       int           `mapstructure:"parallelism" validate:"gte=1,lte=256"`
	CrossCheck        bool          `mapstructure:"crosscheck"`
	CrossCheckTimeout time.Duration `mapstructure:"crosscheck_timeout" validate:"gte=0"`
	CrossCheckMaxOps  int           `mapstructure:"crosscheck_max_ops" validate:"gte=0"`
	Incremental       bool          `mapstructure:"incremental"`
	Timing            bool          `mapstructure:"time"`
	FailOnViolation   bool          `mapstructure:"fail_on_violation"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" validate:"oneof=bool text json yaml"`
	Color     bool   `mapstructure:"color"`
	Visualize bool   `mapstructure:"visualize"`
}

// ServerConfig holds settings of the visualization server.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads configuration from the file at configPath, if any, and
// LINCHECK_* environment variables. A missing file leaves the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".lincheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("check.parallelism", DefaultParallelism)
	v.SetDefault("check.crosscheck", false)
	v.SetDefault("check.crosscheck_timeout", DefaultCrossCheckTimeout)
	v.SetDefault("check.crosscheck_max_ops", DefaultCrossCheckMaxOps)
	v.SetDefault("check.incremental", false)
	v.SetDefault("check.time", false)
	v.SetDefault("check.fail_on_violation", false)

	v.SetDefault("output.format", DefaultFormat)
	v.SetDefault("output.color", true)
	v.SetDefault("output.visualize", false)

	v.SetDefault("server.port", DefaultPort)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
