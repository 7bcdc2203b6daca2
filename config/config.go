package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g. FROZENLAKE_MAX_STEPS.
const EnvPrefix = "FROZENLAKE"

var ErrInvalidSettings = errors.New("invalid settings")

// Config holds the process settings of the frozenlake command.
type Config struct {
	// Path to a training yaml; empty trains with the default constants.
	TrainingFile string `mapstructure:"config"`
	// Overrides the training file's episode count when positive.
	Episodes int `mapstructure:"episodes"`

	// Environment settings
	Map      string `mapstructure:"map"`
	Slippery bool   `mapstructure:"slippery"`
	MaxSteps int    `mapstructure:"max-steps"`

	// Seeds
	Seed    uint64 `mapstructure:"seed"`
	EnvSeed uint64 `mapstructure:"env-seed"`

	// Live view
	Serve bool   `mapstructure:"serve"`
	Addr  string `mapstructure:"addr"`

	// Output
	ChartFile  string `mapstructure:"chart"`
	ShowPolicy bool   `mapstructure:"show-policy"`
	Color      bool   `mapstructure:"color"`

	// Logging
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// Default returns the standard FrozenLake-v1 settings: 4x4, slippery, env seed 100.
func Default() *Config {
	return &Config{
		Map:        "4x4",
		Slippery:   true,
		Seed:       0,
		EnvSeed:    100,
		Addr:       ":8080",
		ShowPolicy: true,
		Color:      true,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Map == "" {
		return fmt.Errorf("%w: map is required", ErrInvalidSettings)
	}
	if c.Episodes < 0 {
		return fmt.Errorf("%w: episodes must not be negative", ErrInvalidSettings)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max-steps must not be negative", ErrInvalidSettings)
	}
	if c.Serve && c.Addr == "" {
		return fmt.Errorf("%w: addr is required to serve", ErrInvalidSettings)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", ErrInvalidSettings, err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log-format must be console or json, got %q", ErrInvalidSettings, c.LogFormat)
	}
	return nil
}

// RegisterFlags declares one flag per setting, defaulting to the values in cfg.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.TrainingFile, "config", cfg.TrainingFile, "Training yaml (kind/def) with episodes and hyperparameters")
	fs.IntVar(&cfg.Episodes, "episodes", cfg.Episodes, "Override the number of training episodes")

	// Environment settings
	fs.StringVar(&cfg.Map, "map", cfg.Map, "Built-in lake map (4x4, 8x8)")
	fs.BoolVar(&cfg.Slippery, "slippery", cfg.Slippery, "Slippery ice: moves may slide perpendicular")
	fs.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "Episode step limit (0 for the map default)")

	// Seeds
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Seed of the exploration noise source")
	fs.Uint64Var(&cfg.EnvSeed, "env-seed", cfg.EnvSeed, "Seed of the environment's slip dynamics")

	// Live view
	fs.BoolVar(&cfg.Serve, "serve", cfg.Serve, "Serve a live view of the value table")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Live view listen address")

	// Output
	fs.StringVar(&cfg.ChartFile, "chart", cfg.ChartFile, "Write an html reward chart to this path")
	fs.BoolVar(&cfg.ShowPolicy, "show-policy", cfg.ShowPolicy, "Print the greedy policy and values after training")
	fs.BoolVar(&cfg.Color, "color", cfg.Color, "Colorize console output")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
}

// Bind makes every flag overridable from the environment.
func Bind(vp *viper.Viper, fs *pflag.FlagSet) error {
	if err := vp.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	return nil
}

// Load resolves the settings from the bound flags and environment and validates them.
func Load(vp *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
