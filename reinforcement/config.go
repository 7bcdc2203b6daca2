package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when training constants are out of range.
var ErrInvalidConfig = errors.New("invalid training config")

// Config holds the training constants. They are fixed for the duration of a run.
type Config struct {
	// Episodes is the number of episodes to train for.
	Episodes int
	// DiscountFactor weighs the bootstrapped value of the successor state.
	DiscountFactor float64
	// LearningRate is the interpolation weight of each update.
	LearningRate float64
	// ReportInterval emits a progress report every this many episodes.
	ReportInterval int
	// NoiseDecayExponent k scales exploration noise by 1/episode^k.
	NoiseDecayExponent float64
	// WindowSize is the number of trailing episodes averaged in reports.
	WindowSize int
}

// DefaultConfig returns the constants the FrozenLake agent is known to converge with.
func DefaultConfig() Config {
	return Config{
		Episodes:           4000,
		DiscountFactor:     0.8,
		LearningRate:       0.9,
		ReportInterval:     500,
		NoiseDecayExponent: 2,
		WindowSize:         DefaultWindowSize,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func unitInterval(f float64) bool {
	return finite(f) && f >= 0 && f <= 1
}

// Validate checks every constant, failing on the first bad one.
func (cfg Config) Validate() error {
	switch {
	case cfg.Episodes <= 0:
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidConfig, cfg.Episodes)
	case cfg.ReportInterval <= 0:
		return fmt.Errorf("%w: report interval must be positive, got %d", ErrInvalidConfig, cfg.ReportInterval)
	case cfg.WindowSize <= 0:
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, cfg.WindowSize)
	case !unitInterval(cfg.DiscountFactor):
		return fmt.Errorf("%w: discount factor must be in [0,1], got %v", ErrInvalidConfig, cfg.DiscountFactor)
	case !unitInterval(cfg.LearningRate):
		return fmt.Errorf("%w: learning rate must be in [0,1], got %v", ErrInvalidConfig, cfg.LearningRate)
	case !finite(cfg.NoiseDecayExponent) || cfg.NoiseDecayExponent < 0:
		return fmt.Errorf("%w: noise decay exponent must be finite and non-negative, got %v", ErrInvalidConfig, cfg.NoiseDecayExponent)
	}
	return nil
}

// Hyperparameter keys recognized in a training spec.
const (
	DiscountFactorKey     = "discount_factor"
	LearningRateKey       = "learning_rate"
	NoiseDecayExponentKey = "noise_decay_exponent"
)

// OuterConfig is the envelope of a config file: a kind and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingSpec is the file form of the training parameters. Zero-valued fields
// and missing hyperparameters fall back to DefaultConfig.
type TrainingSpec struct {
	Episodes       int `yaml:"episodes"`
	ReportInterval int `yaml:"report_interval"`
	WindowSize     int `yaml:"window_size"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyper_params"`
	// TrainingDeadline is a duration after which training stops, e.g. {duration: 10m}.
	TrainingDeadline map[string]string `yaml:"training_deadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

func (spec *TrainingSpec) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range spec.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// Config resolves the spec over the defaults and validates the result.
func (spec *TrainingSpec) Config() (Config, error) {
	cfg := DefaultConfig()
	if spec.Episodes != 0 {
		cfg.Episodes = spec.Episodes
	}
	if spec.ReportInterval != 0 {
		cfg.ReportInterval = spec.ReportInterval
	}
	if spec.WindowSize != 0 {
		cfg.WindowSize = spec.WindowSize
	}
	cfg.DiscountFactor = spec.GetHyperParamOrDefault(DiscountFactorKey, cfg.DiscountFactor)
	cfg.LearningRate = spec.GetHyperParamOrDefault(LearningRateKey, cfg.LearningRate)
	cfg.NoiseDecayExponent = spec.GetHyperParamOrDefault(NoiseDecayExponentKey, cfg.NoiseDecayExponent)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (spec *TrainingSpec) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := spec.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a training spec. Viper loads the envelope; the definition is
// round-tripped through yaml to decode it into the TrainingSpec. Viper lower-cases
// keys, hence the snake_case yaml tags.
func FromYaml(path string) (*TrainingSpec, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read training config: %w", err)
	}

	outerConfig := &OuterConfig{}
	if err := vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode training config: %w", err)
	}

	def, err := yaml.Marshal(outerConfig.Def)
	if err != nil {
		return nil, fmt.Errorf("decode training config: %w", err)
	}

	spec := &TrainingSpec{}
	if err := yaml.Unmarshal(def, spec); err != nil {
		return nil, fmt.Errorf("decode training config: %w", err)
	}
	return spec, nil
}
