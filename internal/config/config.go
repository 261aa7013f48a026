// Package config loads runtime configuration from, in increasing
// precedence: built-in defaults, an optional YAML file, MNEMO_-prefixed
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mnemohq/mnemo/internal/srs"
)

// envPrefix is stripped from environment variables; "__" separates nesting
// levels so single underscores survive inside key names, e.g.
// MNEMO_SCHEDULER__TARGET_RETENTION -> scheduler.target_retention.
const envPrefix = "MNEMO_"

// Config is the full runtime configuration.
type Config struct {
	Listen    string    `koanf:"listen" validate:"required"`
	DB        string    `koanf:"db" validate:"required"`
	Repos     string    `koanf:"repos" validate:"required"`
	Scheduler Scheduler `koanf:"scheduler"`
}

// Scheduler exposes the engine's calibration surface. Step durations use
// Go duration syntax ("1m", "10m").
type Scheduler struct {
	TargetRetention         float64  `koanf:"target_retention" validate:"gt=0,lt=1"`
	InitialStability        float64  `koanf:"initial_stability" validate:"gte=0.1"`
	GrowthRate              float64  `koanf:"growth_rate" validate:"gt=0"`
	StabilityDamping        float64  `koanf:"stability_damping" validate:"gt=0"`
	SpacingGain             float64  `koanf:"spacing_gain" validate:"gt=0"`
	DifficultyReward        float64  `koanf:"difficulty_reward" validate:"gt=0"`
	DifficultyPenalty       float64  `koanf:"difficulty_penalty" validate:"gt=0"`
	ForgetBase              float64  `koanf:"forget_base" validate:"gt=0"`
	ForgetDifficultyDecay   float64  `koanf:"forget_difficulty_decay" validate:"gt=0"`
	ForgetStabilityGrowth   float64  `koanf:"forget_stability_growth" validate:"gt=0"`
	ForgetSpacingGain       float64  `koanf:"forget_spacing_gain" validate:"gt=0"`
	GraduationThresholdDays float64  `koanf:"graduation_threshold_days" validate:"gt=0"`
	MinReviewIntervalDays   float64  `koanf:"min_review_interval_days" validate:"gt=0"`
	MaxIntervalDays         float64  `koanf:"max_interval_days" validate:"gt=0"`
	LearningSteps           []string `koanf:"learning_steps" validate:"min=1,dive,required"`
	RelearningSteps         []string `koanf:"relearning_steps" validate:"min=1,dive,required"`
}

// Default returns the built-in configuration, with scheduler tunables taken
// from the engine's default calibration.
func Default() Config {
	p := srs.DefaultParams()
	return Config{
		Listen: ":8484",
		DB:     "mnemo.db",
		Repos:  "repos",
		Scheduler: Scheduler{
			TargetRetention:         p.TargetRetention,
			InitialStability:        p.InitialStability,
			GrowthRate:              p.GrowthRate,
			StabilityDamping:        p.StabilityDamping,
			SpacingGain:             p.SpacingGain,
			DifficultyReward:        p.DifficultyReward,
			DifficultyPenalty:       p.DifficultyPenalty,
			ForgetBase:              p.ForgetBase,
			ForgetDifficultyDecay:   p.ForgetDifficultyDecay,
			ForgetStabilityGrowth:   p.ForgetStabilityGrowth,
			ForgetSpacingGain:       p.ForgetSpacingGain,
			GraduationThresholdDays: p.GraduationThresholdDays,
			MinReviewIntervalDays:   p.MinReviewIntervalDays,
			MaxIntervalDays:         p.MaxIntervalDays,
			LearningSteps:           formatSteps(p.LearningSteps),
			RelearningSteps:         formatSteps(p.RelearningSteps),
		},
	}
}

// Load builds the configuration. path names an optional YAML file; flags may
// be nil when no command line is involved.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SchedulerParams converts the configuration into engine parameters.
func (c Config) SchedulerParams() (srs.Params, error) {
	learning, err := parseSteps(c.Scheduler.LearningSteps)
	if err != nil {
		return srs.Params{}, fmt.Errorf("invalid learning steps: %w", err)
	}
	relearning, err := parseSteps(c.Scheduler.RelearningSteps)
	if err != nil {
		return srs.Params{}, fmt.Errorf("invalid relearning steps: %w", err)
	}
	return srs.Params{
		TargetRetention:         c.Scheduler.TargetRetention,
		InitialStability:        c.Scheduler.InitialStability,
		GrowthRate:              c.Scheduler.GrowthRate,
		StabilityDamping:        c.Scheduler.StabilityDamping,
		SpacingGain:             c.Scheduler.SpacingGain,
		DifficultyReward:        c.Scheduler.DifficultyReward,
		DifficultyPenalty:       c.Scheduler.DifficultyPenalty,
		ForgetBase:              c.Scheduler.ForgetBase,
		ForgetDifficultyDecay:   c.Scheduler.ForgetDifficultyDecay,
		ForgetStabilityGrowth:   c.Scheduler.ForgetStabilityGrowth,
		ForgetSpacingGain:       c.Scheduler.ForgetSpacingGain,
		GraduationThresholdDays: c.Scheduler.GraduationThresholdDays,
		MinReviewIntervalDays:   c.Scheduler.MinReviewIntervalDays,
		MaxIntervalDays:         c.Scheduler.MaxIntervalDays,
		LearningSteps:           learning,
		RelearningSteps:         relearning,
	}, nil
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

func parseSteps(raw []string) ([]time.Duration, error) {
	steps := make([]time.Duration, len(raw))
	for i, s := range raw {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s, err)
		}
		steps[i] = d
	}
	return steps, nil
}

func formatSteps(steps []time.Duration) []string {
	out := make([]string, len(steps))
	for i, d := range steps {
		out[i] = d.String()
	}
	return out
}
