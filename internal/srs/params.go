package srs

import (
	"fmt"
	"time"
)

// Bounds shared by every write to a card's memory state. The engine never
// emits values outside these ranges, whatever it is handed.
const (
	// StabilityFloor is the minimum stability in days. Keeps the
	// forgetting-curve division well away from blow-up.
	StabilityFloor = 0.1

	// DifficultyMin and DifficultyMax bound the difficulty scale.
	DifficultyMin = 1.0
	DifficultyMax = 10.0

	// DefaultDifficulty is the seed used once a card leaves the new state,
	// the midpoint of the scale.
	DefaultDifficulty = 5.0
)

// Params holds the tunable coefficients of the scheduler. The exact values
// are calibration choices; the update formulas guarantee the required
// monotonicity whatever values validation accepts.
type Params struct {
	// TargetRetention is the retrievability at which the next review is
	// scheduled, e.g. 0.9 to review when recall probability drops to 90%.
	TargetRetention float64

	// InitialStability is the stability in days seeded on a card's first
	// review.
	InitialStability float64

	// GrowthRate scales the overall stability gain on a correct answer.
	GrowthRate float64
	// StabilityDamping is the exponent damping gains on already-stable
	// cards: larger current stability grows proportionally slower.
	StabilityDamping float64
	// SpacingGain weights (1 - retrievability) in the gain exponent, so
	// recalling a nearly-forgotten card strengthens it more.
	SpacingGain float64

	// DifficultyReward is subtracted from difficulty on a correct answer.
	DifficultyReward float64
	// DifficultyPenalty is added to difficulty on an incorrect answer.
	DifficultyPenalty float64

	// ForgetBase scales post-lapse stability.
	ForgetBase float64
	// ForgetDifficultyDecay reduces post-lapse stability for hard cards.
	ForgetDifficultyDecay float64
	// ForgetStabilityGrowth lets cards that were very stable before the
	// lapse keep more of their stability.
	ForgetStabilityGrowth float64
	// ForgetSpacingGain weights (1 - retrievability) in the lapse formula.
	ForgetSpacingGain float64

	// GraduationThresholdDays is the computed interval a learning or
	// relearning card must reach to graduate into review, and the minimum
	// interval granted at graduation.
	GraduationThresholdDays float64
	// MinReviewIntervalDays floors formula-scheduled intervals.
	MinReviewIntervalDays float64
	// MaxIntervalDays caps every scheduled interval.
	MaxIntervalDays float64

	// LearningSteps are the fixed retry delays inside the learning state.
	LearningSteps []time.Duration
	// RelearningSteps are the fixed retry delays inside the relearning state.
	RelearningSteps []time.Duration
}

// DefaultParams returns the default calibration.
func DefaultParams() Params {
	return Params{
		TargetRetention:         0.9,
		InitialStability:        1.0,
		GrowthRate:              1.0,
		StabilityDamping:        0.2,
		SpacingGain:             2.0,
		DifficultyReward:        0.15,
		DifficultyPenalty:       0.8,
		ForgetBase:              1.9,
		ForgetDifficultyDecay:   0.12,
		ForgetStabilityGrowth:   0.3,
		ForgetSpacingGain:       1.3,
		GraduationThresholdDays: 1.0,
		MinReviewIntervalDays:   0.25,
		MaxIntervalDays:         36500,
		LearningSteps:           []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:         []time.Duration{10 * time.Minute},
	}
}

func (p Params) validate() error {
	if p.TargetRetention <= 0 || p.TargetRetention >= 1 {
		return fmt.Errorf("%w: target retention %v out of range (0, 1)", ErrInvalidParams, p.TargetRetention)
	}
	if p.InitialStability < StabilityFloor {
		return fmt.Errorf("%w: initial stability %v below floor %v", ErrInvalidParams, p.InitialStability, StabilityFloor)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"growth rate", p.GrowthRate},
		{"stability damping", p.StabilityDamping},
		{"spacing gain", p.SpacingGain},
		{"difficulty reward", p.DifficultyReward},
		{"difficulty penalty", p.DifficultyPenalty},
		{"forget base", p.ForgetBase},
		{"forget difficulty decay", p.ForgetDifficultyDecay},
		{"forget stability growth", p.ForgetStabilityGrowth},
		{"forget spacing gain", p.ForgetSpacingGain},
	} {
		if v.value <= 0 {
			return fmt.Errorf("%w: %s %v must be positive", ErrInvalidParams, v.name, v.value)
		}
	}
	if p.GraduationThresholdDays <= 0 {
		return fmt.Errorf("%w: graduation threshold %v must be positive", ErrInvalidParams, p.GraduationThresholdDays)
	}
	if p.MinReviewIntervalDays <= 0 || p.MinReviewIntervalDays > p.GraduationThresholdDays {
		return fmt.Errorf("%w: minimum review interval %v out of range (0, %v]", ErrInvalidParams, p.MinReviewIntervalDays, p.GraduationThresholdDays)
	}
	if p.MaxIntervalDays < p.GraduationThresholdDays {
		return fmt.Errorf("%w: maximum interval %v below graduation threshold %v", ErrInvalidParams, p.MaxIntervalDays, p.GraduationThresholdDays)
	}
	if len(p.LearningSteps) == 0 {
		return fmt.Errorf("%w: at least one learning step required", ErrInvalidParams)
	}
	if len(p.RelearningSteps) == 0 {
		return fmt.Errorf("%w: at least one relearning step required", ErrInvalidParams)
	}
	for _, d := range append(append([]time.Duration{}, p.LearningSteps...), p.RelearningSteps...) {
		if d <= 0 {
			return fmt.Errorf("%w: step duration %v must be positive", ErrInvalidParams, d)
		}
	}
	return nil
}
