package srs

import "math"

// Retrievability estimates the probability of recalling a card with the
// given stability after elapsedDays without review:
//
//	R = exp(-elapsedDays / stability * ln 2)
//
// so retrievability halves every stability days. Elapsed time is clamped to
// zero or more (clock skew defence) and stability to the documented floor,
// keeping the result in (0, 1] with R = 1 at elapsed zero.
func Retrievability(stability, elapsedDays float64) float64 {
	s := clampStability(stability)
	t := math.Max(elapsedDays, 0)
	return math.Exp(-t / s * math.Ln2)
}

// ScheduledDays inverts the forgetting curve: the elapsed time at which a
// card with the given stability decays to exactly targetRetention,
//
//	days = stability * log2(1 / targetRetention)
//
// Never negative for valid inputs.
func ScheduledDays(stability, targetRetention float64) float64 {
	return clampStability(stability) * math.Log2(1/targetRetention)
}

// intervalDays applies the configured floor and cap to a formula-scheduled
// interval.
func (p Params) intervalDays(stability float64) float64 {
	days := ScheduledDays(stability, p.TargetRetention)
	if days < p.MinReviewIntervalDays {
		return p.MinReviewIntervalDays
	}
	if days > p.MaxIntervalDays {
		return p.MaxIntervalDays
	}
	return days
}

func clampStability(s float64) float64 {
	if math.IsNaN(s) {
		return StabilityFloor
	}
	return math.Max(s, StabilityFloor)
}

func clampDifficulty(d float64) float64 {
	if math.IsNaN(d) {
		return DefaultDifficulty
	}
	return math.Min(math.Max(d, DifficultyMin), DifficultyMax)
}
