package srs

import "math"

// nextOnSuccess computes the post-review memory state after a correct
// answer. Stability grows by
//
//	S' = S * (1 + GrowthRate * (11 - D) * S^(-StabilityDamping) * (e^(SpacingGain*(1-R)) - 1))
//
// The gain shrinks as retrievability rises (recalling a fresh card teaches
// little) and as difficulty rises (hard cards consolidate slowly), giving
// dS'/dR <= 0 and dS'/dD <= 0 with S held fixed. Difficulty eases by a
// fixed step, floored at the minimum.
func (p Params) nextOnSuccess(stability, difficulty, retrievability float64) (float64, float64) {
	gain := p.GrowthRate *
		(DifficultyMax + 1 - difficulty) *
		math.Pow(stability, -p.StabilityDamping) *
		math.Expm1(p.SpacingGain*(1-retrievability))
	newStability := clampStability(stability * (1 + gain))
	newDifficulty := clampDifficulty(difficulty - p.DifficultyReward)
	return newStability, newDifficulty
}

// nextOnFailure computes the post-review memory state after an incorrect
// answer. Stability is rebuilt from the lapse formula
//
//	S'_f = ForgetBase * D^(-ForgetDifficultyDecay) * ((S+1)^ForgetStabilityGrowth - 1) * e^(ForgetSpacingGain*(1-R))
//
// then capped at the previous stability so a lapse never strengthens a
// card, and floored so repeated lapses cannot drive it to zero. A lapse is
// a reduction, not a reset: cards that were very stable keep part of that
// stability. Difficulty hardens by a fixed step, capped at the maximum.
func (p Params) nextOnFailure(stability, difficulty, retrievability float64) (float64, float64) {
	forget := p.ForgetBase *
		math.Pow(difficulty, -p.ForgetDifficultyDecay) *
		math.Expm1(p.ForgetStabilityGrowth*math.Log1p(stability)) *
		math.Exp(p.ForgetSpacingGain*(1-retrievability))
	newStability := clampStability(math.Min(forget, stability))
	newDifficulty := clampDifficulty(difficulty + p.DifficultyPenalty)
	return newStability, newDifficulty
}

// nextState dispatches on the review outcome. Inputs are clamped first so
// corrupt values arriving from storage cannot escape the documented ranges.
func (p Params) nextState(stability, difficulty, retrievability float64, correct bool) (float64, float64) {
	s := clampStability(stability)
	d := clampDifficulty(difficulty)
	if correct {
		return p.nextOnSuccess(s, d, retrievability)
	}
	return p.nextOnFailure(s, d, retrievability)
}
