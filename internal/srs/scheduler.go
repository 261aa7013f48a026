package srs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// Scheduler decides, after every answer, how hard a card is, how stable the
// memory is, and when it should be shown again. One instance is bound to one
// set of Params; it holds no other state, so a single Scheduler may be used
// concurrently across cards.
type Scheduler struct {
	params Params
}

// NewScheduler creates a Scheduler from the given parameters.
func NewScheduler(p Params) (*Scheduler, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: p}, nil
}

// Params returns the parameters the scheduler was built with.
func (s *Scheduler) Params() Params {
	return s.params
}

// InitializeCard returns a brand-new card: never reviewed, no memory state,
// immediately due. Difficulty is not seeded until the card leaves the new
// state.
func (s *Scheduler) InitializeCard(id uuid.UUID, ownerID string, now time.Time) domain.Card {
	return domain.Card{
		ID:        id,
		OwnerID:   ownerID,
		State:     domain.StateNew,
		CreatedAt: now,
	}
}

// Retrievability estimates the probability the card is still remembered at
// the given moment. Returns 0 for cards that have never been reviewed.
func (s *Scheduler) Retrievability(card domain.Card, now time.Time) float64 {
	if card.LastReviewAt == nil || card.Stability == nil {
		return 0
	}
	elapsed := now.Sub(*card.LastReviewAt).Hours() / 24
	return Retrievability(*card.Stability, elapsed)
}

// ReviewCard applies one review to the card and returns the updated card
// together with the log entry the caller should persist. The input card is
// not mutated and no I/O is performed. Reviewing a soft-deleted card is a
// caller bug and returns ErrCardDeleted; callers filter deleted cards before
// presenting them.
func (s *Scheduler) ReviewCard(card domain.Card, outcome domain.ReviewOutcome) (domain.Card, domain.ReviewLog, error) {
	if card.Deleted() {
		return domain.Card{}, domain.ReviewLog{}, fmt.Errorf("%w: card %s", ErrCardDeleted, card.ID)
	}
	if !outcome.Grade.IsValid() {
		return domain.Card{}, domain.ReviewLog{}, fmt.Errorf("%w: %d", domain.ErrInvalidGrade, int(outcome.Grade))
	}

	p := s.params
	c := card.Clone()
	now := outcome.AnsweredAt

	var elapsed float64
	if c.LastReviewAt != nil {
		if d := now.Sub(*c.LastReviewAt).Hours() / 24; d > 0 {
			elapsed = d
		}
	}

	if c.State == domain.StateNew {
		// First review: no retrievability to consult, seed the memory
		// state and enter learning.
		c.SetStability(p.InitialStability)
		c.SetDifficulty(DefaultDifficulty)
		c.State = domain.StateLearning
		c.Step = 0
	} else {
		r := Retrievability(*c.Stability, elapsed)
		stability, difficulty := p.nextState(*c.Stability, *c.Difficulty, r, outcome.Correct())
		c.SetStability(stability)
		c.SetDifficulty(difficulty)
	}

	days := s.transition(&c, outcome.Correct())

	c.Reps++
	c.LastReviewAt = &now
	c.ScheduledDays = days
	next := now.Add(daysToDuration(days))
	c.NextReviewAt = &next

	log := domain.ReviewLog{
		CardID:        c.ID,
		OwnerID:       c.OwnerID,
		Grade:         outcome.Grade,
		AnsweredAt:    now,
		ElapsedDays:   elapsed,
		ScheduledDays: days,
	}
	return c, log, nil
}

// transition applies the state machine step and returns the chosen interval
// in days. The card's stability and difficulty have already been updated.
func (s *Scheduler) transition(c *domain.Card, correct bool) float64 {
	switch c.State {
	case domain.StateReview:
		return s.transitionReview(c, correct)
	default:
		return s.transitionLearning(c, correct)
	}
}

// transitionLearning handles the learning and relearning sub-state steps.
// A correct answer advances through the fixed step delays and graduates to
// review once the formula interval clears the graduation threshold or the
// steps run out; an incorrect answer restarts the steps. Lapses are counted
// only on the review-to-relearning edge, so an incorrect answer here leaves
// the counter alone.
func (s *Scheduler) transitionLearning(c *domain.Card, correct bool) float64 {
	p := s.params
	steps := p.LearningSteps
	if c.State == domain.StateRelearning {
		steps = p.RelearningSteps
	}

	if !correct {
		c.Step = 0
		return durationToDays(steps[0])
	}

	candidate := p.intervalDays(*c.Stability)
	next := c.Step + 1
	if candidate >= p.GraduationThresholdDays || next >= len(steps) {
		c.State = domain.StateReview
		c.Step = 0
		return clampDays(candidate, p.GraduationThresholdDays, p.MaxIntervalDays)
	}
	c.Step = next
	return durationToDays(steps[next])
}

// transitionReview keeps a correct card in review on its formula interval
// and demotes an incorrect one to relearning, counting the lapse.
func (s *Scheduler) transitionReview(c *domain.Card, correct bool) float64 {
	p := s.params
	if correct {
		c.Step = 0
		return p.intervalDays(*c.Stability)
	}
	c.State = domain.StateRelearning
	c.Step = 0
	c.Lapses++
	return durationToDays(p.RelearningSteps[0])
}

func clampDays(days, min, max float64) float64 {
	if days < min {
		return min
	}
	if days > max {
		return max
	}
	return days
}

func durationToDays(d time.Duration) float64 {
	return d.Hours() / 24
}

func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
