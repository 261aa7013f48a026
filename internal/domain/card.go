package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card is one schedulable question/answer pair together with its memory
// state. Pointer fields are absent until the lifecycle reaches them:
// Stability, Difficulty and LastReviewAt are nil until the first review,
// NextReviewAt is nil while the card has never been scheduled (immediately
// due), DeletedAt is nil unless the card is soft-deleted.
type Card struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Context     string    `json:"context,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`

	State         State      `json:"state"`
	Step          int        `json:"step"`
	Stability     *float64   `json:"stability,omitempty"`
	Difficulty    *float64   `json:"difficulty,omitempty"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	ScheduledDays float64    `json:"scheduled_days"`
	LastReviewAt  *time.Time `json:"last_review_at,omitempty"`
	NextReviewAt  *time.Time `json:"next_review_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Clone returns a deep copy of the card. Pointer fields are copied by value.
func (c Card) Clone() Card {
	out := c
	out.Stability = clonePtr(c.Stability)
	out.Difficulty = clonePtr(c.Difficulty)
	out.LastReviewAt = clonePtr(c.LastReviewAt)
	out.NextReviewAt = clonePtr(c.NextReviewAt)
	out.DeletedAt = clonePtr(c.DeletedAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Deleted reports whether the card is soft-deleted.
func (c Card) Deleted() bool {
	return c.DeletedAt != nil
}

// SoftDelete returns a copy of the card hidden from scheduling. Every
// scheduling field is left untouched; deletion is a visibility toggle,
// never a scheduling event.
func (c Card) SoftDelete(at time.Time) Card {
	out := c.Clone()
	out.DeletedAt = &at
	return out
}

// Restore returns a copy of the card visible to scheduling again, with the
// memory state exactly as it was when the card was deleted.
func (c Card) Restore() Card {
	out := c.Clone()
	out.DeletedAt = nil
	return out
}

// SetStability stores s as the card's stability.
func (c *Card) SetStability(s float64) { c.Stability = &s }

// SetDifficulty stores d as the card's difficulty.
func (c *Card) SetDifficulty(d float64) { c.Difficulty = &d }

// ReviewOutcome is the input to one scheduling step: what the learner
// answered and when.
type ReviewOutcome struct {
	Grade      Grade     `json:"grade"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Correct reports whether the outcome counts as a successful recall.
func (o ReviewOutcome) Correct() bool {
	return o.Grade.Correct()
}

// ReviewLog records a single completed review for the interaction history.
type ReviewLog struct {
	ID            uuid.UUID `json:"id"`
	CardID        uuid.UUID `json:"card_id"`
	OwnerID       string    `json:"owner_id"`
	Grade         Grade     `json:"grade"`
	AnsweredAt    time.Time `json:"answered_at"`
	ElapsedDays   float64   `json:"elapsed_days"`
	ScheduledDays float64   `json:"scheduled_days"`
}
