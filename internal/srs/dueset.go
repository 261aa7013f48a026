package srs

import (
	"bytes"
	"sort"
	"time"

	"github.com/mnemohq/mnemo/internal/domain"
)

// DueCards selects from the given snapshot the cards eligible for review at
// the given moment and orders them for presentation: previously scheduled
// cards oldest-overdue first, then never-scheduled cards, ties broken by id
// for determinism. Soft-deleted cards are excluded unconditionally and are
// counted in neither bucket. newCount is the eligible never-scheduled cards,
// dueCount the eligible scheduled-and-due ones.
func DueCards(cards []domain.Card, now time.Time) (due []domain.Card, newCount, dueCount int) {
	for _, c := range cards {
		if c.Deleted() {
			continue
		}
		switch {
		case c.NextReviewAt == nil:
			newCount++
			due = append(due, c)
		case !c.NextReviewAt.After(now):
			dueCount++
			due = append(due, c)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		switch {
		case a.NextReviewAt == nil && b.NextReviewAt == nil:
			return bytes.Compare(a.ID[:], b.ID[:]) < 0
		case a.NextReviewAt == nil:
			return false // scheduled cards take priority over new ones
		case b.NextReviewAt == nil:
			return true
		case a.NextReviewAt.Equal(*b.NextReviewAt):
			return bytes.Compare(a.ID[:], b.ID[:]) < 0
		default:
			return a.NextReviewAt.Before(*b.NextReviewAt)
		}
	})
	return due, newCount, dueCount
}
