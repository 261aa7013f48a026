package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

func cardDueAt(id byte, at *time.Time) domain.Card {
	var cardID uuid.UUID
	cardID[15] = id
	return domain.Card{ID: cardID, OwnerID: "owner-1", NextReviewAt: at}
}

func TestDueCards(t *testing.T) {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	overdue := now.Add(-48 * time.Hour)
	justDue := now.Add(-time.Minute)
	future := now.Add(24 * time.Hour)

	t.Run("splits new and due and orders oldest-overdue first", func(t *testing.T) {
		cards := []domain.Card{
			cardDueAt(1, &future),
			cardDueAt(2, nil),
			cardDueAt(3, &justDue),
			cardDueAt(4, &overdue),
			cardDueAt(5, nil),
		}

		due, newCount, dueCount := DueCards(cards, now)

		if newCount != 2 {
			t.Errorf("Expected 2 new cards, but got %d", newCount)
		}
		if dueCount != 2 {
			t.Errorf("Expected 2 due cards, but got %d", dueCount)
		}
		if len(due) != 4 {
			t.Fatalf("Expected 4 eligible cards, but got %d", len(due))
		}
		// Scheduled cards first, oldest overdue leading, then new cards by id.
		wantOrder := []byte{4, 3, 2, 5}
		for i, want := range wantOrder {
			if due[i].ID[15] != want {
				t.Errorf("Expected card %d at position %d, but got %d", want, i, due[i].ID[15])
			}
		}
	})

	t.Run("excludes soft-deleted cards unconditionally", func(t *testing.T) {
		deletedAt := now.Add(-time.Hour)
		cards := []domain.Card{
			cardDueAt(1, &overdue),
			cardDueAt(2, &overdue), // overdue but deleted
			cardDueAt(3, nil),
			cardDueAt(4, &justDue),
			cardDueAt(5, nil),
		}
		cards[1].DeletedAt = &deletedAt

		due, newCount, dueCount := DueCards(cards, now)

		if len(due) != 4 {
			t.Errorf("Expected 4 eligible cards, but got %d", len(due))
		}
		if dueCount != 2 {
			t.Errorf("Expected the deleted overdue card to be excluded from dueCount, but got %d", dueCount)
		}
		if newCount != 2 {
			t.Errorf("Expected 2 new cards, but got %d", newCount)
		}
		for _, c := range due {
			if c.ID[15] == 2 {
				t.Error("Expected the deleted card to be excluded from the due set")
			}
		}
	})

	t.Run("breaks next-review ties by id", func(t *testing.T) {
		cards := []domain.Card{
			cardDueAt(9, &overdue),
			cardDueAt(1, &overdue),
		}
		due, _, _ := DueCards(cards, now)
		if due[0].ID[15] != 1 || due[1].ID[15] != 9 {
			t.Errorf("Expected ids in ascending order on a tie, but got %d, %d", due[0].ID[15], due[1].ID[15])
		}
	})

	t.Run("ignores cards scheduled in the future", func(t *testing.T) {
		cards := []domain.Card{cardDueAt(1, &future)}
		due, newCount, dueCount := DueCards(cards, now)
		if len(due) != 0 || newCount != 0 || dueCount != 0 {
			t.Errorf("Expected an empty due set, but got %d cards (new=%d due=%d)", len(due), newCount, dueCount)
		}
	})
}
