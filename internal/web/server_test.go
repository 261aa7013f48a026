package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/deck"
	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/srs"
	"github.com/mnemohq/mnemo/internal/storage"
)

var serverTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	scheduler, err := srs.NewScheduler(srs.DefaultParams())
	if err != nil {
		t.Fatalf("NewScheduler returned an unexpected error: %v", err)
	}

	srv := NewServer(db, scheduler, deck.NewSyncer(db, scheduler, t.TempDir()))
	srv.now = func() time.Time { return serverTime }
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return v
}

func createCard(t *testing.T, srv *Server, question string) domain.Card {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/cards", createCardRequest{
		OwnerID:  "owner-1",
		Question: question,
		Answer:   "an answer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating a card, but got %d: %s", rec.Code, rec.Body)
	}
	return decodeBody[domain.Card](t, rec)
}

func TestCreateCard(t *testing.T) {
	srv := newTestServer(t)

	card := createCard(t, srv, "What does iota do?")
	if card.State != domain.StateNew {
		t.Errorf("Expected a new card, but got state %v", card.State)
	}
	if card.NextReviewAt != nil {
		t.Error("Expected no scheduled review for a new card")
	}

	t.Run("rejects an identical card", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/cards", createCardRequest{
			OwnerID:  "owner-1",
			Question: "What does iota do?",
			Answer:   "an answer",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected status 409 for a duplicate card, but got %d", rec.Code)
		}
	})

	t.Run("rejects a card without a question", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/cards", createCardRequest{
			OwnerID: "owner-1",
			Answer:  "an answer",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for a missing question, but got %d", rec.Code)
		}
	})
}

func TestQueue(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv, "q1")

	t.Run("requires an owner", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/queue", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 without an owner, but got %d", rec.Code)
		}
	})

	t.Run("counts the new card", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/queue?owner=owner-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body)
		}
		resp := decodeBody[queueResponse](t, rec)
		if resp.NewCount != 1 || resp.DueCount != 0 {
			t.Errorf("Expected 1 new and 0 due, but got %d new and %d due", resp.NewCount, resp.DueCount)
		}
		if resp.Next == nil || resp.Next.ID != card.ID {
			t.Error("Expected the created card to be next")
		}
	})

	t.Run("is empty for another owner", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/queue?owner=owner-2", nil)
		resp := decodeBody[queueResponse](t, rec)
		if resp.NewCount != 0 || resp.DueCount != 0 || resp.Next != nil {
			t.Errorf("Expected an empty queue, but got %+v", resp)
		}
	})
}

func TestReview(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv, "q1")

	rec := doJSON(t, srv, http.MethodPost, "/api/reviews", reviewRequest{
		CardID: card.ID,
		Grade:  domain.GradeGood,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body)
	}
	updated := decodeBody[domain.Card](t, rec)
	if updated.State != domain.StateLearning {
		t.Errorf("Expected the card to enter learning, but got %v", updated.State)
	}
	if updated.Reps != 1 {
		t.Errorf("Expected 1 rep, but got %d", updated.Reps)
	}
	if updated.NextReviewAt == nil || !updated.NextReviewAt.After(serverTime) {
		t.Errorf("Expected a future review, but got %v", updated.NextReviewAt)
	}

	t.Run("persists the result", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/cards/"+card.ID.String(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, but got %d", rec.Code)
		}
		stored := decodeBody[domain.Card](t, rec)
		if stored.Reps != 1 || stored.State != domain.StateLearning {
			t.Errorf("Expected the review to be persisted, but got reps=%d state=%v", stored.Reps, stored.State)
		}
	})

	t.Run("rejects an unknown card", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/reviews", reviewRequest{
			CardID: uuid.New(),
			Grade:  domain.GradeGood,
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, but got %d", rec.Code)
		}
	})

	t.Run("rejects an unrecognized grade", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/reviews", map[string]any{
			"card_id": card.ID,
			"grade":   "hard",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, but got %d", rec.Code)
		}
	})
}

func TestDeleteAndRestoreCard(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv, "q1")

	rec := doJSON(t, srv, http.MethodDelete, "/api/cards/"+card.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d", rec.Code)
	}

	t.Run("deleted card leaves the queue", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/queue?owner=owner-1", nil)
		resp := decodeBody[queueResponse](t, rec)
		if resp.NewCount != 0 || resp.Next != nil {
			t.Errorf("Expected an empty queue after deletion, but got %+v", resp)
		}
	})

	t.Run("deleted card cannot be reviewed", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/reviews", reviewRequest{
			CardID: card.ID,
			Grade:  domain.GradeGood,
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected status 409 reviewing a deleted card, but got %d", rec.Code)
		}
	})

	t.Run("restore brings the card back", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/cards/"+card.ID.String()+"/restore", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("Expected status 204, but got %d", rec.Code)
		}
		queue := doJSON(t, srv, http.MethodGet, "/api/queue?owner=owner-1", nil)
		resp := decodeBody[queueResponse](t, queue)
		if resp.NewCount != 1 {
			t.Errorf("Expected the restored card back in the queue, but got %+v", resp)
		}
	})
}

func TestRetrievability(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv, "q1")

	rec := doJSON(t, srv, http.MethodGet, "/api/cards/"+card.ID.String()+"/retrievability", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rec.Code)
	}
	resp := decodeBody[retrievabilityResponse](t, rec)
	if resp.Retrievability != 0 {
		t.Errorf("Expected retrievability 0 for an unreviewed card, but got %v", resp.Retrievability)
	}

	doJSON(t, srv, http.MethodPost, "/api/reviews", reviewRequest{CardID: card.ID, Grade: domain.GradeGood})

	rec = doJSON(t, srv, http.MethodGet, "/api/cards/"+card.ID.String()+"/retrievability", nil)
	resp = decodeBody[retrievabilityResponse](t, rec)
	if resp.Retrievability != 1 {
		t.Errorf("Expected retrievability 1 immediately after a review, but got %v", resp.Retrievability)
	}
	if resp.NextReviewAt == nil {
		t.Error("Expected a scheduled review after the first answer")
	}
}

func TestInvalidCardID(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/cards/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a malformed id, but got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/cards/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown id, but got %d", rec.Code)
	}
}

func TestSourcesAPI(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sources", addSourceRequest{
		OwnerID: "owner-1",
		Path:    "/decks/go",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, but got %d: %s", rec.Code, rec.Body)
	}
	created := decodeBody[sourceResponse](t, rec)
	if created.Type != "local" {
		t.Errorf("Expected a local source, but got %q", created.Type)
	}

	t.Run("detects git sources", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/sources", addSourceRequest{
			OwnerID: "owner-1",
			Path:    "https://github.com/example/deck.git",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, but got %d", rec.Code)
		}
		if resp := decodeBody[sourceResponse](t, rec); resp.Type != "git" {
			t.Errorf("Expected a git source, but got %q", resp.Type)
		}
	})

	t.Run("lists sources", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/sources", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, but got %d", rec.Code)
		}
		if sources := decodeBody[[]sourceResponse](t, rec); len(sources) != 2 {
			t.Errorf("Expected 2 sources, but got %d", len(sources))
		}
	})

	t.Run("deletes a source", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/sources/%d", created.ID), nil)
		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, but got %d", rec.Code)
		}
	})
}

func TestSyncEndpoint(t *testing.T) {
	srv := newTestServer(t)

	deckDir := t.TempDir()
	contents := "Q: What is a goroutine?\nA: A lightweight thread managed by the Go runtime.\n"
	if err := os.WriteFile(filepath.Join(deckDir, "go.md"), []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write deck file: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/sources", addSourceRequest{
		OwnerID: "owner-1",
		Path:    deckDir,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, but got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d: %s", rec.Code, rec.Body)
	}

	queue := doJSON(t, srv, http.MethodGet, "/api/queue?owner=owner-1", nil)
	resp := decodeBody[queueResponse](t, queue)
	if resp.NewCount != 1 {
		t.Errorf("Expected the imported card in the queue, but got %+v", resp)
	}
	if resp.Next == nil || resp.Next.Question != "What is a goroutine?" {
		t.Errorf("Expected the imported question, but got %+v", resp.Next)
	}
}
