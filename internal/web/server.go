// Package web exposes the review loop over HTTP as a small JSON API. It is
// orchestration only: every scheduling decision is delegated to the srs
// engine and every durable effect to the storage layer.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/cardtext"
	"github.com/mnemohq/mnemo/internal/deck"
	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/srs"
	"github.com/mnemohq/mnemo/internal/storage"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	db        *storage.DB
	scheduler *srs.Scheduler
	syncer    *deck.Syncer
	router    *http.ServeMux
	validate  *validator.Validate
	now       func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, scheduler *srs.Scheduler, syncer *deck.Syncer) *Server {
	s := &Server{
		db:        db,
		scheduler: scheduler,
		syncer:    syncer,
		router:    http.NewServeMux(),
		validate:  validator.New(),
		now:       time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("POST /api/cards", s.handleCreateCard())
	s.router.HandleFunc("GET /api/cards/{id}", s.handleGetCard())
	s.router.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard())
	s.router.HandleFunc("POST /api/cards/{id}/restore", s.handleRestoreCard())
	s.router.HandleFunc("GET /api/cards/{id}/retrievability", s.handleRetrievability())

	s.router.HandleFunc("GET /api/queue", s.handleQueue())
	s.router.HandleFunc("POST /api/reviews", s.handleReview())

	s.router.HandleFunc("GET /api/sources", s.handleListSources())
	s.router.HandleFunc("POST /api/sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /api/sync", s.handleSync())
}

type createCardRequest struct {
	OwnerID  string `json:"owner_id" validate:"required"`
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
	Context  string `json:"context"`
}

// handleCreateCard registers a question directly, bypassing deck import.
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCardRequest
		if !s.decode(w, r, &req) {
			return
		}

		card := s.scheduler.InitializeCard(uuid.New(), req.OwnerID, s.now())
		card.Question = req.Question
		card.Answer = req.Answer
		card.Context = req.Context
		card.ContentHash = cardtext.Hash(card)

		existing, err := s.db.FindCardByContentHash(req.OwnerID, card.ContentHash)
		if err != nil {
			s.internalError(w, "checking content hash", err)
			return
		}
		if existing != nil {
			respondError(w, http.StatusConflict, "an identical card already exists")
			return
		}

		if err := s.db.InsertCard(card, nil); err != nil {
			s.internalError(w, "inserting card", err)
			return
		}
		respondJSON(w, http.StatusCreated, card)
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.loadCard(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, card)
	}
}

// handleDeleteCard soft-deletes: the card disappears from queues but keeps
// its memory state for a later restore.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.loadCard(w, r)
		if !ok {
			return
		}
		if err := s.db.SoftDeleteCard(card.ID, s.now()); err != nil {
			s.internalError(w, "soft-deleting card", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRestoreCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.loadCard(w, r)
		if !ok {
			return
		}
		if err := s.db.RestoreCard(card.ID); err != nil {
			s.internalError(w, "restoring card", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type retrievabilityResponse struct {
	CardID         uuid.UUID  `json:"card_id"`
	Retrievability float64    `json:"retrievability"`
	ScheduledDays  float64    `json:"scheduled_days"`
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`
}

// handleRetrievability reports the estimated recall probability right now,
// for diagnostics and "next review" displays.
func (s *Server) handleRetrievability() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.loadCard(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, retrievabilityResponse{
			CardID:         card.ID,
			Retrievability: s.scheduler.Retrievability(*card, s.now()),
			ScheduledDays:  card.ScheduledDays,
			NextReviewAt:   card.NextReviewAt,
		})
	}
}

type queueResponse struct {
	NewCount int          `json:"new_count"`
	DueCount int          `json:"due_count"`
	Next     *domain.Card `json:"next,omitempty"`
}

// handleQueue reports the owner's due set and the next card to show.
func (s *Server) handleQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.URL.Query().Get("owner")
		if ownerID == "" {
			respondError(w, http.StatusBadRequest, "owner query parameter is required")
			return
		}
		cards, err := s.db.ListCards(ownerID, false)
		if err != nil {
			s.internalError(w, "listing cards", err)
			return
		}
		due, newCount, dueCount := srs.DueCards(cards, s.now())

		resp := queueResponse{NewCount: newCount, DueCount: dueCount}
		if len(due) > 0 {
			resp.Next = &due[0]
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

type reviewRequest struct {
	CardID uuid.UUID    `json:"card_id" validate:"required"`
	Grade  domain.Grade `json:"grade" validate:"required"`
}

// handleReview applies one answer: engine computes, storage persists both
// the card and the log entry in one transaction.
func (s *Server) handleReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if !s.decode(w, r, &req) {
			return
		}

		card, err := s.db.FindCardByID(req.CardID)
		if err != nil {
			s.internalError(w, "loading card", err)
			return
		}
		if card == nil {
			respondError(w, http.StatusNotFound, "card not found")
			return
		}
		if card.Deleted() {
			respondError(w, http.StatusConflict, "card is deleted")
			return
		}

		outcome := domain.ReviewOutcome{Grade: req.Grade, AnsweredAt: s.now()}
		updated, log, err := s.scheduler.ReviewCard(*card, outcome)
		if err != nil {
			if errors.Is(err, srs.ErrCardDeleted) || errors.Is(err, domain.ErrInvalidGrade) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.internalError(w, "reviewing card", err)
			return
		}

		if err := s.db.ApplyReview(updated, log); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				respondError(w, http.StatusConflict, "card was reviewed concurrently, reload and retry")
				return
			}
			s.internalError(w, "persisting review", err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

type sourceResponse struct {
	ID           int64      `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Path         string     `json:"path"`
	Type         string     `json:"type"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetAllSources()
		if err != nil {
			s.internalError(w, "listing sources", err)
			return
		}
		resp := make([]sourceResponse, 0, len(sources))
		for _, src := range sources {
			out := sourceResponse{ID: src.ID, OwnerID: src.OwnerID, Path: src.Path, Type: src.Type}
			if src.LastSyncedAt.Valid {
				t := src.LastSyncedAt.Time
				out.LastSyncedAt = &t
			}
			resp = append(resp, out)
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

type addSourceRequest struct {
	OwnerID string `json:"owner_id" validate:"required"`
	Path    string `json:"path" validate:"required"`
}

func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if !s.decode(w, r, &req) {
			return
		}
		sourceType := deck.DetectSourceType(req.Path)
		id, err := s.db.InsertSource(req.OwnerID, req.Path, sourceType)
		if err != nil {
			s.internalError(w, "inserting source", err)
			return
		}
		respondJSON(w, http.StatusCreated, sourceResponse{
			ID: id, OwnerID: req.OwnerID, Path: req.Path, Type: sourceType,
		})
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid source id")
			return
		}
		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "deleting source", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSync triggers a foreground reconciliation of all deck sources.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.syncer.SyncAll(s.now()); err != nil {
			s.internalError(w, "syncing sources", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// loadCard resolves the {id} path parameter to a stored card, writing the
// error response itself when that fails.
func (s *Server) loadCard(w http.ResponseWriter, r *http.Request) (*domain.Card, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid card id")
		return nil, false
	}
	card, err := s.db.FindCardByID(id)
	if err != nil {
		s.internalError(w, "loading card", err)
		return nil, false
	}
	if card == nil {
		respondError(w, http.StatusNotFound, "card not found")
		return nil, false
	}
	return card, true
}

// decode parses and validates a JSON request body, writing the error
// response itself when that fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	slog.Error("request failed", "action", action, "error", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
