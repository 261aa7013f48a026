package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/srs"
)

// ErrConflict is returned when a review update lost the race against a
// concurrent write to the same card. The caller should re-read and retry.
var ErrConflict = errors.New("storage: card was modified concurrently")

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to
// date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = `id, owner_id, question, answer, context, content_hash,
	state, step, stability, difficulty, reps, lapses, scheduled_days,
	last_review_at, next_review_at, deleted_at, created_at`

// InsertCard stores a brand-new card. sourceID may be nil for cards that
// were not imported from a deck source.
func (db *DB) InsertCard(card domain.Card, sourceID *int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, owner_id, question, answer, context, content_hash,
			state, step, stability, difficulty, reps, lapses, scheduled_days,
			last_review_at, next_review_at, deleted_at, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID.String(),
		card.OwnerID,
		card.Question,
		card.Answer,
		card.Context,
		card.ContentHash,
		int(card.State),
		card.Step,
		nullFloat(card.Stability),
		nullFloat(card.Difficulty),
		card.Reps,
		card.Lapses,
		card.ScheduledDays,
		nullTime(card.LastReviewAt),
		nullTime(card.NextReviewAt),
		nullTime(card.DeletedAt),
		nullInt(sourceID),
		card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCardByID retrieves a card by its id, including soft-deleted ones.
// Returns (nil, nil) when the card does not exist.
func (db *DB) FindCardByID(id uuid.UUID) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE id = ?
	`, id.String())

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return card, nil
}

// FindCardByContentHash retrieves the owner's card with the given content
// hash, including soft-deleted ones. Returns (nil, nil) when absent.
func (db *DB) FindCardByContentHash(ownerID, hash string) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE owner_id = ? AND content_hash = ?
	`, ownerID, hash)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return card, nil
}

// ListCards retrieves every card belonging to one owner. Soft-deleted cards
// are included only when includeDeleted is set.
func (db *DB) ListCards(ownerID string, includeDeleted bool) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	rows, err := db.conn.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// GetCardsBySourceID retrieves all cards imported from one deck source,
// including soft-deleted ones.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for source %d: %w", sourceID, err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// ApplyReview persists the outcome of one review: the updated scheduling
// fields and the matching log entry, atomically. The update only lands if
// the stored card still has the pre-review rep count, which serializes
// concurrent reviews of the same card; a lost race returns ErrConflict.
func (db *DB) ApplyReview(card domain.Card, log domain.ReviewLog) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE cards
		SET state = ?, step = ?, stability = ?, difficulty = ?, reps = ?,
			lapses = ?, scheduled_days = ?, last_review_at = ?, next_review_at = ?
		WHERE id = ? AND reps = ? AND deleted_at IS NULL
	`,
		int(card.State),
		card.Step,
		nullFloat(card.Stability),
		nullFloat(card.Difficulty),
		card.Reps,
		card.Lapses,
		card.ScheduledDays,
		nullTime(card.LastReviewAt),
		nullTime(card.NextReviewAt),
		card.ID.String(),
		card.Reps-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update for card %s: %w", card.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: card %s", ErrConflict, card.ID)
	}

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	_, err = tx.Exec(`
		INSERT INTO review_logs (id, card_id, owner_id, grade, answered_at, elapsed_days, scheduled_days)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		log.ID.String(),
		log.CardID.String(),
		log.OwnerID,
		int(log.Grade),
		log.AnsweredAt,
		log.ElapsedDays,
		log.ScheduledDays,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %s: %w", card.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for card %s: %w", card.ID, err)
	}
	return nil
}

// ListReviewLogs retrieves the review history of one card, oldest first.
func (db *DB) ListReviewLogs(cardID uuid.UUID) ([]domain.ReviewLog, error) {
	rows, err := db.conn.Query(`
		SELECT id, card_id, owner_id, grade, answered_at, elapsed_days, scheduled_days
		FROM review_logs WHERE card_id = ? ORDER BY answered_at
	`, cardID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list review logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			log           domain.ReviewLog
			idStr, cardID string
			grade         int
		)
		if err := rows.Scan(&idStr, &cardID, &log.OwnerID, &grade, &log.AnsweredAt, &log.ElapsedDays, &log.ScheduledDays); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		if log.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse review log id %s: %w", idStr, err)
		}
		if log.CardID, err = uuid.Parse(cardID); err != nil {
			return nil, fmt.Errorf("failed to parse review log card id %s: %w", cardID, err)
		}
		log.Grade = domain.Grade(grade)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// SoftDeleteCard hides a card from scheduling. Every scheduling field stays
// untouched so a later restore returns the card exactly as it was.
func (db *DB) SoftDeleteCard(id uuid.UUID, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE cards SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, at, id.String())
	if err != nil {
		return fmt.Errorf("failed to soft-delete card %s: %w", id, err)
	}
	return nil
}

// RestoreCard makes a soft-deleted card visible to scheduling again.
func (db *DB) RestoreCard(id uuid.UUID) error {
	_, err := db.conn.Exec(`
		UPDATE cards SET deleted_at = NULL WHERE id = ?
	`, id.String())
	if err != nil {
		return fmt.Errorf("failed to restore card %s: %w", id, err)
	}
	return nil
}

// Source is a question deck the import pipeline reconciles: a local
// directory or a git repository of markdown files.
type Source struct {
	ID           int64
	OwnerID      string
	Path         string
	Type         string
	LastSyncedAt sql.NullTime
}

// InsertSource stores a new deck source and returns its id.
func (db *DB) InsertSource(ownerID, path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (owner_id, path, type) VALUES (?, ?, ?)
	`, ownerID, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get id for source %s: %w", path, err)
	}
	return id, nil
}

// GetAllSources retrieves every stored deck source.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, owner_id, path, type, last_synced_at FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Path, &s.Type, &s.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a deck source registration. Cards imported from it
// stay in the store and are soft-deleted by the next reconciliation.
func (db *DB) DeleteSource(id int64) error {
	if _, err := db.conn.Exec(`UPDATE cards SET source_id = NULL WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach cards from source %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastSynced records a completed reconciliation of the source.
func (db *DB) UpdateSourceLastSynced(id int64, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources SET last_synced_at = ? WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last synced for source %d: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanCard maps one cards row into the domain model. Memory-state values
// outside the engine's documented bounds indicate upstream corruption; the
// engine clamps them on use, this warns so the corruption is visible.
func scanCard(row scanner) (*domain.Card, error) {
	var (
		c            domain.Card
		idStr        string
		state        int
		stability    sql.NullFloat64
		difficulty   sql.NullFloat64
		lastReviewAt sql.NullTime
		nextReviewAt sql.NullTime
		deletedAt    sql.NullTime
	)
	err := row.Scan(
		&idStr,
		&c.OwnerID,
		&c.Question,
		&c.Answer,
		&c.Context,
		&c.ContentHash,
		&state,
		&c.Step,
		&stability,
		&difficulty,
		&c.Reps,
		&c.Lapses,
		&c.ScheduledDays,
		&lastReviewAt,
		&nextReviewAt,
		&deletedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid card id %s: %w", idStr, err)
	}
	c.State = domain.State(state)
	if stability.Valid {
		c.SetStability(stability.Float64)
		if stability.Float64 < srs.StabilityFloor {
			slog.Warn("stored stability below floor", "card", c.ID, "stability", stability.Float64)
		}
	}
	if difficulty.Valid {
		c.SetDifficulty(difficulty.Float64)
		if difficulty.Float64 < srs.DifficultyMin || difficulty.Float64 > srs.DifficultyMax {
			slog.Warn("stored difficulty out of range", "card", c.ID, "difficulty", difficulty.Float64)
		}
	}
	if lastReviewAt.Valid {
		t := lastReviewAt.Time
		c.LastReviewAt = &t
	}
	if nextReviewAt.Valid {
		t := nextReviewAt.Time
		c.NextReviewAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
