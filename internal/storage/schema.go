package storage

const schema = `
-- One row per schedulable card. Scheduling fields mirror the engine's card
-- model; stability/difficulty/last_review_at/next_review_at are NULL until
-- the lifecycle reaches them. deleted_at implements soft deletion: the row
-- is never removed, only hidden.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL,
    state INTEGER NOT NULL DEFAULT 0, -- 0: new, 1: learning, 2: review, 3: relearning
    step INTEGER NOT NULL DEFAULT 0,
    stability REAL,
    difficulty REAL,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    scheduled_days REAL NOT NULL DEFAULT 0,
    last_review_at DATETIME,
    next_review_at DATETIME,
    deleted_at DATETIME,
    source_id INTEGER,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cards_owner_hash ON cards(owner_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_cards_owner_due ON cards(owner_id, deleted_at, next_review_at);

-- Append-only interaction history, one row per completed review.
CREATE TABLE IF NOT EXISTS review_logs (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    grade INTEGER NOT NULL,
    answered_at DATETIME NOT NULL,
    elapsed_days REAL NOT NULL,
    scheduled_days REAL NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);

CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);

-- Question decks the import pipeline reconciles, either a local directory
-- or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id TEXT NOT NULL,
    path TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_synced_at DATETIME,

    UNIQUE(owner_id, path)
);
`
