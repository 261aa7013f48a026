// Package deck reconciles registered question sources with the card store.
// Parsed questions that are new to an owner become cards; cards whose
// question disappeared from the source are soft-deleted, never removed, so
// restoring the question in the source restores the card's memory state
// intact.
package deck

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/cardtext"
	"github.com/mnemohq/mnemo/internal/gitsource"
	"github.com/mnemohq/mnemo/internal/parser"
	"github.com/mnemohq/mnemo/internal/srs"
	"github.com/mnemohq/mnemo/internal/storage"
)

// Syncer reconciles deck sources into the card store.
type Syncer struct {
	db        *storage.DB
	scheduler *srs.Scheduler
	reposDir  string
}

// NewSyncer creates a Syncer. Git sources are checked out under reposDir.
func NewSyncer(db *storage.DB, scheduler *srs.Scheduler, reposDir string) *Syncer {
	return &Syncer{db: db, scheduler: scheduler, reposDir: reposDir}
}

// SyncAll reconciles every registered source. Per-source failures are
// logged and skipped so one broken deck cannot block the rest.
func (s *Syncer) SyncAll(now time.Time) error {
	sources, err := s.db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no deck sources configured")
		return nil
	}
	for _, src := range sources {
		if err := s.SyncSource(src, now); err != nil {
			slog.Error("deck sync failed", "source", src.Path, "error", err)
		}
	}
	return nil
}

// SyncSource reconciles one source: git sources are cloned or pulled first,
// then the local tree is walked for markdown question files.
func (s *Syncer) SyncSource(src storage.Source, now time.Time) error {
	slog.Info("syncing deck source", "id", src.ID, "type", src.Type, "path", src.Path)

	localPath := src.Path
	if src.Type == "git" {
		var err error
		localPath, err = gitURLToLocalPath(s.reposDir, src.Path)
		if err != nil {
			return err
		}
		if err := gitsource.Sync(src.Path, localPath); err != nil {
			return err
		}
	}
	return s.reconcile(src, localPath, now)
}

func (s *Syncer) reconcile(src storage.Source, localPath string, now time.Time) error {
	found := make(map[string]bool)
	var inserted, restored, parseErrors int

	walkErr := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors++
			slog.Warn("failed to parse deck file", "path", path, "error", parseErr)
		}
		for _, parsed := range cards {
			hash := cardtext.Hash(parsed)
			found[hash] = true

			existing, err := s.db.FindCardByContentHash(src.OwnerID, hash)
			if err != nil {
				return fmt.Errorf("db check for %s: %w", hash, err)
			}
			switch {
			case existing == nil:
				card := s.scheduler.InitializeCard(uuid.New(), src.OwnerID, now)
				card.Question = parsed.Question
				card.Answer = parsed.Answer
				card.Context = parsed.Context
				card.ContentHash = hash
				if err := s.db.InsertCard(card, &src.ID); err != nil {
					return fmt.Errorf("db insert for %s: %w", hash, err)
				}
				inserted++
			case existing.Deleted():
				// The question came back; the card resumes with its
				// memory state exactly as it was.
				if err := s.db.RestoreCard(existing.ID); err != nil {
					return fmt.Errorf("db restore for %s: %w", hash, err)
				}
				restored++
			}
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", localPath, walkErr)
	}

	orphaned, err := s.hideOrphans(src, found, now)
	if err != nil {
		return err
	}

	if err := s.db.UpdateSourceLastSynced(src.ID, now); err != nil {
		slog.Warn("failed to update last synced", "source_id", src.ID, "error", err)
	}

	slog.Info("deck reconciliation complete",
		"path", src.Path,
		"inserted", inserted,
		"restored", restored,
		"orphaned_hidden", orphaned,
		"parse_errors", parseErrors,
	)
	return nil
}

// hideOrphans soft-deletes cards whose question no longer exists in the
// source tree.
func (s *Syncer) hideOrphans(src storage.Source, found map[string]bool, now time.Time) (int, error) {
	stored, err := s.db.GetCardsBySourceID(src.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load cards for source %d: %w", src.ID, err)
	}
	var orphaned int
	for _, card := range stored {
		if found[card.ContentHash] || card.Deleted() {
			continue
		}
		if err := s.db.SoftDeleteCard(card.ID, now); err != nil {
			slog.Warn("failed to hide orphaned card", "card", card.ID, "error", err)
			continue
		}
		orphaned++
	}
	return orphaned, nil
}

// DetectSourceType classifies a source path as a git URL or a local
// directory.
func DetectSourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		sanitized := strings.TrimSuffix(parsed.Path, ".git")
		return filepath.Join(baseDir, parsed.Host, sanitized), nil
	}

	// scp-like syntax: git@host:user/repo.git
	if strings.Contains(repoURL, "@") {
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) == 2 {
			hostParts := strings.SplitN(parts[0], "@", 2)
			if len(hostParts) == 2 {
				repoPath := strings.TrimSuffix(parts[1], ".git")
				return filepath.Join(baseDir, hostParts[1], repoPath), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
