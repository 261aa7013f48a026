package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/deck"
	"github.com/mnemohq/mnemo/internal/srs"
	"github.com/mnemohq/mnemo/internal/storage"
	"github.com/mnemohq/mnemo/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("mnemo", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	flags.String("listen", ":8484", "HTTP listen address")
	flags.String("db", "mnemo.db", "path to the SQLite database file")
	flags.String("repos", "repos", "directory for git deck checkouts")
	addSource := flags.String("add-source", "", "register a deck source (directory or git URL) and exit")
	owner := flags.String("owner", "", "owner id, required with --add-source")
	syncOnce := flags.Bool("sync", false, "reconcile all deck sources before serving")
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	params, err := cfg.SchedulerParams()
	if err != nil {
		slog.Error("invalid scheduler configuration", "error", err)
		os.Exit(1)
	}
	scheduler, err := srs.NewScheduler(params)
	if err != nil {
		slog.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "db", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "db", cfg.DB)

	if *addSource != "" {
		if *owner == "" {
			slog.Error("--add-source requires --owner")
			os.Exit(1)
		}
		sourceType := deck.DetectSourceType(*addSource)
		id, err := db.InsertSource(*owner, *addSource, sourceType)
		if err != nil {
			slog.Error("failed to add source", "path", *addSource, "error", err)
			os.Exit(1)
		}
		slog.Info("source added", "id", id, "type", sourceType, "path", *addSource)
		return
	}

	syncer := deck.NewSyncer(db, scheduler, cfg.Repos)
	if *syncOnce {
		if err := syncer.SyncAll(time.Now()); err != nil {
			slog.Error("sync failed", "error", err)
			os.Exit(1)
		}
	}

	srv := web.NewServer(db, scheduler, syncer)
	slog.Info("listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
