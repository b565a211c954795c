// Command seed imports the personnel directory (scopes, agents and role assignments)
// from a YAML file into PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"flag"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/girrex/suivi/internal/adapter/cache"
	"github.com/girrex/suivi/internal/adapter/memory"
	"github.com/girrex/suivi/internal/adapter/persistence"
	"github.com/girrex/suivi/internal/config"
)

func main() {
	_ = godotenv.Load()
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	file := flag.String("file", cfg.Domain.DirectoryFile, "directory YAML file")
	flag.Parse()
	if *file == "" {
		logger.Fatal("a directory file is required (-file or DIRECTORY_FILE)")
	}

	snap, err := memory.LoadDirectorySnapshot(*file)
	if err != nil {
		logger.WithError(err).Fatal("failed to load directory file")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.WithError(err).Fatal("failed to begin transaction")
	}
	if err := persistence.ImportDirectory(ctx, tx, snap.Scopes, snap.Agents, snap.Assignments); err != nil {
		tx.Rollback()
		logger.WithError(err).Fatal("failed to import directory")
	}
	if err := tx.Commit(); err != nil {
		logger.WithError(err).Fatal("failed to commit directory")
	}

	// cached lookups, misses included, would hide the new directory until they expire
	if cfg.Redis.URL != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("directory imported but the cache could not be reached, entries expire after DIRECTORY_CACHE_TTL")
		} else {
			if err := cache.InvalidateDirectory(ctx, client); err != nil {
				logger.WithError(err).Warn("failed to invalidate directory cache")
			}
			client.Close()
		}
	}

	logger.WithFields(logrus.Fields{
		"scopes":      len(snap.Scopes),
		"agents":      len(snap.Agents),
		"assignments": len(snap.Assignments),
	}).Info("directory imported")
}
