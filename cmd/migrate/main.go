package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/girrex/suivi/internal/config"
)

type migrationFile struct {
	version int
	name    string
	path    string
	kind    string // up or down
}

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or status")
	steps := flag.Int("steps", 0, "number of migrations to revert in down mode, 0 for all")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}

	if err := ensureSchemaMigrations(ctx, db); err != nil {
		logger.WithError(err).Fatal("failed to ensure schema_migrations")
	}

	files, err := loadMigrationFiles(cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to load migrations")
	}

	m := &migrator{db: db, log: logger}
	switch strings.ToLower(*mode) {
	case "up":
		if err := m.up(ctx, files); err != nil {
			logger.WithError(err).Fatal("migration up failed")
		}
		logger.Info("migration up completed")
	case "down":
		if err := m.down(ctx, files, *steps); err != nil {
			logger.WithError(err).Fatal("migration down failed")
		}
		logger.Info("migration down completed")
	case "status":
		if err := m.status(ctx, files); err != nil {
			logger.WithError(err).Fatal("failed to read migration status")
		}
	default:
		logger.Fatalf("unknown mode: %s", *mode)
	}
}

func ensureSchemaMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func loadMigrationFiles(dir string, logger *logrus.Logger) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		lower := strings.ToLower(name)
		if e.IsDir() || !strings.HasSuffix(lower, ".sql") {
			continue
		}

		kind := "up"
		if strings.HasSuffix(lower, ".down.sql") {
			kind = "down"
		}

		version, migName, err := parseVersionAndName(name)
		if err != nil {
			logger.WithField("file", name).Warn("skipping migration without version prefix")
			continue
		}

		files = append(files, migrationFile{
			version: version,
			name:    migName,
			path:    filepath.Join(dir, name),
			kind:    kind,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// parseVersionAndName splits "001_create_actions.up.sql" into 1 and "create_actions"
func parseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", errors.New("invalid filename")
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid version: %w", err)
	}
	name := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(parts[1], ".sql"), ".up"), ".down")
	return version, name, nil
}

type migrator struct {
	db  *sql.DB
	log *logrus.Logger
}

func (m *migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// run executes a migration file and records the outcome in one transaction
func (m *migrator) run(ctx context.Context, f migrationFile, record string, args ...interface{}) error {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed executing %s: %w", f.path, err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *migrator) up(ctx context.Context, files []migrationFile) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.kind != "up" || applied[f.version] {
			continue
		}
		m.log.WithFields(logrus.Fields{"version": f.version, "name": f.name}).Info("applying migration")
		if err := m.run(ctx, f, "INSERT INTO schema_migrations(version, name) VALUES($1, $2)", f.version, f.name); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) down(ctx context.Context, files []migrationFile, steps int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	var downs []migrationFile
	for _, f := range files {
		if f.kind == "down" && applied[f.version] {
			downs = append(downs, f)
		}
	}
	sort.Slice(downs, func(i, j int) bool { return downs[i].version > downs[j].version })
	if steps > 0 && steps < len(downs) {
		downs = downs[:steps]
	}

	for _, f := range downs {
		m.log.WithFields(logrus.Fields{"version": f.version, "name": f.name}).Info("reverting migration")
		if err := m.run(ctx, f, "DELETE FROM schema_migrations WHERE version = $1", f.version); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) status(ctx context.Context, files []migrationFile) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.kind != "up" {
			continue
		}
		m.log.WithFields(logrus.Fields{
			"version": f.version,
			"name":    f.name,
			"applied": applied[f.version],
		}).Info("migration")
	}
	return nil
}
