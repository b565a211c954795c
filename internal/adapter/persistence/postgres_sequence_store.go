package persistence

import (
	"context"
	"fmt"
	"regexp"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

// PostgresSequenceStore hands out sequences from a counter row per key. The upsert
// locks the row until the surrounding transaction ends, so concurrent creators wait
// for each other instead of reading the same maximum.
type PostgresSequenceStore struct {
	db DBTX
}

// NewPostgresSequenceStore creates a new PostgreSQL sequence store
func NewPostgresSequenceStore(db DBTX) ports.SequenceStore {
	return &PostgresSequenceStore{db: db}
}

// nextSequenceQuery seeds a new counter from the highest number already in use. The
// offset is cast so Postgres picks substring(text FROM int), not the regex form.
const nextSequenceQuery = `
	INSERT INTO action_sequences (prefix, scope_code, year, last_value)
	VALUES ($1, $2, $3, (
		SELECT COALESCE(MAX(CAST(substring(number FROM $5::int) AS INTEGER)), 0) + 1
		FROM actions
		WHERE number ~ $4
	))
	ON CONFLICT (prefix, scope_code, year)
	DO UPDATE SET last_value = action_sequences.last_value + 1
	RETURNING last_value
`

// Next reserves and returns the next sequence for key
func (s *PostgresSequenceStore) Next(ctx context.Context, key domain.SequenceKey) (int, error) {
	base := key.Base()
	pattern := "^" + regexp.QuoteMeta(base) + "[0-9]+$"

	var next int
	err := s.db.QueryRowContext(ctx, nextSequenceQuery,
		key.Prefix,
		key.ScopeCode,
		key.Year,
		pattern,
		len(base)+1,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve sequence: %w", err)
	}

	return next, nil
}
