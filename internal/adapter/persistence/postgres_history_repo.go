package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

// PostgresHistoryRepository implements HistoryRepository using PostgreSQL
type PostgresHistoryRepository struct {
	db DBTX
}

// NewPostgresHistoryRepository creates a new PostgreSQL history repository
func NewPostgresHistoryRepository(db DBTX) ports.HistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Append saves a new entry
func (r *PostgresHistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `
		INSERT INTO action_history (id, action_id, kind, author_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal history details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActionID,
		string(entry.Kind),
		entry.AuthorID,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// ListByAction retrieves the entries of an action, newest first
func (r *PostgresHistoryRepository) ListByAction(ctx context.Context, actionID string, limit int) ([]*domain.HistoryEntry, error) {
	query := `
		SELECT id, action_id, kind, author_id, details, created_at
		FROM action_history
		WHERE action_id = $1
		ORDER BY seq DESC
	`
	args := []interface{}{actionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var details []byte

		if err := rows.Scan(&entry.ID, &entry.ActionID, &entry.Kind, &entry.AuthorID, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal history details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// PostgresAcknowledgementRepository implements AcknowledgementRepository using PostgreSQL
type PostgresAcknowledgementRepository struct {
	db DBTX
}

// NewPostgresAcknowledgementRepository creates a new PostgreSQL acknowledgement repository
func NewPostgresAcknowledgementRepository(db DBTX) ports.AcknowledgementRepository {
	return &PostgresAcknowledgementRepository{db: db}
}

// Create saves an acknowledgement
func (r *PostgresAcknowledgementRepository) Create(ctx context.Context, ack *domain.Acknowledgement) error {
	query := `INSERT INTO action_acknowledgements (action_id, agent_id, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, ack.ActionID, ack.AgentID, ack.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrAlreadyAcknowledged
		}
		return fmt.Errorf("failed to create acknowledgement: %w", err)
	}

	return nil
}

// Exists reports whether agentID acknowledged actionID
func (r *PostgresAcknowledgementRepository) Exists(ctx context.Context, actionID, agentID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM action_acknowledgements WHERE action_id = $1 AND agent_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, actionID, agentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check acknowledgement: %w", err)
	}

	return exists, nil
}
