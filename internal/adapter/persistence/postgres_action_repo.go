package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

const actionColumns = `id, number, title, description, category, responsible_id, due_date, priority, status,
		progress, parent_id, scopes, source_kind, source_id, source_label, created_by, created_at, updated_at`

// PostgresActionRepository implements ActionRepository using PostgreSQL
type PostgresActionRepository struct {
	db DBTX
}

// NewPostgresActionRepository creates a new PostgreSQL action repository
func NewPostgresActionRepository(db DBTX) ports.ActionRepository {
	return &PostgresActionRepository{db: db}
}

func sourceColumns(src *domain.SourceRef) (kind, id, label sql.NullString) {
	if src == nil {
		return
	}
	return sql.NullString{String: string(src.Kind), Valid: true},
		sql.NullString{String: src.ID, Valid: true},
		sql.NullString{String: src.Label, Valid: src.Label != ""}
}

func scopesArray(scopes []string) interface{} {
	if scopes == nil {
		scopes = []string{}
	}
	return pq.Array(scopes)
}

// Create saves a new action
func (r *PostgresActionRepository) Create(ctx context.Context, action *domain.Action) error {
	query := `
		INSERT INTO actions (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	kind, sourceID, label := sourceColumns(action.Source)
	_, err := r.db.ExecContext(ctx, query,
		action.ID,
		action.Number,
		action.Title,
		action.Description,
		string(action.Category),
		action.ResponsibleID,
		action.DueDate,
		string(action.Priority),
		string(action.Status),
		action.Progress,
		action.ParentID,
		scopesArray(action.Scopes),
		kind,
		sourceID,
		label,
		action.CreatedBy,
		action.CreatedAt,
		action.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &domain.DomainError{Kind: domain.KindConflict, Message: "duplicate action number " + action.Number}
		}
		return fmt.Errorf("failed to create action: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAction(row rowScanner) (*domain.Action, error) {
	var (
		action                domain.Action
		dueDate               sql.NullTime
		parentID              sql.NullString
		kind, sourceID, label sql.NullString
		scopes                pq.StringArray
	)

	err := row.Scan(
		&action.ID,
		&action.Number,
		&action.Title,
		&action.Description,
		&action.Category,
		&action.ResponsibleID,
		&dueDate,
		&action.Priority,
		&action.Status,
		&action.Progress,
		&parentID,
		&scopes,
		&kind,
		&sourceID,
		&label,
		&action.CreatedBy,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		action.DueDate = &dueDate.Time
	}
	action.ParentID = mapStringPtr(parentID)
	if len(scopes) > 0 {
		action.Scopes = []string(scopes)
	}
	if kind.Valid {
		action.Source = &domain.SourceRef{Kind: domain.SourceKind(kind.String), ID: sourceID.String, Label: label.String}
	}

	return &action, nil
}

// FindByID retrieves an action by its ID
func (r *PostgresActionRepository) FindByID(ctx context.Context, id string) (*domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1`

	action, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrActionNotFound
		}
		return nil, fmt.Errorf("failed to find action: %w", err)
	}

	return action, nil
}

// Update updates an existing action
func (r *PostgresActionRepository) Update(ctx context.Context, action *domain.Action) error {
	query := `
		UPDATE actions
		SET title = $2, description = $3, category = $4, responsible_id = $5, due_date = $6,
			priority = $7, status = $8, progress = $9, scopes = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		action.ID,
		action.Title,
		action.Description,
		string(action.Category),
		action.ResponsibleID,
		action.DueDate,
		string(action.Priority),
		string(action.Status),
		action.Progress,
		scopesArray(action.Scopes),
		action.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update action: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrActionNotFound
	}

	return nil
}

// buildWhereClause renders the filter as SQL conditions, numbering placeholders from 1
func buildWhereClause(filter domain.ActionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Category != nil {
		add("category = $%d", string(*filter.Category))
	}
	if filter.Priority != nil {
		add("priority = $%d", string(*filter.Priority))
	}
	if filter.ResponsibleID != nil {
		add("responsible_id = $%d", *filter.ResponsibleID)
	}
	if filter.ParentID != nil {
		add("parent_id = $%d", *filter.ParentID)
	}
	if filter.RootsOnly {
		conditions = append(conditions, "parent_id IS NULL")
	}
	if filter.Scope != nil {
		add("$%d = ANY(scopes)", strings.ToUpper(*filter.Scope))
	}
	if filter.SourceKind != nil {
		add("source_kind = $%d", string(*filter.SourceKind))
	}
	if filter.SourceID != nil {
		add("source_id = $%d", *filter.SourceID)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// List retrieves actions based on filter criteria, newest first
func (r *PostgresActionRepository) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	where, args := buildWhereClause(filter)
	query := `SELECT ` + actionColumns + ` FROM actions WHERE 1=1` + where + ` ORDER BY created_at DESC, number DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *PostgresActionRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Action, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	return actions, nil
}

// Count returns the number of actions matching the filter
func (r *PostgresActionRepository) Count(ctx context.Context, filter domain.ActionFilter) (int, error) {
	where, args := buildWhereClause(filter)
	query := `SELECT COUNT(*) FROM actions WHERE 1=1` + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}

	return count, nil
}

// Children retrieves the direct children of an action in creation order
func (r *PostgresActionRepository) Children(ctx context.Context, parentID string) ([]*domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE parent_id = $1 ORDER BY created_at ASC, number ASC`
	return r.query(ctx, query, parentID)
}

// CountChildren returns the number of direct children and how many of them are closed
func (r *PostgresActionRepository) CountChildren(ctx context.Context, parentID string) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status IN ($2, $3))
		FROM actions
		WHERE parent_id = $1
	`

	var total, validated int
	err := r.db.QueryRowContext(ctx, query, parentID, string(domain.StatusValidated), string(domain.StatusArchived)).
		Scan(&total, &validated)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count children: %w", err)
	}

	return total, validated, nil
}

// Delete removes an action. Descendants, history and acknowledgements go with it
// through ON DELETE CASCADE.
func (r *PostgresActionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete action: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrActionNotFound
	}

	return nil
}

// Helper method to map SQL null types
func mapStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}
