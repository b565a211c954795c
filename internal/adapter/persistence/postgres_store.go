package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/girrex/suivi/internal/ports"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements UnitOfWork using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Actions() ports.ActionRepository { return NewPostgresActionRepository(s.db) }
func (s *PostgresStore) History() ports.HistoryRepository {
	return NewPostgresHistoryRepository(s.db)
}
func (s *PostgresStore) Acknowledgements() ports.AcknowledgementRepository {
	return NewPostgresAcknowledgementRepository(s.db)
}
func (s *PostgresStore) Sequences() ports.SequenceStore { return NewPostgresSequenceStore(s.db) }

// WithinTx runs fn in a transaction, committing only if fn succeeds
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (s txStore) Actions() ports.ActionRepository  { return NewPostgresActionRepository(s.tx) }
func (s txStore) History() ports.HistoryRepository { return NewPostgresHistoryRepository(s.tx) }
func (s txStore) Sequences() ports.SequenceStore   { return NewPostgresSequenceStore(s.tx) }
func (s txStore) Acknowledgements() ports.AcknowledgementRepository {
	return NewPostgresAcknowledgementRepository(s.tx)
}
