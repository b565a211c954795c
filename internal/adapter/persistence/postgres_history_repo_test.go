package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/domain"
)

func TestPostgresHistoryRepository_ListByAction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHistoryRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "action_id", "kind", "author_id", "details", "created_at"}).
		AddRow("h-2", "a-1", "COMMENT", "bob", []byte(`{"body":"done"}`), now).
		AddRow("h-1", "a-1", "CREATED", "qse", []byte(`{}`), now)
	mock.ExpectQuery(`FROM action_history\s+WHERE action_id = \$1\s+ORDER BY seq DESC LIMIT \$2`).
		WithArgs("a-1", 5).
		WillReturnRows(rows)

	entries, err := repo.ListByAction(context.Background(), "a-1", 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryComment, entries[0].Kind)
	assert.Equal(t, "done", entries[0].Details["body"])
}

func TestPostgresHistoryRepository_Append(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHistoryRepository(db)
	entry := domain.NewCommentEntry("a-1", "bob", "done")

	mock.ExpectExec("INSERT INTO action_history").
		WithArgs(entry.ID, "a-1", "COMMENT", "bob", []byte(`{"body":"done"}`), entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Append(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAcknowledgementRepository_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresAcknowledgementRepository(db)

	mock.ExpectExec("INSERT INTO action_acknowledgements").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), domain.NewAcknowledgement("a-1", "bob"))
	assert.ErrorIs(t, err, domain.ErrAlreadyAcknowledged)
}

func TestPostgresSequenceStore_Next(t *testing.T) {
	db, mock := newMock(t)
	store := NewPostgresSequenceStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("substring(number FROM $5::int)")).
		WithArgs("GEN", "NAT", 2026, `^GEN-NAT-2026-[0-9]+$`, 14).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(8))

	next, err := store.Next(context.Background(), domain.NewSequenceKey(domain.CategoryGeneric, "", 2026))
	require.NoError(t, err)
	assert.Equal(t, 8, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}
