package ports

import (
	"context"

	"github.com/girrex/suivi/internal/domain"
)

// ActionRepository defines the interface for action persistence
type ActionRepository interface {
	// Create saves a new action
	Create(ctx context.Context, action *domain.Action) error

	// FindByID retrieves an action by its ID
	FindByID(ctx context.Context, id string) (*domain.Action, error)

	// Update updates an existing action
	Update(ctx context.Context, action *domain.Action) error

	// List retrieves actions based on filter criteria
	List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error)

	// Count returns the number of actions matching the filter
	Count(ctx context.Context, filter domain.ActionFilter) (int, error)

	// Children retrieves the direct children of an action
	Children(ctx context.Context, parentID string) ([]*domain.Action, error)

	// CountChildren returns how many direct children an action has and how many of
	// them are validated or archived
	CountChildren(ctx context.Context, parentID string) (total, validated int, err error)

	// Delete removes an action with its descendants, history and acknowledgements
	Delete(ctx context.Context, id string) error
}

// HistoryRepository defines the interface for the append-only action history
type HistoryRepository interface {
	// Append saves a new entry
	Append(ctx context.Context, entry *domain.HistoryEntry) error

	// ListByAction retrieves entries of an action, newest first. limit <= 0 means all.
	ListByAction(ctx context.Context, actionID string, limit int) ([]*domain.HistoryEntry, error)
}

// AcknowledgementRepository defines the interface for acknowledgement persistence
type AcknowledgementRepository interface {
	// Create saves an acknowledgement, returning domain.ErrAlreadyAcknowledged on duplicates
	Create(ctx context.Context, ack *domain.Acknowledgement) error

	// Exists reports whether agentID already acknowledged actionID
	Exists(ctx context.Context, actionID, agentID string) (bool, error)
}

// SequenceStore hands out numbering sequences
type SequenceStore interface {
	// Next reserves and returns the next sequence for key
	Next(ctx context.Context, key domain.SequenceKey) (int, error)
}

// Store groups the repositories that share one connection or transaction
type Store interface {
	Actions() ActionRepository
	History() HistoryRepository
	Acknowledgements() AcknowledgementRepository
	Sequences() SequenceStore
}

// UnitOfWork is a Store able to run a function atomically. If fn returns an error
// nothing it wrote is kept.
type UnitOfWork interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
