package usecase

import (
	"context"
	"fmt"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

// propagate recomputes parentID from its children, then its own parent, and stops at
// the first ancestor that does not change. It returns the ancestors that changed.
func propagate(ctx context.Context, store ports.Store, parentID *string) ([]*domain.Action, error) {
	var changed []*domain.Action

	for parentID != nil {
		parent, err := store.Actions().FindByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent %s: %w", *parentID, err)
		}

		total, validated, err := store.Actions().CountChildren(ctx, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count children of %s: %w", parent.ID, err)
		}

		t := parent.ApplyAggregate(total, validated)
		if !t.Changed() {
			break
		}

		if err := store.Actions().Update(ctx, parent); err != nil {
			return nil, fmt.Errorf("failed to update parent %s: %w", parent.ID, err)
		}
		if err := store.History().Append(ctx, domain.NewTransitionEntry(parent.ID, domain.SystemAuthor, t)); err != nil {
			return nil, fmt.Errorf("failed to log propagation on %s: %w", parent.ID, err)
		}

		changed = append(changed, parent)
		parentID = parent.ParentID
	}

	return changed, nil
}

// rootOf walks up to the top-level ancestor of action
func rootOf(ctx context.Context, store ports.Store, action *domain.Action) (*domain.Action, error) {
	root := action
	seen := map[string]bool{root.ID: true}
	for root.ParentID != nil {
		parent, err := store.Actions().FindByID(ctx, *root.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestor %s: %w", *root.ParentID, err)
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("cycle in action hierarchy at %s", parent.ID)
		}
		seen[parent.ID] = true
		root = parent
	}
	return root, nil
}
