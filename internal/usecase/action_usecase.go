package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/policy"
	"github.com/girrex/suivi/internal/ports"
)

// CreateActionRequest represents the request to create an action
type CreateActionRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      domain.ActionCategory `json:"category"`
	Priority      domain.ActionPriority `json:"priority"`
	ResponsibleID string                `json:"responsible_id"`
	DueDate       *time.Time            `json:"due_date,omitempty"`
	ParentID      *string               `json:"parent_id,omitempty"`
	Scopes        []string              `json:"scopes,omitempty"`
	Source        *domain.SourceRef     `json:"source,omitempty"`
	Actor         domain.Actor          `json:"-"`
}

// UpdateProgressRequest represents a manual progress edit
type UpdateProgressRequest struct {
	ActionID string               `json:"-"`
	Progress int                  `json:"progress"`
	Status   *domain.ActionStatus `json:"status,omitempty"`
	Actor    domain.Actor         `json:"-"`
}

// CloseResult is the outcome of a closure cascade
type CloseResult struct {
	Action *domain.Action   `json:"action"`
	Closed []*domain.Action `json:"closed"`
	// Logged counts the history entries written, one per action that was below 100
	Logged int `json:"logged"`
}

// ActionUseCase handles action lifecycle business logic
type ActionUseCase struct {
	uow       ports.UnitOfWork
	numbering *NumberingService
	events    notifier
	log       logger.Logger
}

// NewActionUseCase creates a new action use case
func NewActionUseCase(
	uow ports.UnitOfWork,
	numbering *NumberingService,
	eventPublisher ports.EventPublisher,
	log logger.Logger,
) *ActionUseCase {
	if numbering == nil {
		numbering = NewNumberingService(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ActionUseCase{
		uow:       uow,
		numbering: numbering,
		events:    notifier{publisher: eventPublisher, log: log},
		log:       log,
	}
}

func normalizeScopes(scopes []string) []string {
	var out []string
	seen := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// CreateAction creates a numbered action, optionally under a parent
func (uc *ActionUseCase) CreateAction(ctx context.Context, req CreateActionRequest) (*domain.Action, error) {
	if req.Actor.AgentID == "" {
		return nil, domain.Forbidden("anonymous actor")
	}
	if req.Category == "" {
		req.Category = domain.CategoryGeneric
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if req.ResponsibleID == "" {
		req.ResponsibleID = req.Actor.AgentID
	}

	action := domain.NewAction(req.Title, req.Description, req.Category, req.Priority, req.ResponsibleID, req.Actor.AgentID)
	action.DueDate = req.DueDate
	action.Scopes = normalizeScopes(req.Scopes)
	action.Source = req.Source
	if err := action.IsValid(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var parents []*domain.Action
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		if req.ParentID != nil {
			parent, err := tx.Actions().FindByID(ctx, *req.ParentID)
			if errors.Is(err, domain.ErrActionNotFound) {
				return domain.ErrParentNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to load parent: %w", err)
			}
			if err := authorize(req.Actor, parent, policy.OpUpdate); err != nil {
				return err
			}
			if parent.Status.IsClosed() {
				return domain.ErrActionClosed
			}
			action.AttachTo(parent)
		}

		number, err := uc.numbering.Next(ctx, tx, action.Category, action.ScopeCode())
		if err != nil {
			return err
		}
		action.Number = number

		if err := tx.Actions().Create(ctx, action); err != nil {
			return fmt.Errorf("failed to create action: %w", err)
		}
		if err := tx.History().Append(ctx, createdEntry(action, req.Actor.AgentID)); err != nil {
			return fmt.Errorf("failed to log creation: %w", err)
		}

		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.events.action(ctx, ports.EventTypeActionCreated, action, req.Actor.AgentID, nil)
	uc.events.propagated(ctx, parents)

	return action, nil
}

func createdEntry(action *domain.Action, authorID string) *domain.HistoryEntry {
	details := map[string]interface{}{
		"number":         action.Number,
		"responsible_id": action.ResponsibleID,
	}
	if action.ParentID != nil {
		details["parent_id"] = *action.ParentID
	}
	return domain.NewHistoryEntry(action.ID, domain.HistoryCreated, authorID, details)
}

func (uc *ActionUseCase) load(ctx context.Context, store ports.Store, actionID string) (*domain.Action, error) {
	if actionID == "" {
		return nil, fmt.Errorf("action ID is required: %w", domain.ErrActionNotFound)
	}
	action, err := store.Actions().FindByID(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return action, nil
}

func authorize(actor domain.Actor, action *domain.Action, op policy.Operation) error {
	return policy.Evaluate(actor, policy.Resource{Action: action, Root: action}, op).Err()
}

// GetAction retrieves an action by ID
func (uc *ActionUseCase) GetAction(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error) {
	action, err := uc.load(ctx, uc.uow, actionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, action, policy.OpView); err != nil {
		return nil, err
	}
	return action, nil
}

// ListActions retrieves actions based on filter criteria
func (uc *ActionUseCase) ListActions(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	actions, err := uc.uow.Actions().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list actions: %w", err)
	}

	count, err := uc.uow.Actions().Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count actions: %w", err)
	}

	return actions, count, nil
}

// UpdateProgress applies a manual progress edit on a leaf action and propagates it
func (uc *ActionUseCase) UpdateProgress(ctx context.Context, req UpdateProgressRequest) (*domain.Action, error) {
	var (
		action  *domain.Action
		parents []*domain.Action
		moved   bool
	)
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		action, err = uc.load(ctx, tx, req.ActionID)
		if err != nil {
			return err
		}
		if err := authorize(req.Actor, action, policy.OpUpdate); err != nil {
			return err
		}

		total, _, err := tx.Actions().CountChildren(ctx, action.ID)
		if err != nil {
			return fmt.Errorf("failed to count children: %w", err)
		}
		if total > 0 {
			return domain.ErrParentProgressManaged
		}

		t, err := action.SetProgress(req.Progress, req.Status)
		if err != nil {
			return err
		}
		if !t.Changed() {
			return nil
		}
		moved = true

		if err := tx.Actions().Update(ctx, action); err != nil {
			return fmt.Errorf("failed to update action: %w", err)
		}
		if err := tx.History().Append(ctx, domain.NewTransitionEntry(action.ID, req.Actor.AgentID, t)); err != nil {
			return fmt.Errorf("failed to log progress: %w", err)
		}

		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved {
		uc.events.action(ctx, ports.EventTypeActionUpdated, action, req.Actor.AgentID, nil)
		uc.events.propagated(ctx, parents)
	}
	return action, nil
}

// AddComment appends a comment to the action history
func (uc *ActionUseCase) AddComment(ctx context.Context, actionID, body string, actor domain.Actor) (*domain.HistoryEntry, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyComment
	}

	action, err := uc.load(ctx, uc.uow, actionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, action, policy.OpComment); err != nil {
		return nil, err
	}

	entry := domain.NewCommentEntry(action.ID, actor.AgentID, body)
	if err := uc.uow.History().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	uc.events.action(ctx, ports.EventTypeCommentAdded, action, actor.AgentID, map[string]interface{}{"comment_id": entry.ID})
	return entry, nil
}

// GetHistory lists the history of an action, newest first
func (uc *ActionUseCase) GetHistory(ctx context.Context, actionID string, limit int, actor domain.Actor) ([]*domain.HistoryEntry, error) {
	if _, err := uc.GetAction(ctx, actionID, actor); err != nil {
		return nil, err
	}
	entries, err := uc.uow.History().ListByAction(ctx, actionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return entries, nil
}

// GetChildren lists the direct children of an action
func (uc *ActionUseCase) GetChildren(ctx context.Context, actionID string, actor domain.Actor) ([]*domain.Action, error) {
	if _, err := uc.GetAction(ctx, actionID, actor); err != nil {
		return nil, err
	}
	children, err := uc.uow.Actions().Children(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	return children, nil
}

// Acknowledge records the responsible party's acknowledgement of a leaf action,
// which validates it directly
func (uc *ActionUseCase) Acknowledge(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error) {
	var (
		action  *domain.Action
		parents []*domain.Action
	)
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		action, err = uc.load(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if err := authorize(actor, action, policy.OpAcknowledge); err != nil {
			return err
		}

		total, _, err := tx.Actions().CountChildren(ctx, action.ID)
		if err != nil {
			return fmt.Errorf("failed to count children: %w", err)
		}
		if total > 0 {
			return domain.ErrHasChildren
		}

		acknowledged, err := tx.Acknowledgements().Exists(ctx, action.ID, actor.AgentID)
		if err != nil {
			return fmt.Errorf("failed to check acknowledgement: %w", err)
		}
		if acknowledged {
			return domain.ErrAlreadyAcknowledged
		}
		if err := tx.Acknowledgements().Create(ctx, domain.NewAcknowledgement(action.ID, actor.AgentID)); err != nil {
			return err
		}

		t, err := action.Acknowledge()
		if err != nil {
			return err
		}
		if err := tx.Actions().Update(ctx, action); err != nil {
			return fmt.Errorf("failed to update action: %w", err)
		}
		entry := domain.NewHistoryEntry(action.ID, domain.HistoryAcknowledged, actor.AgentID, t.Details())
		if err := tx.History().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to log acknowledgement: %w", err)
		}

		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.events.action(ctx, ports.EventTypeActionAcknowledged, action, actor.AgentID, nil)
	uc.events.propagated(ctx, parents)
	return action, nil
}

// Validate is the explicit sign-off of an action pending validation
func (uc *ActionUseCase) Validate(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error) {
	var (
		action  *domain.Action
		parents []*domain.Action
	)
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		action, err = uc.load(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if err := authorize(actor, action, policy.OpValidate); err != nil {
			return err
		}

		t, err := action.ConfirmValidation()
		if err != nil {
			return err
		}
		if err := tx.Actions().Update(ctx, action); err != nil {
			return fmt.Errorf("failed to update action: %w", err)
		}
		if err := tx.History().Append(ctx, domain.NewTransitionEntry(action.ID, actor.AgentID, t)); err != nil {
			return fmt.Errorf("failed to log validation: %w", err)
		}

		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.events.action(ctx, ports.EventTypeActionValidated, action, actor.AgentID, nil)
	uc.events.propagated(ctx, parents)
	return action, nil
}

// Archive archives validated actions. Either every action is archived or none is.
func (uc *ActionUseCase) Archive(ctx context.Context, actionIDs []string, actor domain.Actor) ([]*domain.Action, error) {
	var ids []string
	seen := make(map[string]bool, len(actionIDs))
	for _, id := range actionIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, domain.ErrNoActionIDs
	}

	var archived []*domain.Action
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		for _, id := range ids {
			action, err := uc.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := authorize(actor, action, policy.OpArchive); err != nil {
				return err
			}

			t, err := action.Archive()
			if err != nil {
				return fmt.Errorf("cannot archive %s: %w", action.Number, err)
			}
			if err := tx.Actions().Update(ctx, action); err != nil {
				return fmt.Errorf("failed to update action: %w", err)
			}
			entry := domain.NewHistoryEntry(action.ID, domain.HistoryArchived, actor.AgentID, t.Details())
			if err := tx.History().Append(ctx, entry); err != nil {
				return fmt.Errorf("failed to log archival: %w", err)
			}
			archived = append(archived, action)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range archived {
		uc.events.action(ctx, ports.EventTypeActionArchived, a, actor.AgentID, nil)
	}
	return archived, nil
}

// CloseCascade force-closes an action and all its descendants, then propagates above it.
// Only the responsible party of the top-level ancestor or a national role may do it.
func (uc *ActionUseCase) CloseCascade(ctx context.Context, actionID string, actor domain.Actor) (*CloseResult, error) {
	result := &CloseResult{}
	var parents []*domain.Action

	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		action, err := uc.load(ctx, tx, actionID)
		if err != nil {
			return err
		}
		root, err := rootOf(ctx, tx, action)
		if err != nil {
			return err
		}
		if err := policy.Evaluate(actor, policy.Resource{Action: action, Root: root}, policy.OpClose).Err(); err != nil {
			return err
		}
		result.Action = action

		queue := []*domain.Action{action}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			t, logWorthy := current.ForceClose()
			if t.Changed() {
				if err := tx.Actions().Update(ctx, current); err != nil {
					return fmt.Errorf("failed to close %s: %w", current.ID, err)
				}
				result.Closed = append(result.Closed, current)
			}
			if logWorthy {
				entry := domain.NewHistoryEntry(current.ID, domain.HistoryClosed, actor.AgentID, t.Details())
				if err := tx.History().Append(ctx, entry); err != nil {
					return fmt.Errorf("failed to log closure of %s: %w", current.ID, err)
				}
				result.Logged++
			}

			children, err := tx.Actions().Children(ctx, current.ID)
			if err != nil {
				return fmt.Errorf("failed to get children of %s: %w", current.ID, err)
			}
			queue = append(queue, children...)
		}

		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, a := range result.Closed {
		uc.events.action(ctx, ports.EventTypeActionClosed, a, actor.AgentID, nil)
	}
	uc.events.propagated(ctx, parents)

	uc.log.Info(ctx, "action closed with descendants", map[string]interface{}{
		"action_id": result.Action.ID,
		"closed":    len(result.Closed),
		"logged":    result.Logged,
		"actor_id":  actor.AgentID,
	})
	return result, nil
}

// DeleteAction removes an action with its descendants, then propagates to its parent
func (uc *ActionUseCase) DeleteAction(ctx context.Context, actionID string, actor domain.Actor) error {
	var (
		action  *domain.Action
		parents []*domain.Action
	)
	err := uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		action, err = uc.load(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if err := authorize(actor, action, policy.OpDelete); err != nil {
			return err
		}
		if err := tx.Actions().Delete(ctx, action.ID); err != nil {
			return fmt.Errorf("failed to delete action: %w", err)
		}
		parents, err = propagate(ctx, tx, action.ParentID)
		return err
	})
	if err != nil {
		return err
	}

	uc.events.action(ctx, ports.EventTypeActionDeleted, action, actor.AgentID, nil)
	uc.events.propagated(ctx, parents)
	return nil
}

// Stats counts the actions of a responsible agent by status. An empty agent counts all.
func (uc *ActionUseCase) Stats(ctx context.Context, responsibleID string) (map[domain.ActionStatus]int, error) {
	statuses := []domain.ActionStatus{
		domain.StatusTodo,
		domain.StatusInProgress,
		domain.StatusPendingValidation,
		domain.StatusValidated,
		domain.StatusArchived,
	}

	stats := make(map[domain.ActionStatus]int, len(statuses))
	for _, status := range statuses {
		status := status
		filter := domain.ActionFilter{Status: &status}
		if responsibleID != "" {
			filter.ResponsibleID = &responsibleID
		}
		count, err := uc.uow.Actions().Count(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s actions: %w", status, err)
		}
		stats[status] = count
	}
	return stats, nil
}
