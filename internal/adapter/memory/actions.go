package memory

import (
	"context"
	"fmt"

	"github.com/girrex/suivi/internal/domain"
)

type actionRepo struct{ v *view }

func (r *actionRepo) Create(ctx context.Context, action *domain.Action) error {
	defer r.v.lock()()
	st := r.v.st()

	if _, exists := st.actions[action.ID]; exists {
		return fmt.Errorf("action %s already exists", action.ID)
	}
	if action.Number != "" {
		for _, other := range st.actions {
			if other.Number == action.Number {
				return &domain.DomainError{Kind: domain.KindConflict, Message: "duplicate action number " + action.Number}
			}
		}
	}
	st.seq++
	st.inserted[action.ID] = st.seq
	st.actions[action.ID] = cloneAction(*action)
	return nil
}

func (r *actionRepo) FindByID(ctx context.Context, id string) (*domain.Action, error) {
	defer r.v.lock()()
	a, ok := r.v.st().actions[id]
	if !ok {
		return nil, domain.ErrActionNotFound
	}
	a = cloneAction(a)
	return &a, nil
}

func (r *actionRepo) Update(ctx context.Context, action *domain.Action) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.actions[action.ID]; !ok {
		return domain.ErrActionNotFound
	}
	st.actions[action.ID] = cloneAction(*action)
	return nil
}

func matches(a *domain.Action, f domain.ActionFilter) bool {
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Category != nil && a.Category != *f.Category {
		return false
	}
	if f.Priority != nil && a.Priority != *f.Priority {
		return false
	}
	if f.ResponsibleID != nil && a.ResponsibleID != *f.ResponsibleID {
		return false
	}
	if f.ParentID != nil && (a.ParentID == nil || *a.ParentID != *f.ParentID) {
		return false
	}
	if f.RootsOnly && a.ParentID != nil {
		return false
	}
	if f.Scope != nil {
		found := false
		for _, s := range a.Scopes {
			if s == *f.Scope {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SourceKind != nil && (a.Source == nil || a.Source.Kind != *f.SourceKind) {
		return false
	}
	if f.SourceID != nil && (a.Source == nil || a.Source.ID != *f.SourceID) {
		return false
	}
	return true
}

func (r *actionRepo) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	defer r.v.lock()()
	all := r.v.sorted(func(a *domain.Action) bool { return matches(a, filter) }, true)

	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return all[start:end], nil
}

func (r *actionRepo) Count(ctx context.Context, filter domain.ActionFilter) (int, error) {
	defer r.v.lock()()
	count := 0
	for _, a := range r.v.st().actions {
		a := a
		if matches(&a, filter) {
			count++
		}
	}
	return count, nil
}

func (r *actionRepo) Children(ctx context.Context, parentID string) ([]*domain.Action, error) {
	defer r.v.lock()()
	return r.v.sorted(func(a *domain.Action) bool {
		return a.ParentID != nil && *a.ParentID == parentID
	}, false), nil
}

func (r *actionRepo) CountChildren(ctx context.Context, parentID string) (int, int, error) {
	defer r.v.lock()()
	total, validated := 0, 0
	for _, a := range r.v.st().actions {
		if a.ParentID == nil || *a.ParentID != parentID {
			continue
		}
		total++
		if a.Status.IsClosed() {
			validated++
		}
	}
	return total, validated, nil
}

func (r *actionRepo) Delete(ctx context.Context, id string) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.actions[id]; !ok {
		return domain.ErrActionNotFound
	}

	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for childID, a := range st.actions {
			if a.ParentID != nil && doomed[*a.ParentID] && !doomed[childID] {
				doomed[childID] = true
				grew = true
			}
		}
	}

	for actionID := range doomed {
		delete(st.actions, actionID)
		delete(st.inserted, actionID)
	}
	kept := st.history[:0]
	for _, e := range st.history {
		if !doomed[e.ActionID] {
			kept = append(kept, e)
		}
	}
	st.history = kept
	for key, ack := range st.acks {
		if doomed[ack.ActionID] {
			delete(st.acks, key)
		}
	}
	return nil
}
