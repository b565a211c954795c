// Package memory provides in-process implementations of the persistence and directory
// ports. It backs the development mode and the use case tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

type state struct {
	actions  map[string]domain.Action
	seq      int
	inserted map[string]int
	history  []domain.HistoryEntry
	acks     map[string]domain.Acknowledgement
	reserved map[domain.SequenceKey]int
}

func newState() *state {
	return &state{
		actions:  make(map[string]domain.Action),
		inserted: make(map[string]int),
		acks:     make(map[string]domain.Acknowledgement),
		reserved: make(map[domain.SequenceKey]int),
	}
}

func (s *state) clone() *state {
	c := &state{
		actions:  make(map[string]domain.Action, len(s.actions)),
		seq:      s.seq,
		inserted: make(map[string]int, len(s.inserted)),
		history:  append([]domain.HistoryEntry(nil), s.history...),
		acks:     make(map[string]domain.Acknowledgement, len(s.acks)),
		reserved: make(map[domain.SequenceKey]int, len(s.reserved)),
	}
	for k, v := range s.actions {
		c.actions[k] = v
	}
	for k, v := range s.inserted {
		c.inserted[k] = v
	}
	for k, v := range s.acks {
		c.acks[k] = v
	}
	for k, v := range s.reserved {
		c.reserved[k] = v
	}
	return c
}

// Store is an in-memory ports.UnitOfWork. Transactions run on a copy of the state
// which replaces the live one only when the function succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) current() *state { return s.st }

func (s *Store) view() *view {
	return &view{st: s.current, lock: s.lock}
}

func (s *Store) Actions() ports.ActionRepository  { return s.view().Actions() }
func (s *Store) History() ports.HistoryRepository { return s.view().History() }
func (s *Store) Acknowledgements() ports.AcknowledgementRepository {
	return s.view().Acknowledgements()
}
func (s *Store) Sequences() ports.SequenceStore { return s.view().Sequences() }

// WithinTx runs fn against a private copy of the state and publishes it on success
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	tx := &view{
		st:   func() *state { return working },
		lock: func() func() { return func() {} },
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = working
	return nil
}

type view struct {
	st   func() *state
	lock func() func()
}

func (v *view) Actions() ports.ActionRepository                   { return &actionRepo{v} }
func (v *view) History() ports.HistoryRepository                  { return &historyRepo{v} }
func (v *view) Acknowledgements() ports.AcknowledgementRepository { return &ackRepo{v} }
func (v *view) Sequences() ports.SequenceStore                    { return &sequenceStore{v} }

func cloneAction(a domain.Action) domain.Action {
	if a.Scopes != nil {
		a.Scopes = append([]string(nil), a.Scopes...)
	}
	if a.ParentID != nil {
		id := *a.ParentID
		a.ParentID = &id
	}
	if a.DueDate != nil {
		d := *a.DueDate
		a.DueDate = &d
	}
	if a.Source != nil {
		src := *a.Source
		a.Source = &src
	}
	return a
}

func (v *view) sorted(keep func(a *domain.Action) bool, newestFirst bool) []*domain.Action {
	st := v.st()
	var out []*domain.Action
	for _, a := range st.actions {
		a := cloneAction(a)
		if keep(&a) {
			out = append(out, &a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ii, jj := st.inserted[out[i].ID], st.inserted[out[j].ID]
		if newestFirst {
			return ii > jj
		}
		return ii < jj
	})
	return out
}
