package memory

import (
	"context"

	"github.com/girrex/suivi/internal/domain"
)

type historyRepo struct{ v *view }

func (r *historyRepo) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	defer r.v.lock()()
	st := r.v.st()
	st.history = append(st.history, *entry)
	return nil
}

func (r *historyRepo) ListByAction(ctx context.Context, actionID string, limit int) ([]*domain.HistoryEntry, error) {
	defer r.v.lock()()
	st := r.v.st()

	var out []*domain.HistoryEntry
	for i := len(st.history) - 1; i >= 0; i-- {
		if st.history[i].ActionID != actionID {
			continue
		}
		e := st.history[i]
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type ackRepo struct{ v *view }

func ackKey(actionID, agentID string) string { return actionID + "|" + agentID }

func (r *ackRepo) Create(ctx context.Context, ack *domain.Acknowledgement) error {
	defer r.v.lock()()
	st := r.v.st()
	key := ackKey(ack.ActionID, ack.AgentID)
	if _, exists := st.acks[key]; exists {
		return domain.ErrAlreadyAcknowledged
	}
	st.acks[key] = *ack
	return nil
}

func (r *ackRepo) Exists(ctx context.Context, actionID, agentID string) (bool, error) {
	defer r.v.lock()()
	_, ok := r.v.st().acks[ackKey(actionID, agentID)]
	return ok, nil
}

// sequenceStore scans existing numbers, and remembers what it handed out so
// numbers reserved but not yet saved are not given twice.
type sequenceStore struct{ v *view }

func (s *sequenceStore) Next(ctx context.Context, key domain.SequenceKey) (int, error) {
	defer s.v.lock()()
	st := s.v.st()

	numbers := make([]string, 0, len(st.actions))
	for _, a := range st.actions {
		numbers = append(numbers, a.Number)
	}
	next := key.NextSequence(numbers)
	if reserved := st.reserved[key]; reserved >= next {
		next = reserved + 1
	}
	st.reserved[key] = next
	return next, nil
}
