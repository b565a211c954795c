package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

// NumberingService hands out human-readable action numbers such as "DOC-LFBO-2026-0007"
type NumberingService struct {
	now func() time.Time
}

// NewNumberingService creates a numbering service. A nil clock uses time.Now.
func NewNumberingService(now func() time.Time) *NumberingService {
	if now == nil {
		now = time.Now
	}
	return &NumberingService{now: now}
}

// Next reserves the next number for category and scope. It must run in the same
// transaction as the insert of the numbered action.
func (s *NumberingService) Next(ctx context.Context, store ports.Store, category domain.ActionCategory, scopeCode string) (string, error) {
	key := domain.NewSequenceKey(category, scopeCode, s.now().Year())
	seq, err := store.Sequences().Next(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to reserve sequence for %s: %w", key.Base(), err)
	}
	return key.Format(seq), nil
}
