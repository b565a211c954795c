package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/adapter/memory"
	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
	"github.com/girrex/suivi/internal/registry"
)

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var (
	national = domain.Actor{AgentID: "qse", Roles: []string{domain.RoleNationalQSE}}
	alice    = domain.Actor{AgentID: "alice"}
	bob      = domain.Actor{AgentID: "bob"}
)

type fixture struct {
	store     *memory.Store
	directory *memory.Directory
	publisher *MockEventPublisher
	actions   *ActionUseCase
	diffusion *DiffusionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	directory := memory.NewDirectory()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	clock := func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	numbering := NewNumberingService(clock)
	log := logger.NewNop()

	return &fixture{
		store:     store,
		directory: directory,
		publisher: publisher,
		actions:   NewActionUseCase(store, numbering, publisher, log),
		diffusion: NewDiffusionUseCase(store, directory, registry.Default(), numbering, publisher, log),
	}
}

func (f *fixture) create(t *testing.T, title string, responsible string, parent *domain.Action) *domain.Action {
	t.Helper()
	req := CreateActionRequest{
		Title:         title,
		ResponsibleID: responsible,
		Actor:         national,
	}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	action, err := f.actions.CreateAction(context.Background(), req)
	require.NoError(t, err)
	return action
}

func (f *fixture) reload(t *testing.T, id string) *domain.Action {
	t.Helper()
	action, err := f.store.Actions().FindByID(context.Background(), id)
	require.NoError(t, err)
	return action
}

func (f *fixture) historyKinds(t *testing.T, id string) []domain.HistoryKind {
	t.Helper()
	entries, err := f.store.History().ListByAction(context.Background(), id, 0)
	require.NoError(t, err)
	kinds := make([]domain.HistoryKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
