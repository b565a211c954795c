package domain

import (
	"testing"
)

func newTestAction() *Action {
	return NewAction("Read updated LOA", "Letter of agreement v3", CategoryDocumentDiffusion, PriorityMedium, "agent-1", "agent-2")
}

func TestNewAction(t *testing.T) {
	action := newTestAction()

	if action.ID == "" {
		t.Error("Expected ID to be generated")
	}
	if action.Status != StatusTodo {
		t.Errorf("Expected status %s, got %s", StatusTodo, action.Status)
	}
	if action.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", action.Progress)
	}
	if action.ParentID != nil {
		t.Errorf("Expected no parent, got %v", *action.ParentID)
	}
	if err := action.IsValid(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestAction_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Action)
		want   error
	}{
		{"empty title", func(a *Action) { a.Title = "" }, ErrEmptyTitle},
		{"no responsible", func(a *Action) { a.ResponsibleID = "" }, ErrEmptyResponsible},
		{"bad category", func(a *Action) { a.Category = "OTHER" }, ErrInvalidCategory},
		{"bad priority", func(a *Action) { a.Priority = "URGENT" }, ErrInvalidPriority},
		{"progress too high", func(a *Action) { a.Progress = 101 }, ErrInvalidProgress},
		{"negative progress", func(a *Action) { a.Progress = -1 }, ErrInvalidProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := newTestAction()
			tt.mutate(action)
			if err := action.IsValid(); err != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAction_SetProgress(t *testing.T) {
	action := newTestAction()

	tr, err := action.SetProgress(40, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.Status != StatusInProgress || action.Progress != 40 {
		t.Errorf("Expected IN_PROGRESS/40, got %s/%d", action.Status, action.Progress)
	}
	if tr.FromStatus != StatusTodo || tr.ToStatus != StatusInProgress {
		t.Errorf("Unexpected transition %+v", tr)
	}

	if _, err := action.SetProgress(100, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.Status != StatusPendingValidation {
		t.Errorf("Expected PENDING_VALIDATION at 100, got %s", action.Status)
	}

	validated := StatusValidated
	if _, err := action.SetProgress(100, &validated); err != ErrInvalidStatus {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}

	if _, err := action.SetProgress(150, nil); err != ErrInvalidProgress {
		t.Errorf("Expected ErrInvalidProgress, got %v", err)
	}
}

func TestAction_SetProgressOnClosedAction(t *testing.T) {
	action := newTestAction()
	action.Status = StatusValidated
	action.Progress = 100

	if _, err := action.SetProgress(50, nil); err != ErrActionClosed {
		t.Errorf("Expected ErrActionClosed, got %v", err)
	}
}

func TestAction_Acknowledge(t *testing.T) {
	action := newTestAction()

	tr, err := action.Acknowledge()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.Status != StatusValidated || action.Progress != 100 {
		t.Errorf("Expected VALIDATED/100, got %s/%d", action.Status, action.Progress)
	}
	if !tr.Changed() {
		t.Error("Expected transition to report a change")
	}

	if _, err := action.Acknowledge(); err != ErrActionClosed {
		t.Errorf("Expected ErrActionClosed on second acknowledgement, got %v", err)
	}
}

func TestAction_AcknowledgeOnlyFromOpenStates(t *testing.T) {
	tests := []struct {
		status ActionStatus
		want   error
	}{
		{StatusTodo, nil},
		{StatusInProgress, nil},
		{StatusPendingValidation, ErrAwaitingValidation},
		{StatusValidated, ErrActionClosed},
		{StatusArchived, ErrActionClosed},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			action := newTestAction()
			action.Status = tt.status
			if tt.status == StatusPendingValidation {
				action.Progress = 100
			}
			if _, err := action.Acknowledge(); err != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAction_ConfirmValidation(t *testing.T) {
	action := newTestAction()
	if _, err := action.ConfirmValidation(); err != ErrNotPendingValidation {
		t.Errorf("Expected ErrNotPendingValidation, got %v", err)
	}

	action.ApplyAggregate(2, 2)
	if action.Status != StatusPendingValidation || action.Progress != 99 {
		t.Fatalf("Expected PENDING_VALIDATION/99, got %s/%d", action.Status, action.Progress)
	}

	if _, err := action.ConfirmValidation(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.Status != StatusValidated || action.Progress != 100 {
		t.Errorf("Expected VALIDATED/100, got %s/%d", action.Status, action.Progress)
	}
}

func TestAction_Archive(t *testing.T) {
	action := newTestAction()
	if _, err := action.Archive(); err != ErrNotValidated {
		t.Errorf("Expected ErrNotValidated, got %v", err)
	}

	action.Acknowledge()
	if _, err := action.Archive(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.Status != StatusArchived {
		t.Errorf("Expected ARCHIVED, got %s", action.Status)
	}
}

func TestAction_ForceClose(t *testing.T) {
	action := newTestAction()
	action.SetProgress(30, nil)

	tr, logWorthy := action.ForceClose()
	if !logWorthy || !tr.Changed() {
		t.Error("Expected a logged change when closing an action at 30%")
	}
	if action.Status != StatusValidated || action.Progress != 100 {
		t.Errorf("Expected VALIDATED/100, got %s/%d", action.Status, action.Progress)
	}

	_, logWorthy = action.ForceClose()
	if logWorthy {
		t.Error("Expected no log for an action already at 100%")
	}

	pending := newTestAction()
	pending.SetProgress(100, nil)
	tr, logWorthy = pending.ForceClose()
	if logWorthy {
		t.Error("Expected no log for a pending action already at 100%")
	}
	if pending.Status != StatusValidated || !tr.Changed() {
		t.Errorf("Expected pending action to be validated, got %s", pending.Status)
	}
}

func TestAction_ApplyAggregateKeepsClosedParent(t *testing.T) {
	action := newTestAction()
	action.Status = StatusValidated
	action.Progress = 100

	tr := action.ApplyAggregate(3, 1)
	if tr.Changed() {
		t.Errorf("Expected validated parent to stay untouched, got %+v", tr)
	}
}

func TestAction_ScopeCode(t *testing.T) {
	action := newTestAction()
	if got := action.ScopeCode(); got != NationalScope {
		t.Errorf("Expected %s, got %s", NationalScope, got)
	}
	action.Scopes = []string{"LFBO"}
	if got := action.ScopeCode(); got != "LFBO" {
		t.Errorf("Expected LFBO, got %s", got)
	}
	action.Scopes = []string{"LFBO", "LFRR"}
	if got := action.ScopeCode(); got != NationalScope {
		t.Errorf("Expected %s for several scopes, got %s", NationalScope, got)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(ErrActionNotFound) != KindNotFound {
		t.Error("Expected NOT_FOUND kind")
	}
	if KindOf(Forbidden("nope")) != KindAuthorization {
		t.Error("Expected AUTHORIZATION kind")
	}
	if KindOf(nil) != "" {
		t.Error("Expected empty kind for nil")
	}
}
