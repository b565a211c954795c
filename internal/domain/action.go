package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionStatus represents the lifecycle state of an action
type ActionStatus string

const (
	StatusTodo              ActionStatus = "TODO"
	StatusInProgress        ActionStatus = "IN_PROGRESS"
	StatusPendingValidation ActionStatus = "PENDING_VALIDATION"
	StatusValidated         ActionStatus = "VALIDATED"
	StatusArchived          ActionStatus = "ARCHIVED"
)

// IsValid reports whether s is a known status
func (s ActionStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusPendingValidation, StatusValidated, StatusArchived:
		return true
	}
	return false
}

// IsClosed reports whether s is a terminal state
func (s ActionStatus) IsClosed() bool {
	return s == StatusValidated || s == StatusArchived
}

// ActionCategory represents what kind of follow-up an action is
type ActionCategory string

const (
	CategoryRegulatoryInstruction ActionCategory = "REGULATORY_INSTRUCTION"
	CategoryDocumentDiffusion     ActionCategory = "DOCUMENT_DIFFUSION"
	CategorySafetyRecommendation  ActionCategory = "SAFETY_RECOMMENDATION"
	CategoryGeneric               ActionCategory = "GENERIC"
)

var categoryPrefixes = map[ActionCategory]string{
	CategoryRegulatoryInstruction: "INS",
	CategoryDocumentDiffusion:     "DOC",
	CategorySafetyRecommendation:  "REC",
	CategoryGeneric:               "GEN",
}

// IsValid reports whether c is a known category
func (c ActionCategory) IsValid() bool {
	_, ok := categoryPrefixes[c]
	return ok
}

// Prefix returns the numbering prefix of the category
func (c ActionCategory) Prefix() string {
	if p, ok := categoryPrefixes[c]; ok {
		return p
	}
	return categoryPrefixes[CategoryGeneric]
}

// ActionPriority represents the urgency of an action
type ActionPriority string

const (
	PriorityLow      ActionPriority = "LOW"
	PriorityMedium   ActionPriority = "MEDIUM"
	PriorityHigh     ActionPriority = "HIGH"
	PriorityCritical ActionPriority = "CRITICAL"
)

// IsValid reports whether p is a known priority
func (p ActionPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Action is a trackable unit of follow-up work, possibly part of a hierarchy
type Action struct {
	ID            string         `json:"id"`
	Number        string         `json:"number"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Category      ActionCategory `json:"category"`
	ResponsibleID string         `json:"responsible_id"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	Priority      ActionPriority `json:"priority"`
	Status        ActionStatus   `json:"status"`
	Progress      int            `json:"progress"`
	ParentID      *string        `json:"parent_id,omitempty"`
	Scopes        []string       `json:"scopes,omitempty"`
	Source        *SourceRef     `json:"source,omitempty"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Transition captures a state change so it can be written to history
type Transition struct {
	FromStatus   ActionStatus
	ToStatus     ActionStatus
	FromProgress int
	ToProgress   int
}

// Changed reports whether anything moved
func (t Transition) Changed() bool {
	return t.FromStatus != t.ToStatus || t.FromProgress != t.ToProgress
}

// Details renders the transition as history details
func (t Transition) Details() map[string]interface{} {
	return map[string]interface{}{
		"from_status":   string(t.FromStatus),
		"to_status":     string(t.ToStatus),
		"from_progress": t.FromProgress,
		"to_progress":   t.ToProgress,
	}
}

// NewAction creates a new action in the TODO state
func NewAction(title, description string, category ActionCategory, priority ActionPriority, responsibleID, createdBy string) *Action {
	now := time.Now().UTC()
	return &Action{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		Description:   description,
		Category:      category,
		ResponsibleID: responsibleID,
		Priority:      priority,
		Status:        StatusTodo,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsValid checks the action's required fields and invariants
func (a *Action) IsValid() error {
	if a.Title == "" {
		return ErrEmptyTitle
	}
	if a.ResponsibleID == "" {
		return ErrEmptyResponsible
	}
	if !a.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !a.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if a.Progress < 0 || a.Progress > 100 {
		return ErrInvalidProgress
	}
	if !a.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// AttachTo makes the action a child of parent and inherits nothing else
func (a *Action) AttachTo(parent *Action) {
	id := parent.ID
	a.ParentID = &id
}

// ScopeCode returns the scope used for numbering, "NAT" when none or several apply
func (a *Action) ScopeCode() string {
	if len(a.Scopes) == 1 {
		return a.Scopes[0]
	}
	return NationalScope
}

func (a *Action) snapshot() Transition {
	return Transition{FromStatus: a.Status, FromProgress: a.Progress}
}

func (a *Action) finish(t Transition) Transition {
	t.ToStatus = a.Status
	t.ToProgress = a.Progress
	if t.Changed() {
		a.UpdatedAt = time.Now().UTC()
	}
	return t
}

// Start moves a TODO action to IN_PROGRESS with minimal progress
func (a *Action) Start() Transition {
	t := a.snapshot()
	if a.Status == StatusTodo {
		a.Status = StatusInProgress
		if a.Progress == 0 {
			a.Progress = 1
		}
	}
	return a.finish(t)
}

// SetProgress applies a manual edit on a leaf action. A nil status is derived from progress;
// VALIDATED and ARCHIVED cannot be set this way.
func (a *Action) SetProgress(progress int, status *ActionStatus) (Transition, error) {
	t := a.snapshot()
	if a.Status.IsClosed() {
		return t, ErrActionClosed
	}
	if progress < 0 || progress > 100 {
		return t, ErrInvalidProgress
	}

	next := statusForProgress(progress)
	if status != nil {
		if !status.IsValid() || status.IsClosed() {
			return t, ErrInvalidStatus
		}
		next = *status
	}
	if next == StatusPendingValidation && progress < 100 {
		progress = 100
	}

	a.Progress = progress
	a.Status = next
	return a.finish(t), nil
}

func statusForProgress(progress int) ActionStatus {
	switch {
	case progress == 0:
		return StatusTodo
	case progress >= 100:
		return StatusPendingValidation
	default:
		return StatusInProgress
	}
}

// Acknowledge validates a TODO or IN_PROGRESS leaf directly, bypassing PENDING_VALIDATION
func (a *Action) Acknowledge() (Transition, error) {
	t := a.snapshot()
	switch a.Status {
	case StatusTodo, StatusInProgress:
	case StatusPendingValidation:
		return t, ErrAwaitingValidation
	default:
		return t, ErrActionClosed
	}
	a.Status = StatusValidated
	a.Progress = 100
	return a.finish(t), nil
}

// ConfirmValidation is the explicit human sign-off of a PENDING_VALIDATION action
func (a *Action) ConfirmValidation() (Transition, error) {
	t := a.snapshot()
	if a.Status != StatusPendingValidation {
		return t, ErrNotPendingValidation
	}
	a.Status = StatusValidated
	a.Progress = 100
	return a.finish(t), nil
}

// ForceClose sets the action to VALIDATED/100 whatever its state. Archived actions are
// left alone. The transition is reported as worth logging only when progress was below 100.
func (a *Action) ForceClose() (t Transition, logWorthy bool) {
	t = a.snapshot()
	if a.Status == StatusArchived {
		return a.finish(t), false
	}
	logWorthy = a.Progress < 100
	a.Status = StatusValidated
	a.Progress = 100
	return a.finish(t), logWorthy
}

// Archive moves a VALIDATED action to ARCHIVED
func (a *Action) Archive() (Transition, error) {
	t := a.snapshot()
	if a.Status != StatusValidated {
		return t, ErrNotValidated
	}
	a.Status = StatusArchived
	return a.finish(t), nil
}

// ApplyAggregate recomputes a parent from its children counts. Closed parents keep their
// state: only an explicit human step validates a parent.
func (a *Action) ApplyAggregate(total, validated int) Transition {
	t := a.snapshot()
	if a.Status.IsClosed() {
		return a.finish(t)
	}
	a.Progress, a.Status = AggregateProgress(total, validated)
	return a.finish(t)
}

// ActionFilter represents filters for listing actions
type ActionFilter struct {
	Status        *ActionStatus   `json:"status,omitempty"`
	Category      *ActionCategory `json:"category,omitempty"`
	Priority      *ActionPriority `json:"priority,omitempty"`
	ResponsibleID *string         `json:"responsible_id,omitempty"`
	ParentID      *string         `json:"parent_id,omitempty"`
	RootsOnly     bool            `json:"roots_only"`
	Scope         *string         `json:"scope,omitempty"`
	SourceKind    *SourceKind     `json:"source_kind,omitempty"`
	SourceID      *string         `json:"source_id,omitempty"`
	Limit         int             `json:"limit"`
	Offset        int             `json:"offset"`
}
