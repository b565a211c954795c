package domain

import "time"

// DiffusionMode tells whether recipients are informed or must acknowledge
type DiffusionMode string

const (
	DiffusionInformation     DiffusionMode = "INFORMATION"
	DiffusionAcknowledgement DiffusionMode = "ACKNOWLEDGEMENT"
)

// IsValid reports whether m is a known mode
func (m DiffusionMode) IsValid() bool {
	return m == DiffusionInformation || m == DiffusionAcknowledgement
}

// DiffusionRequest describes a fan-out from a source record to scopes and individuals
type DiffusionRequest struct {
	Source       FollowUpSource
	InitiatorID  string
	Mode         DiffusionMode
	Category     ActionCategory
	Title        string
	Description  string
	Priority     ActionPriority
	DueDate      *time.Time
	ScopeCodes   []string
	RecipientIDs []string
	// Direct broadcasts to every active member of each scope instead of delegating
	// to the scope's designated owner.
	Direct bool
}

// DiffusionResult is the outcome of a fan-out
type DiffusionResult struct {
	Mother   *Action   `json:"mother"`
	Children []*Action `json:"children"`
	// Unresolved lists scopes for which no owner could be found in delegated mode.
	// No child was created for them.
	Unresolved []string `json:"unresolved,omitempty"`
}
