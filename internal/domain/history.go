package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryKind represents what happened to an action
type HistoryKind string

const (
	HistoryCreated        HistoryKind = "CREATED"
	HistoryStatusChange   HistoryKind = "STATUS_CHANGE"
	HistoryProgressChange HistoryKind = "PROGRESS_CHANGE"
	HistoryComment        HistoryKind = "COMMENT"
	HistoryAcknowledged   HistoryKind = "ACKNOWLEDGED"
	HistoryClosed         HistoryKind = "CLOSED"
	HistoryArchived       HistoryKind = "ARCHIVED"
)

// SystemAuthor is the author of entries written by automatic propagation
const SystemAuthor = "system"

// HistoryEntry is an append-only audit record attached to an action
type HistoryEntry struct {
	ID        string                 `json:"id"`
	ActionID  string                 `json:"action_id"`
	Kind      HistoryKind            `json:"kind"`
	AuthorID  string                 `json:"author_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewHistoryEntry creates a history entry stamped now
func NewHistoryEntry(actionID string, kind HistoryKind, authorID string, details map[string]interface{}) *HistoryEntry {
	if details == nil {
		details = map[string]interface{}{}
	}
	return &HistoryEntry{
		ID:        uuid.NewString(),
		ActionID:  actionID,
		Kind:      kind,
		AuthorID:  authorID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTransitionEntry records a status or progress change. A status move wins over a
// progress-only move when choosing the kind.
func NewTransitionEntry(actionID, authorID string, t Transition) *HistoryEntry {
	kind := HistoryProgressChange
	if t.FromStatus != t.ToStatus {
		kind = HistoryStatusChange
	}
	return NewHistoryEntry(actionID, kind, authorID, t.Details())
}

// NewCommentEntry records a free-text comment
func NewCommentEntry(actionID, authorID, body string) *HistoryEntry {
	return NewHistoryEntry(actionID, HistoryComment, authorID, map[string]interface{}{"body": body})
}

// Acknowledgement records that an agent acknowledged an action. One per (action, agent).
type Acknowledgement struct {
	ActionID  string    `json:"action_id"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAcknowledgement creates an acknowledgement stamped now
func NewAcknowledgement(actionID, agentID string) *Acknowledgement {
	return &Acknowledgement{ActionID: actionID, AgentID: agentID, CreatedAt: time.Now().UTC()}
}
