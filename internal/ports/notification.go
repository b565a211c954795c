package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher defines the interface for domain event publishing
type EventPublisher interface {
	// Publish publishes a domain event
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Aggregate   string                 `json:"aggregate"`
	AggregateID string                 `json:"aggregate_id"`
	ActorID     string                 `json:"actor_id,omitempty"`
	Scopes      []string               `json:"scopes,omitempty"`
	Data        map[string]interface{} `json:"data"`
	CreatedAt   int64                  `json:"created_at"`
}

// Event types
const (
	EventTypeActionCreated      = "action_created"
	EventTypeActionUpdated      = "action_updated"
	EventTypeActionAcknowledged = "action_acknowledged"
	EventTypeActionValidated    = "action_validated"
	EventTypeActionClosed       = "action_closed"
	EventTypeActionArchived     = "action_archived"
	EventTypeActionDeleted      = "action_deleted"
	EventTypeCommentAdded       = "comment_added"
	EventTypeDiffusionCreated   = "diffusion_created"
)

// NewEvent creates a new action event
func NewEvent(eventType, aggregateID, actorID string, scopes []string, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Aggregate:   "action",
		AggregateID: aggregateID,
		ActorID:     actorID,
		Scopes:      scopes,
		Data:        data,
		CreatedAt:   time.Now().Unix(),
	}
}
