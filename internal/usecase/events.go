package usecase

import (
	"context"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
)

// notifier publishes events after a commit. Publishing failures never undo the commit;
// they are logged and dropped.
type notifier struct {
	publisher ports.EventPublisher
	log       logger.Logger
}

func (n notifier) action(ctx context.Context, eventType string, action *domain.Action, actorID string, extra map[string]interface{}) {
	data := map[string]interface{}{
		"number":         action.Number,
		"title":          action.Title,
		"status":         action.Status,
		"progress":       action.Progress,
		"responsible_id": action.ResponsibleID,
	}
	if action.ParentID != nil {
		data["parent_id"] = *action.ParentID
	}
	for k, v := range extra {
		data[k] = v
	}
	n.publish(ctx, ports.NewEvent(eventType, action.ID, actorID, action.Scopes, data))
}

func (n notifier) publish(ctx context.Context, event ports.Event) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.log.Warn(ctx, "failed to publish event", map[string]interface{}{
			"event_type":   event.Type,
			"aggregate_id": event.AggregateID,
			"error":        err.Error(),
		})
	}
}

// propagated announces ancestors changed by propagation
func (n notifier) propagated(ctx context.Context, parents []*domain.Action) {
	for _, p := range parents {
		n.action(ctx, ports.EventTypeActionUpdated, p, domain.SystemAuthor, map[string]interface{}{"propagated": true})
	}
}
