package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
)

// Subscriber relays events from NATS to a local publisher, typically the websocket
// hub, so every instance sees the updates made through the others.
type Subscriber struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	target ports.EventPublisher
	log    logger.Logger
}

// NewSubscriber creates a subscriber delivering to target
func NewSubscriber(nc *nats.Conn, target ports.EventPublisher, log logger.Logger) *Subscriber {
	if log == nil {
		log = logger.NewNop()
	}
	return &Subscriber{conn: nc, target: target, log: log}
}

// Start subscribes to every action subject
func (s *Subscriber) Start() error {
	subject := SubjectPrefix + ".action.>"
	sub, err := s.conn.Subscribe(subject, s.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.sub = sub
	s.log.Info(context.Background(), "subscribed to action events", map[string]interface{}{"subject": subject})
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	ctx := context.Background()

	var event ports.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.log.Warn(ctx, "dropping malformed event", map[string]interface{}{
			"subject": msg.Subject,
			"error":   err.Error(),
		})
		return
	}

	if err := s.target.Publish(ctx, event); err != nil {
		s.log.Error(ctx, "failed to relay event", err, map[string]interface{}{"subject": msg.Subject})
	}
}

// Stop unsubscribes
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}
