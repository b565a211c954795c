// Package eventbus carries action lifecycle events over NATS
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
)

// SubjectPrefix is the root of every subject published by the service
const SubjectPrefix = "suivi"

// Subject returns the subject an event is published on, e.g. "suivi.action.created"
func Subject(event ports.Event) string {
	name := strings.TrimPrefix(event.Type, event.Aggregate+"_")
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, event.Aggregate, name)
}

type conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Close()
}

// Publisher implements EventPublisher on a NATS connection
type Publisher struct {
	conn conn
	log  logger.Logger
}

// Connect dials NATS with reconnection enabled
func Connect(natsURL, name string) (*nats.Conn, error) {
	return nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
}

// NewPublisher creates a publisher on an open connection
func NewPublisher(nc *nats.Conn, log logger.Logger) *Publisher {
	return newPublisher(nc, log)
}

func newPublisher(c conn, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{conn: c, log: log}
}

// Publish marshals event and sends it on its subject
func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.log.Debug(ctx, "event published", map[string]interface{}{
		"subject":      subject,
		"aggregate_id": event.AggregateID,
	})
	return nil
}

// IsConnected reports whether the NATS connection is up
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close closes the connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
