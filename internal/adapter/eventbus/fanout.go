package eventbus

import (
	"context"
	"errors"

	"github.com/girrex/suivi/internal/ports"
)

// Fanout delivers each event to every publisher and reports all failures together
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, event ports.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
