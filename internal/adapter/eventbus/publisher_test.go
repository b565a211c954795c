package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/ports"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) IsConnected() bool { return true }
func (c *fakeConn) Close()            {}

func TestSubject(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{ports.EventTypeActionCreated, "suivi.action.created"},
		{ports.EventTypeActionClosed, "suivi.action.closed"},
		{ports.EventTypeCommentAdded, "suivi.action.comment_added"},
		{ports.EventTypeDiffusionCreated, "suivi.action.diffusion_created"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			event := ports.NewEvent(tt.eventType, "a-1", "alice", nil, nil)
			assert.Equal(t, tt.want, Subject(event))
		})
	}
}

func TestPublisher_Publish(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, nil)

	event := ports.NewEvent(ports.EventTypeActionValidated, "a-1", "alice", []string{"LFBO"}, map[string]interface{}{"progress": 100})
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, c.subjects, 1)
	assert.Equal(t, "suivi.action.validated", c.subjects[0])

	var decoded ports.Event
	require.NoError(t, json.Unmarshal(c.payloads[0], &decoded))
	assert.Equal(t, "a-1", decoded.AggregateID)
	assert.Equal(t, []string{"LFBO"}, decoded.Scopes)
}

func TestPublisher_PublishError(t *testing.T) {
	p := newPublisher(&fakeConn{err: errors.New("nats: connection closed")}, nil)

	err := p.Publish(context.Background(), ports.NewEvent(ports.EventTypeActionCreated, "a-1", "alice", nil, nil))
	assert.ErrorContains(t, err, "suivi.action.created")
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.Event) error {
	return m.Called(ctx, event).Error(0)
}

func TestFanout(t *testing.T) {
	ok := new(MockEventPublisher)
	ok.On("Publish", mock.Anything, mock.Anything).Return(nil)
	failing := new(MockEventPublisher)
	failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("hub closed"))

	event := ports.NewEvent(ports.EventTypeActionCreated, "a-1", "alice", nil, nil)
	err := Fanout{failing, nil, ok}.Publish(context.Background(), event)

	assert.ErrorContains(t, err, "hub closed")
	ok.AssertCalled(t, "Publish", mock.Anything, event)
}
