// Package sink bridges the hub's fan-out to individual transport sessions.
package sink

import (
	"context"
	"fmt"

	"lan-chat/domain/event"
)

// ErrSlowConsumer is returned when a session's buffer is full. The hub drops
// the event for that session only and keeps the fan-out moving.
var ErrSlowConsumer = fmt.Errorf("session buffer full")

// SessionSink queues fan-out events for one connected session. Consume is
// called by the hub loop; the session's write pump drains Events into the
// transport at its own pace.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume hands an event to the session. It never blocks the hub: a full
// buffer reports ErrSlowConsumer instead of waiting for the transport.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSlowConsumer
	}
}
