// Package contract holds the small interfaces shared between the runtime,
// the sinks, and the transport layers.
package contract

import (
	"context"
	"reflect"

	"lan-chat/domain/event"
)

// Worker doesn't protect itself; supervision lives above it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for supervision logging without forcing a naming method on Worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fan-out events for one connected session.
// Implementations must not block the hub loop; buffer or drop instead.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}
