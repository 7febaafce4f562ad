package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lan-chat/domain"
	"lan-chat/domain/event"
)

type nopSink struct{}

func (s nopSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_And_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given no session is connected
	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())

	// When two participants connect
	connAlice := domain.NewConnectionID()
	connBob := domain.NewConnectionID()
	registry.Subscribe(connAlice, domain.Identity{Name: "alice"}, nopSink{})
	registry.Subscribe(connBob, domain.Identity{Name: "bob"}, nopSink{})

	// Then
	req.Equal(2, registry.Len())
	req.Equal([]string{"alice", "bob"}, registry.Snapshot())
	req.Len(registry.Sinks(), 2)
}

func TestRegistry_Snapshot_Deduplicates_Names(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Same display name on two different connections
	registry.Subscribe(domain.NewConnectionID(), domain.Identity{Name: "alice"}, nopSink{})
	registry.Subscribe(domain.NewConnectionID(), domain.Identity{Name: "alice"}, nopSink{})
	registry.Subscribe(domain.NewConnectionID(), domain.Identity{Name: "zoe"}, nopSink{})

	req.Equal(3, registry.Len())
	req.Equal([]string{"alice", "zoe"}, registry.Snapshot())
}

func TestRegistry_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	connID := domain.NewConnectionID()
	registry.Subscribe(connID, domain.Identity{Name: "alice"}, nopSink{})
	req.Equal(1, registry.Len())

	registry.Unsubscribe(connID)
	registry.Unsubscribe(connID)
	registry.Unsubscribe(domain.ConnectionID("never-joined"))

	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())
}

func TestRegistry_SinkFor(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	connID := domain.NewConnectionID()
	registry.Subscribe(connID, domain.Identity{Name: "alice"}, nopSink{})

	snk, ok := registry.SinkFor(connID)
	req.True(ok)
	req.NotNil(snk)

	_, ok = registry.SinkFor(domain.ConnectionID("unknown"))
	req.False(ok)
}
