package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"lan-chat/contract"
	"lan-chat/domain"
)

type session struct {
	identity domain.Identity
	sink     contract.EventSink
}

// Registry tracks which identities currently hold an open connection, keyed
// by connection handle. Two connections may carry the same display name;
// snapshots de-duplicate. All mutation happens from the hub loop, the RWMutex
// only protects concurrent reads from the transport side.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ConnectionID]session)}
}

func (r *Registry) Subscribe(connID domain.ConnectionID, identity domain.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = session{identity: identity, sink: sink}
}

// Unsubscribe is idempotent; removing an absent handle is a no-op.
func (r *Registry) Unsubscribe(connID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

// Snapshot returns the distinct connected names in alphabetical order.
// Always recomputed from live membership, never cached.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		names = append(names, s.identity.Name)
	}
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

// Sinks returns the fan-out targets for every live session.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	return sinks
}

// IdentityFor resolves the display name behind a connection handle.
func (r *Registry) IdentityFor(connID domain.ConnectionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return domain.Identity{}, false
	}
	return s.identity, true
}

// SinkFor resolves the sink of one connection, used for sender-only errors.
func (r *Registry) SinkFor(connID domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
