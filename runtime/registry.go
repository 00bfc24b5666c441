// Package runtime owns the realtime coordination state: the connection
// registry, the presence tracker, and the session coordinator that drives
// them. It contains no transport or storage logic.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

type session struct {
	identity domain.Identity
	sink     contract.EventSink
}

// Registry is the single source of truth for "who is connected". It maps
// live connections to their authenticated identity and delivery sink.
// A connection absent from the registry is unauthenticated.
//
// A global lock is enough here: event cardinality is low compared to the
// I/O cost surrounding every operation.
type Registry struct {
	mu         sync.RWMutex
	log        *slog.Logger
	identities contract.IIdentityStore
	sessions   map[domain.ConnID]session
}

func NewRegistry(identities contract.IIdentityStore, log *slog.Logger) *Registry {
	return &Registry{
		log:        log,
		identities: identities,
		sessions:   make(map[domain.ConnID]session),
	}
}

// Bind validates the credential and records the connection's identity and
// sink. The identity store call happens outside the lock; it is the only
// blocking step. On failure nothing is recorded and the caller must refuse
// the connection.
func (r *Registry) Bind(ctx context.Context, connID domain.ConnID, token string, sink contract.EventSink) (domain.Identity, error) {
	identity, err := r.identities.Verify(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	r.mu.Lock()
	r.sessions[connID] = session{identity: identity, sink: sink}
	r.mu.Unlock()

	r.log.Info("connection bound", "conn_id", connID, "user_id", identity.UserID)
	return identity, nil
}

// IdentityOf is the O(1) authentication check every operation starts with.
func (r *Registry) IdentityOf(connID domain.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s.identity, ok
}

// SinkOf resolves a single connection's delivery sink.
func (r *Registry) SinkOf(connID domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s.sink, ok
}

// SinksFor resolves the fan-out targets for a roster snapshot, skipping
// `except` (used by typing) and any connection that unbound since the
// snapshot was taken.
func (r *Registry) SinksFor(conns []domain.ConnID, except domain.ConnID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, connID := range conns {
		if connID == except {
			continue
		}
		if s, ok := r.sessions[connID]; ok {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// Unbind removes the mapping and reports whether this call removed it.
// It is idempotent; exactly one caller observes true, which makes it the
// disconnect-cleanup gate. After Unbind returns, any in-flight operation
// that checks authentication observes Unauthenticated and aborts.
func (r *Registry) Unbind(connID domain.ConnID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.sessions, connID)
	return s.identity, true
}

// Len reports the number of live bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
