package ws

import (
	"sync"

	"github.com/Xurify/flags.games-server/internal/protocol"
)

// Registry maps userIds to their single live connection. Installing a new
// connection for a user supersedes and closes the old one.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Add installs conn for its user. Any previous connection is marked
// superseded and closed with code 4000; its close handling then only
// removes the stale record.
func (r *Registry) Add(conn *Connection) {
	r.mu.Lock()
	old := r.conns[conn.UserID]
	r.conns[conn.UserID] = conn
	r.mu.Unlock()

	if old != nil {
		old.MarkSuperseded()
		old.Close(protocol.CloseSupersededSession, "superseded by new session")
	}
}

// Remove drops conn's registration. A stale connection that was already
// replaced does not unregister its successor.
func (r *Registry) Remove(conn *Connection) {
	r.mu.Lock()
	if r.conns[conn.UserID] == conn {
		delete(r.conns, conn.UserID)
	}
	r.mu.Unlock()
}

// Get returns the live connection for userID.
func (r *Registry) Get(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// All returns the current connections in unspecified order.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
