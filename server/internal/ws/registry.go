package ws

import (
	"errors"
	"sync"

	"github.com/samber/lo"
)

var (
	// ErrSlowConsumer is returned by Send when the connection's outgoing
	// queue is full.
	ErrSlowConsumer = errors.New("ws: send queue full")

	// ErrConnClosed is returned by Send after the connection was closed.
	ErrConnClosed = errors.New("ws: connection closed")
)

// Conn is one persistent channel to a viewer. Send must not block; Close must
// be idempotent.
type Conn interface {
	ID() string
	Send(msg []byte) error
	Close()
}

// Registry is the set of live connections, keyed by Conn.ID.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register adds c. Registering the same id twice keeps the first entry.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	if _, ok := r.conns[c.ID()]; !ok {
		r.conns[c.ID()] = c
	}
	r.mu.Unlock()
}

// Unregister removes c and closes it. Only the first call for a given
// connection returns true; later calls are no-ops.
func (r *Registry) Unregister(c Conn) bool {
	r.mu.Lock()
	cur, ok := r.conns[c.ID()]
	if ok && cur == c {
		delete(r.conns, c.ID())
	}
	r.mu.Unlock()

	if !ok || cur != c {
		return false
	}
	c.Close()
	return true
}

// ForEach calls fn for every connection registered when ForEach was called.
// fn runs without the registry lock held, so it may call Unregister.
func (r *Registry) ForEach(fn func(Conn)) {
	r.mu.RLock()
	conns := lo.Values(r.conns)
	r.mu.RUnlock()

	for _, c := range conns {
		fn(c)
	}
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
