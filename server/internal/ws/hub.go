package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// DefaultSendBuffer is the per-connection queue depth used when none is set.
const DefaultSendBuffer = 256

// Push kinds reported to the Observer.
const (
	KindSnapshot    = "snapshot"
	KindIncremental = "incremental"
)

// ErrHubClosed is returned by Attach after the hub has shut down.
var ErrHubClosed = errors.New("ws: hub closed")

// Lister supplies the snapshot sent to every new connection.
type Lister interface {
	List() []wire.Message
}

// Observer receives connection and push events. Implementations must be
// safe for concurrent use.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	PushSent(kind string)
	PushFailed()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened() {}
func (nopObserver) ConnectionClosed() {}
func (nopObserver) PushSent(string)   {}
func (nopObserver) PushFailed()       {}

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-connection queue depth. Values below 1 are
// ignored.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithObserver installs o for connection and push events.
func WithObserver(o Observer) Option {
	return func(h *Hub) { h.observer = o }
}

// Hub owns the connection registry and fans created messages out to every
// live connection.
type Hub struct {
	store      Lister
	reg        *Registry
	observer   Observer
	sendBuffer int
	upgrader   websocket.Upgrader

	// mu serializes Attach and OnMessageCreated. marks holds, per connection
	// id, the highest message seq contained in that connection's snapshot.
	mu     sync.Mutex
	marks  map[string]uint64
	closed bool
}

// New creates a Hub that snapshots from st.
func New(st Lister, opts ...Option) *Hub {
	h := &Hub{
		store:      st,
		reg:        NewRegistry(),
		observer:   nopObserver{},
		sendBuffer: DefaultSendBuffer,
		marks:      make(map[string]uint64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is applied by the gateway's CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Attach registers c and enqueues the current snapshot as its first push.
// No incremental push can reach c before the snapshot.
func (h *Hub) Attach(c Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.Close()
		return ErrHubClosed
	}

	h.reg.Register(c)
	h.observer.ConnectionOpened()

	msgs := h.store.List()
	data, err := json.Marshal(wire.NewSnapshot(msgs))
	if err != nil {
		h.detachLocked(c)
		return err
	}
	if err := c.Send(data); err != nil {
		h.observer.PushFailed()
		h.detachLocked(c)
		return err
	}
	h.observer.PushSent(KindSnapshot)

	var mark uint64
	for _, m := range msgs {
		if s := m.Seq(); s > mark {
			mark = s
		}
	}
	h.marks[c.ID()] = mark
	return nil
}

// Detach unregisters c. Safe to call any number of times.
func (h *Hub) Detach(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c Conn) {
	delete(h.marks, c.ID())
	if h.reg.Unregister(c) {
		h.observer.ConnectionClosed()
	}
}

// OnMessageCreated pushes m to every registered connection whose snapshot
// did not already include it. A connection that cannot take the push is
// dropped; nothing is reported to the caller.
func (h *Hub) OnMessageCreated(m wire.Message) {
	data, err := json.Marshal(wire.NewMessageAdded(m))
	if err != nil {
		slog.Error("ws: encode push", "id", m.ID, "err", err)
		return
	}
	seq := m.Seq()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.reg.ForEach(func(c Conn) {
		if mark, ok := h.marks[c.ID()]; ok && seq != 0 && seq <= mark {
			return
		}
		if err := c.Send(data); err != nil {
			slog.Warn("ws: dropping connection", "conn", c.ID(), "err", err)
			h.observer.PushFailed()
			h.detachLocked(c)
			return
		}
		h.observer.PushSent(KindIncremental)
	})
}

// ServeHTTP upgrades the request, attaches the connection and blocks until
// the viewer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newConn(ws, h.sendBuffer)
	go c.writePump()

	if err := h.Attach(c); err != nil {
		slog.Warn("ws: attach failed", "conn", c.ID(), "err", err)
		return
	}
	slog.Debug("ws: viewer connected", "conn", c.ID(), "remote", r.RemoteAddr)

	c.readPump()
	h.Detach(c)
	slog.Debug("ws: viewer disconnected", "conn", c.ID())
}

// Run blocks until ctx is cancelled, then closes every connection and
// rejects further attaches.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close detaches every connection and marks the hub closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.reg.ForEach(h.detachLocked)
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	return h.reg.Count()
}
