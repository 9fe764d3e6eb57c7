package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// DefaultDelay is the reconnect delay used when Options.Delay is zero.
const DefaultDelay = 3 * time.Second

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("reconcile: closed")

// State is the connection state of a Reconciler.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Stream is the read side of a persistent connection. *websocket.Conn
// satisfies it.
type Stream interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a Stream to url.
type Dialer func(ctx context.Context, url string) (Stream, error)

// timer is the part of *time.Timer the reconciler uses.
type timer interface {
	Stop() bool
}

// Options configures a Reconciler.
type Options struct {
	URL string

	// Delay before a reconnect attempt. MaxDelay > Delay switches to capped
	// exponential backoff with jitter, reset after each successful connect.
	Delay    time.Duration
	MaxDelay time.Duration

	// OnChange receives a copy of the view after every applied push.
	OnChange func([]wire.Message)
	// OnState is called on every state transition.
	OnState func(State)

	// Dialer defaults to a gorilla websocket dialer.
	Dialer Dialer
}

// Reconciler keeps a View in sync with the server's push stream and
// reconnects after the stream is lost.
type Reconciler struct {
	opts      Options
	view      View
	dial      Dialer
	afterFunc func(time.Duration, func()) timer

	mu      sync.Mutex
	ctx     context.Context
	state   State
	stream  Stream
	pending timer
	gen     uint64 // identifies the pending timer; stale firings are ignored
	bo      *backoff
	closed  bool
}

// New returns a disconnected Reconciler. Call Connect or Run to start it.
func New(opts Options) *Reconciler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	dial := opts.Dialer
	if dial == nil {
		dial = dialWebsocket
	}
	return &Reconciler{
		opts: opts,
		dial: dial,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		bo: newBackoff(opts.Delay, opts.MaxDelay),
	}
}

func dialWebsocket(ctx context.Context, url string) (Stream, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Messages returns a copy of the current view.
func (r *Reconciler) Messages() []wire.Message {
	return r.view.Messages()
}

// State returns the current connection state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run connects and blocks until ctx is cancelled, then closes. Connection
// failures are retried in the background and never end Run.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.Connect(ctx); err != nil && !errors.Is(err, ErrClosed) {
		slog.Warn("reconcile: initial connect failed", "url", r.opts.URL, "err", err)
	}
	<-ctx.Done()
	r.Close()
}

// Connect dials the server once. It is a no-op unless the state is
// Disconnected. On failure a reconnect is scheduled and the dial error is
// returned. ctx also bounds every later reconnect attempt.
func (r *Reconciler) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state != Disconnected {
		r.mu.Unlock()
		return nil
	}
	if r.ctx == nil {
		r.ctx = ctx
	}
	r.setStateLocked(Connecting)
	r.mu.Unlock()
	r.notifyState(Connecting)

	s, err := r.dial(ctx, r.opts.URL)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if s != nil {
			s.Close() //nolint:errcheck
		}
		return ErrClosed
	}
	if err != nil {
		r.setStateLocked(Disconnected)
		r.scheduleLocked()
		r.mu.Unlock()
		r.notifyState(Disconnected)
		return fmt.Errorf("reconcile: dial %s: %w", r.opts.URL, err)
	}
	r.stream = s
	r.setStateLocked(Connected)
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.bo.reset()
	r.mu.Unlock()
	r.notifyState(Connected)

	slog.Info("reconcile: connected", "url", r.opts.URL)
	go r.readLoop(s)
	return nil
}

// Close stops reconnecting and closes the current stream.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	s := r.stream
	r.stream = nil
	changed := r.setStateLocked(Disconnected)
	r.mu.Unlock()

	if s != nil {
		s.Close() //nolint:errcheck
	}
	if changed {
		r.notifyState(Disconnected)
	}
}

// readLoop applies pushes from s until it fails.
func (r *Reconciler) readLoop(s Stream) {
	for {
		_, data, err := s.ReadMessage()
		if err != nil {
			r.lost(s, err)
			return
		}
		r.apply(data)
	}
}

// lost handles the end of stream s. Only the current stream triggers a
// reconnect.
func (r *Reconciler) lost(s Stream, err error) {
	r.mu.Lock()
	if r.stream != s || r.closed {
		r.mu.Unlock()
		return
	}
	r.stream = nil
	r.setStateLocked(Disconnected)
	r.scheduleLocked()
	r.mu.Unlock()

	s.Close() //nolint:errcheck
	slog.Warn("reconcile: connection lost", "url", r.opts.URL, "err", err)
	r.notifyState(Disconnected)
}

// scheduleLocked arranges one reconnect attempt unless one is pending.
func (r *Reconciler) scheduleLocked() {
	if r.pending != nil || r.closed {
		return
	}
	d := r.bo.next()
	slog.Debug("reconcile: reconnect scheduled", "in", d)
	r.gen++
	gen := r.gen
	r.pending = r.afterFunc(d, func() { r.retry(gen) })
}

// retry runs the reconnect scheduled as generation gen. A timer that fires
// after it was stopped or replaced does nothing.
func (r *Reconciler) retry(gen uint64) {
	r.mu.Lock()
	if r.pending == nil || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.pending = nil
	ctx := r.ctx
	skip := r.closed || r.state != Disconnected || ctx.Err() != nil
	r.mu.Unlock()
	if skip {
		return
	}
	if err := r.Connect(ctx); err != nil {
		slog.Warn("reconcile: reconnect failed", "url", r.opts.URL, "err", err)
	}
}

func (r *Reconciler) apply(data []byte) {
	var p wire.Push
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("reconcile: malformed push ignored", "err", err)
		return
	}
	if p.Type != wire.PushTypeData {
		slog.Warn("reconcile: unexpected push type ignored", "type", p.Type)
		return
	}
	switch {
	case p.Payload.IsSnapshot():
		r.view.ApplySnapshot(p.Payload.Messages)
	case p.Payload.MessageAdded != nil:
		r.view.ApplyAdded(*p.Payload.MessageAdded)
	default:
		slog.Warn("reconcile: empty push payload ignored")
		return
	}
	if r.opts.OnChange != nil {
		r.opts.OnChange(r.view.Messages())
	}
}

func (r *Reconciler) setStateLocked(s State) bool {
	if r.state == s {
		return false
	}
	r.state = s
	return true
}

func (r *Reconciler) notifyState(s State) {
	if r.opts.OnState != nil {
		r.opts.OnState(s)
	}
}
