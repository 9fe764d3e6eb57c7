package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/chirpwall/chirpwall/pkg/wire"
	"github.com/chirpwall/chirpwall/server/internal/store"
)

// ErrUnknownOperation is reported for requests that are neither a list nor a
// create operation.
var ErrUnknownOperation = errors.New("unknown operation")

// Response messages for the two error kinds the dispatcher surfaces.
const (
	msgValidation = "Content and author are required"
	msgUnknown    = "Unknown operation"
)

// Outcome labels passed to an OperationObserver.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeUnknown = "unknown"
	OutcomeError   = "error"
)

// Publisher is notified after every successful create, in id order.
type Publisher interface {
	OnMessageCreated(m wire.Message)
}

// OperationObserver is told about every executed operation.
type OperationObserver interface {
	ObserveOperation(operation, outcome string)
}

// Store is the subset of *store.Store the dispatcher needs.
type Store interface {
	List() []wire.Message
	Create(content, author string) (wire.Message, error)
}

// Dispatcher turns one-shot requests into store calls and fans created
// messages out to its publishers.
type Dispatcher struct {
	store    Store
	pubs     []Publisher
	observer OperationObserver

	// mu serializes create+publish so publishers observe ids in order.
	mu sync.Mutex
}

// New returns a Dispatcher over st that notifies pubs after each create.
func New(st Store, pubs ...Publisher) *Dispatcher {
	return &Dispatcher{store: st, pubs: pubs}
}

// SetObserver installs an observer for operation outcomes. Call before
// serving requests.
func (d *Dispatcher) SetObserver(o OperationObserver) {
	d.observer = o
}

// Execute runs req and returns the response body. Errors are reported
// inside the response; Execute itself never fails.
func (d *Dispatcher) Execute(ctx context.Context, req wire.Request) wire.Response {
	op := Parse(req)
	switch op.Kind {
	case KindListMessages:
		d.observe(op.Kind, OutcomeOK)
		return wire.Response{Data: &wire.Data{Messages: d.store.List()}}

	case KindCreateMessage:
		m, err := d.Create(ctx, op.Content, op.Author)
		if errors.Is(err, store.ErrValidation) {
			d.observe(op.Kind, OutcomeInvalid)
			return wire.ErrorResponse(msgValidation)
		}
		if err != nil {
			d.observe(op.Kind, OutcomeError)
			return wire.ErrorResponse(err.Error())
		}
		d.observe(op.Kind, OutcomeOK)
		return wire.Response{Data: &wire.Data{CreateMessage: &m}}

	default:
		d.observe(op.Kind, OutcomeUnknown)
		slog.Debug("dispatch: unknown operation", "operation_name", req.OperationName, "err", ErrUnknownOperation)
		return wire.ErrorResponse(msgUnknown)
	}
}

// Create appends a message and publishes it. It is the single mutation path
// shared by every transport. A validation failure wraps store.ErrValidation
// and publishes nothing.
func (d *Dispatcher) Create(ctx context.Context, content, author string) (wire.Message, error) {
	if err := ctx.Err(); err != nil {
		return wire.Message{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.store.Create(content, author)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			slog.Debug("dispatch: create rejected", "err", err)
		}
		return wire.Message{}, err
	}
	for _, p := range d.pubs {
		p.OnMessageCreated(m)
	}
	return m, nil
}

// List returns every message in creation order.
func (d *Dispatcher) List() []wire.Message {
	return d.store.List()
}

func (d *Dispatcher) observe(k Kind, outcome string) {
	if d.observer != nil {
		d.observer.ObserveOperation(k.String(), outcome)
	}
}
