package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chirpwall/chirpwall/pkg/wire"
	"github.com/chirpwall/chirpwall/server/internal/config"
)

const (
	defaultQueueSize = 256
	deliverTimeout   = 10 * time.Second
)

// Notifier delivers every created message to the configured webhooks.
// OnMessageCreated only enqueues; Run performs delivery on its own
// goroutine, so a slow webhook never delays a create.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	client *http.Client
	queue  chan wire.Message

	mu       sync.RWMutex
	webhooks []config.WebhookConfig
}

// New creates a Notifier for webhooks. An empty list is valid; messages are
// then dropped without being queued.
func New(webhooks []config.WebhookConfig) *Notifier {
	return &Notifier{
		client:   &http.Client{Timeout: deliverTimeout},
		queue:    make(chan wire.Message, defaultQueueSize),
		webhooks: webhooks,
	}
}

// SetWebhooks replaces the delivery targets. Used on config reload.
func (n *Notifier) SetWebhooks(webhooks []config.WebhookConfig) {
	n.mu.Lock()
	n.webhooks = webhooks
	n.mu.Unlock()
}

func (n *Notifier) targets() []config.WebhookConfig {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.webhooks
}

// OnMessageCreated queues m for delivery. When the queue is full the message
// is dropped and logged.
func (n *Notifier) OnMessageCreated(m wire.Message) {
	if len(n.targets()) == 0 {
		return
	}
	select {
	case n.queue <- m:
	default:
		slog.Warn("notify: queue full, dropping message", "id", m.ID)
	}
}

// Run delivers queued messages until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-n.queue:
			n.deliver(ctx, m)
		}
	}
}
