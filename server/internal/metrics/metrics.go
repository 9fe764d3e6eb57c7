package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// Metric names exposed on /metrics.
const (
	MessagesCreated = "chirpwall_messages_created_total"
	Operations      = "chirpwall_operations_total"
	Connections     = "chirpwall_connections_active"
	Pushes          = "chirpwall_pushes_total"
	PushFailures    = "chirpwall_push_failures_total"
)

type opKey struct {
	operation string
	outcome   string
}

// Metrics collects the server's counters. All methods are safe for
// concurrent use; the zero value is not usable, call New.
type Metrics struct {
	messagesCreated atomic.Uint64
	connections     atomic.Int64
	pushFailures    atomic.Uint64

	mu         sync.Mutex
	operations map[opKey]uint64
	pushes     map[string]uint64
}

// New returns an empty Metrics.
func New() *Metrics {
	return &Metrics{
		operations: make(map[opKey]uint64),
		pushes:     make(map[string]uint64),
	}
}

// OnMessageCreated counts created messages. It lets Metrics be registered
// as a dispatcher publisher.
func (m *Metrics) OnMessageCreated(wire.Message) {
	m.messagesCreated.Add(1)
}

// ObserveOperation counts one dispatched operation by name and outcome.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	m.mu.Lock()
	m.operations[opKey{operation, outcome}]++
	m.mu.Unlock()
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() { m.connections.Add(1) }

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() { m.connections.Add(-1) }

// PushSent counts one enqueued push of the given kind ("snapshot" or
// "incremental").
func (m *Metrics) PushSent(kind string) {
	m.mu.Lock()
	m.pushes[kind]++
	m.mu.Unlock()
}

// PushFailed counts one push that could not be enqueued.
func (m *Metrics) PushFailed() { m.pushFailures.Add(1) }

// Families renders the current values as Prometheus metric families, sorted
// by name.
func (m *Metrics) Families() []*dto.MetricFamily {
	m.mu.Lock()
	ops := make(map[opKey]uint64, len(m.operations))
	for k, v := range m.operations {
		ops[k] = v
	}
	pushes := make(map[string]uint64, len(m.pushes))
	for k, v := range m.pushes {
		pushes[k] = v
	}
	m.mu.Unlock()

	opKeys := lo.Keys(ops)
	sort.Slice(opKeys, func(i, j int) bool {
		if opKeys[i].operation != opKeys[j].operation {
			return opKeys[i].operation < opKeys[j].operation
		}
		return opKeys[i].outcome < opKeys[j].outcome
	})
	pushKinds := lo.Keys(pushes)
	sort.Strings(pushKinds)

	return []*dto.MetricFamily{
		counterFamily(MessagesCreated, "Messages appended to the board.",
			counter(float64(m.messagesCreated.Load()))),
		counterFamily(Operations, "One-shot operations by name and outcome.",
			lo.Map(opKeys, func(k opKey, _ int) *dto.Metric {
				return counter(float64(ops[k]), label("operation", k.operation), label("outcome", k.outcome))
			})...),
		{
			Name:   proto.String(Connections),
			Help:   proto.String("Currently registered persistent connections."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(float64(m.connections.Load()))}}},
		},
		counterFamily(Pushes, "Pushes enqueued to persistent connections by kind.",
			lo.Map(pushKinds, func(k string, _ int) *dto.Metric {
				return counter(float64(pushes[k]), label("kind", k))
			})...),
		counterFamily(PushFailures, "Pushes dropped because the connection was closed or too slow.",
			counter(float64(m.pushFailures.Load()))),
	}
}

// ServeHTTP writes all families in the Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range m.Families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func counterFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label:   labels,
		Counter: &dto.Counter{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
