// Package telemetry содержит Prometheus-коллекторы движка синхронизации.
// Все методы nil-безопасны: компоненты могут работать без метрик (тесты,
// встраивание), не проверяя указатель на каждом вызове.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shiftsync"

// Metrics агрегирует коллекторы всех компонентов движка.
type Metrics struct {
	mutations      *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	confidence     prometheus.Histogram
	clients        prometheus.Gauge
	broadcasts     *prometheus.CounterVec
	queueDrops     prometheus.Counter
	evictions      prometheus.Counter
	bridgeRuns     *prometheus.CounterVec
	bridgeDuration prometheus.Histogram
}

// New регистрирует коллекторы в reg. nil использует реестр по умолчанию.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Store mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "conflicts_total",
			Help:      "Version conflicts by applied strategy.",
		}, []string{"strategy"}),
		confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "confidence",
			Help:      "Confidence of automatic conflict resolution decisions.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "clients",
			Help:      "Currently connected clients.",
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "broadcasts_total",
			Help:      "Events fanned out to subscribers, by topic.",
		}, []string{"topic"}),
		queueDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "queue_drops_total",
			Help:      "Clients disconnected because their outbound queue overflowed.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "heartbeat_evictions_total",
			Help:      "Clients disconnected by the heartbeat monitor.",
		}),
		bridgeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "runs_total",
			Help:      "Persistence bridge reconciliation runs by outcome.",
		}, []string{"outcome"}),
		bridgeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "run_duration_seconds",
			Help:      "Duration of persistence bridge reconciliation runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// MutationObserved учитывает мутацию стора.
func (m *Metrics) MutationObserved(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

// ConflictResolved учитывает разрешенный конфликт.
func (m *Metrics) ConflictResolved(strategy string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(strategy).Inc()
}

// ConfidenceObserved учитывает уверенность авторезолвера.
func (m *Metrics) ConfidenceObserved(confidence float64) {
	if m == nil {
		return
	}
	m.confidence.Observe(confidence)
}

// ClientCount выставляет текущее число подключенных клиентов.
func (m *Metrics) ClientCount(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

// BroadcastSent учитывает доставку события подписчику.
func (m *Metrics) BroadcastSent(topic string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(topic).Inc()
}

// QueueDropped учитывает отключение из-за переполнения очереди.
func (m *Metrics) QueueDropped() {
	if m == nil {
		return
	}
	m.queueDrops.Inc()
}

// ClientEvicted учитывает отключение по heartbeat.
func (m *Metrics) ClientEvicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

// BridgeRun учитывает цикл моста персистентности.
func (m *Metrics) BridgeRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bridgeRuns.WithLabelValues(outcome).Inc()
	m.bridgeDuration.Observe(seconds)
}
