package bus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports bus activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	publishes   *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	streams     *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

// NewMetrics creates the bus collectors and registers them with reg.
//
// Example:
//
//	m, err := bus.NewMetrics(prometheus.DefaultRegisterer)
//	b, err := bus.New(bus.WithMetrics(m))
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgbus",
			Name:      "publishes_total",
			Help:      "Total publish calls by kind and result",
		}, []string{"kind", "result"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgbus",
			Name:      "invocations_total",
			Help:      "Total subscriber invocations by subscription and result",
		}, []string{"subscription", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "msgbus",
			Name:      "invocation_duration_seconds",
			Help:      "Subscriber invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"subscription"}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgbus",
			Name:      "stream_subscribers_total",
			Help:      "Finished stream subscribers by final stream state",
		}, []string{"subscription", "state"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgbus",
			Name:      "resolver_cache_events_total",
			Help:      "Resolver cache lookups by event",
		}, []string{"event"}),
	}

	for _, c := range []prometheus.Collector{m.publishes, m.invocations, m.duration, m.streams, m.cache} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *Metrics) observePublish(kind string, err error) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(kind, resultLabel(err)).Inc()
}

func (m *Metrics) observeInvocation(subscription string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(subscription, resultLabel(err)).Inc()
	m.duration.WithLabelValues(subscription).Observe(d.Seconds())
}

func (m *Metrics) observeStream(subscription, state string) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(subscription, state).Inc()
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	event := "miss"
	if hit {
		event = "hit"
	}
	m.cache.WithLabelValues(event).Inc()
}
