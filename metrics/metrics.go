package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resetmon"

// Lookup outcome label values.
const (
	OutcomeResolved = "resolved"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds the prometheus collectors for the pipeline and the resolver.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	MessagesReceived prometheus.Counter
	ParseFailures    prometheus.Counter
	EventsEmitted    prometheus.Counter
	ResolveFailures  prometheus.Counter

	Lookups      *prometheus.CounterVec
	CacheHits    prometheus.Counter
	CacheEntries prometheus.Gauge

	registry *prometheus.Registry
}

// New creates all collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Lines delivered by the subscriber",
	})
	m.ParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_failures_total",
		Help:      "Lines dropped because they are not reset messages",
	})
	m.EventsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_emitted_total",
		Help:      "Resolved reset events handed to the outputer",
	})
	m.ResolveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolve_failures_total",
		Help:      "Reset events skipped because an address could not be resolved",
	})

	m.Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "lookups_total",
		Help:      "Reverse lookups performed, by outcome",
	}, []string{"outcome"})
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "cache_hits_total",
		Help:      "Resolutions answered from the cache",
	})
	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "cache_entries",
		Help:      "Addresses currently held in the resolution cache",
	})

	m.registry.MustRegister(
		m.MessagesReceived,
		m.ParseFailures,
		m.EventsEmitted,
		m.ResolveFailures,
		m.Lookups,
		m.CacheHits,
		m.CacheEntries,
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) MessageReceived() {
	if m != nil {
		m.MessagesReceived.Inc()
	}
}

func (m *Metrics) ParseFailed() {
	if m != nil {
		m.ParseFailures.Inc()
	}
}

func (m *Metrics) EventEmitted() {
	if m != nil {
		m.EventsEmitted.Inc()
	}
}

func (m *Metrics) ResolveFailed() {
	if m != nil {
		m.ResolveFailures.Inc()
	}
}

// LookupDone counts one reverse lookup with the given outcome label.
func (m *Metrics) LookupDone(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) SetCacheEntries(n int) {
	if m != nil {
		m.CacheEntries.Set(float64(n))
	}
}
