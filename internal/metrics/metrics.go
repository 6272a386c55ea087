// Package metrics exposes relay outcomes in Prometheus format.
// Collectors are fed from the observability event bus, so the relay itself
// has no dependency on this package.
package metrics

import (
	"net/http"
	"time"

	"slackgram/internal/bus"
	"slackgram/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry
	start    time.Time

	Results        *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	IdentityLookup *prometheus.CounterVec
}

// New creates a registry with the relay collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		start:    time.Now(),
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slackgram_relay_results_total",
			Help: "Relay outcomes by status and reason.",
		}, []string{"status", "reason"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slackgram_relay_duration_seconds",
			Help:    "Time from event receipt to relay outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"status"}),
		IdentityLookup: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slackgram_identity_lookups_total",
			Help: "Sender directory lookups by outcome.",
		}, []string{"outcome"}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "slackgram_uptime_seconds",
		Help: "Time since start in seconds.",
	}, func() float64 { return time.Since(m.start).Seconds() })
	return m
}

// Subscribe feeds the collectors from relay and lookup events on eb.
func (m *Metrics) Subscribe(eb *bus.EventBus) {
	for _, t := range []string{bus.EventRelayDelivered, bus.EventRelaySkipped, bus.EventRelayFailed} {
		eb.On(t, m.observeResult)
	}
	eb.On(bus.EventIdentityLookup, func(e bus.Event) {
		outcome, _ := e.Payload["outcome"].(string)
		if outcome == "" {
			return
		}
		m.IdentityLookup.WithLabelValues(outcome).Inc()
	})
}

func (m *Metrics) observeResult(e bus.Event) {
	res, ok := bus.ResultFrom(e)
	if !ok {
		return
	}
	status := string(res.Status)
	m.Results.WithLabelValues(status, res.Reason).Inc()
	// skips make no network calls, so they get no latency sample
	if res.Status != domain.StatusSkipped {
		m.Duration.WithLabelValues(status).Observe(res.Elapsed.Seconds())
	}
}

// Handler renders the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
