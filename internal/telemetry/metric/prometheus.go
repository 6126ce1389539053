package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "micropay"

// Registry holds all directory server metrics.
type Registry struct {
	registry *prometheus.Registry

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	RateLimited       prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Account metrics
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec

	// Transfer metrics
	TransfersSettled  prometheus.Counter
	TransferVolume    prometheus.Counter
	TransfersRejected *prometheus.CounterVec
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus every micropay metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open client connections",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Request lines rejected by the per-address rate limiter",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled request lines by command and result",
		}, []string{"command", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling latency by command",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"command"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
		TransfersSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_settled_total",
			Help:      "Transfer reports applied to the registry",
		}),
		TransferVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_volume_total",
			Help:      "Sum of settled transfer amounts",
		}),
		TransfersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_rejected_total",
			Help:      "Transfer reports rejected by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		r.ConnectionsActive,
		r.RateLimited,
		r.RequestsTotal,
		r.RequestDuration,
		r.Registrations,
		r.Logins,
		r.TransfersSettled,
		r.TransferVolume,
		r.TransfersRejected,
	)
	return r
}

// Registerer exposes the underlying registry so other components can add
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for scraping in tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// IncConnections marks a newly accepted connection.
func (r *Registry) IncConnections() { r.ConnectionsActive.Inc() }

// DecConnections marks a closed connection.
func (r *Registry) DecConnections() { r.ConnectionsActive.Dec() }

// IncRateLimited counts a rate limited line.
func (r *Registry) IncRateLimited() { r.RateLimited.Inc() }

// RecordRequest counts one handled line and observes its latency.
func (r *Registry) RecordRequest(command, result string, d time.Duration) {
	r.RequestsTotal.WithLabelValues(command, result).Inc()
	r.RequestDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordRegistration counts a registration attempt.
func (r *Registry) RecordRegistration(result string) {
	r.Registrations.WithLabelValues(result).Inc()
}

// RecordLogin counts a login attempt.
func (r *Registry) RecordLogin(result string) {
	r.Logins.WithLabelValues(result).Inc()
}

// RecordTransfer counts a settled transfer of amount.
func (r *Registry) RecordTransfer(amount int64) {
	r.TransfersSettled.Inc()
	r.TransferVolume.Add(float64(amount))
}

// RecordTransferRejected counts a rejected transfer report.
func (r *Registry) RecordTransferRejected(reason string) {
	r.TransfersRejected.WithLabelValues(reason).Inc()
}

// WatchAccounts registers a Collector reading account gauges from stats.
func (r *Registry) WatchAccounts(stats AccountStats) error {
	return r.registry.Register(NewCollector(stats))
}
