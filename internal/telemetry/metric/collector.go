package metric

import "github.com/prometheus/client_golang/prometheus"

// AccountStats is the read side of the account registry.
type AccountStats interface {
	Count() int
	OnlineCount() int
}

// Collector reports account registry gauges at scrape time so the
// registry does not have to push every presence change.
type Collector struct {
	stats AccountStats

	registered *prometheus.Desc
	online     *prometheus.Desc
}

// NewCollector creates a collector reading from stats.
func NewCollector(stats AccountStats) *Collector {
	return &Collector{
		stats: stats,
		registered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "accounts_registered"),
			"Number of registered accounts",
			nil, nil,
		),
		online: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "accounts_online"),
			"Number of accounts currently logged in",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registered
	ch <- c.online
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.GaugeValue, float64(c.stats.Count()))
	ch <- prometheus.MustNewConstMetric(c.online, prometheus.GaugeValue, float64(c.stats.OnlineCount()))
}
