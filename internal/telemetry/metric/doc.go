// Package metric provides Prometheus metrics for micropay.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, recording helpers and HTTP handler
//   - collector.go: scrape-time collector for account registry gauges
//
// Metrics include:
//
//   - Active connection gauge and per-command request counters/latency
//   - Registration and login outcomes
//   - Settled transfer count and volume, rejected transfers by reason
//   - Registered and online account gauges
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
