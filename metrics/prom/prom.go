// Package prom exports a store's counters as Prometheus metrics.
//
// Stores keep their own monotone counters (memostore.Stats); the Collector
// here reads a snapshot on every scrape rather than receiving callbacks, so
// wiring it up costs the store nothing on the hot path.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/memostore"
)

// Collector exposes one store's hit/miss/insertion/eviction counters. The
// cache label distinguishes multiple stores on one registry.
type Collector struct {
	stats func() memostore.Snapshot

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	insertions *prometheus.Desc
	evictions  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector for a store identified by cache. stats is
// typically the store's Stats method.
func NewCollector(cache string, stats func() memostore.Snapshot) *Collector {
	labels := prometheus.Labels{"cache": cache}
	return &Collector{
		stats: stats,
		hits: prometheus.NewDesc(
			"memostore_hits_total", "Cache hits.", nil, labels),
		misses: prometheus.NewDesc(
			"memostore_misses_total", "Cache misses.", nil, labels),
		insertions: prometheus.NewDesc(
			"memostore_insertions_total", "Cache insertions, overwrites included.", nil, labels),
		evictions: prometheus.NewDesc(
			"memostore_evictions_total", "Capacity-driven evictions.", nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.insertions
	ch <- c.evictions
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.insertions, prometheus.CounterValue, float64(s.Insertions))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
}
