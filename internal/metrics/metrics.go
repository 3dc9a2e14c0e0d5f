// Package metrics keeps per-run counters and writes them in the node
// exporter textfile format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry       *prometheus.Registry
	exports        *prometheus.CounterVec
	sitesCompleted prometheus.Counter
	sitesPending   prometheus.Gauge
	splitSites     *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lucd_exports_total",
			Help: "Per-year export steps by artifact kind and outcome.",
		}, []string{"kind", "outcome"}),
		sitesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lucd_sites_completed_total",
			Help: "Sites marked downloaded during this run.",
		}),
		sitesPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lucd_sites_pending",
			Help: "Sites not yet downloaded when the run started.",
		}),
		splitSites: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lucd_split_sites",
			Help: "Sites assigned to each dataset split.",
		}, []string{"split"}),
	}
	m.registry.MustRegister(m.exports, m.sitesCompleted, m.sitesPending, m.splitSites)
	return m
}

func (m *Metrics) ObserveExport(kind, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SiteCompleted() {
	if m == nil {
		return
	}
	m.sitesCompleted.Inc()
}

func (m *Metrics) SitesPending(n int) {
	if m == nil {
		return
	}
	m.sitesPending.Set(float64(n))
}

func (m *Metrics) SplitSize(split string, n int) {
	if m == nil {
		return
	}
	m.splitSites.WithLabelValues(split).Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes every metric to path. Empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
