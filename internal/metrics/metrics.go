// Package metrics exposes Prometheus gauges/counters for tick pacing and
// roster size over a private registry, so tests can construct throwaway
// instances without colliding on the global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gauges/counter the tick loop updates once per tick.
type Metrics struct {
	registry      *prometheus.Registry
	PlayersOnline prometheus.Gauge
	TickMSPT      prometheus.Gauge
	TickMaxTPS    prometheus.Gauge
	QueueDrained  prometheus.Counter
}

// New constructs a Metrics instance registered against a fresh, private
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PlayersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxelmp_players_online",
			Help: "Number of sessions currently in the roster.",
		}),
		TickMSPT: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxelmp_tick_mspt",
			Help: "EMA-smoothed milliseconds per tick.",
		}),
		TickMaxTPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxelmp_tick_max_tps",
			Help: "Theoretical maximum ticks per second given the configured tick rate.",
		}),
		QueueDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxelmp_queue_drained_total",
			Help: "Total number of deferred-effect items drained across all ticks.",
		}),
	}
	reg.MustRegister(m.PlayersOnline, m.TickMSPT, m.TickMaxTPS, m.QueueDrained)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
