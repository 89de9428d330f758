// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "launchpad"

// MetricType identifies a metric inside the collector.
type MetricType string

const (
	TradeCounterType       MetricType = "trade_counter"
	TradeVolumeType        MetricType = "trade_volume"
	ActivePoolsType        MetricType = "active_pools"
	GraduationCounterType  MetricType = "graduation_counter"
	GraduationDurationType MetricType = "graduation_duration"
	DroppedEventsType      MetricType = "dropped_events"
	SweepCounterType       MetricType = "sweep_counter"
)

// Collector owns a private registry so tests and multiple engines never
// collide on the global one.
type Collector struct {
	registry *prometheus.Registry
	metrics  sync.Map

	trades             *prometheus.CounterVec
	volume             *prometheus.CounterVec
	activePools        prometheus.Gauge
	graduations        *prometheus.CounterVec
	graduationDuration *prometheus.HistogramVec
	droppedEvents      prometheus.Counter
	sweeps             *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of executed trades",
			},
			[]string{"side"},
		),
		volume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trade_volume_base_total",
				Help:      "Base asset moved through bonding curves, in base units",
			},
			[]string{"side"},
		),
		activePools: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_pools",
				Help:      "Number of pools still trading on their curve",
			},
		),
		graduations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graduations_total",
				Help:      "Graduation attempts by outcome",
			},
			[]string{"status", "exchange"},
		),
		graduationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graduation_duration_seconds",
				Help:      "Time taken to settle a graduation",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"exchange"},
		),
		droppedEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Events dropped because the bus queue was full",
			},
		),
		sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_total",
				Help:      "Graduation sweep runs by outcome",
			},
			[]string{"status"},
		),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType:       c.trades,
		TradeVolumeType:        c.volume,
		ActivePoolsType:        c.activePools,
		GraduationCounterType:  c.graduations,
		GraduationDurationType: c.graduationDuration,
		DroppedEventsType:      c.droppedEvents,
		SweepCounterType:       c.sweeps,
	}
	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
	c.registry.MustRegister(collectors.NewGoCollector())
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset zeroes vector metrics. Useful in tests.
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// RecordTrade counts one trade and the base amount it moved.
func (c *Collector) RecordTrade(side string, base uint64) {
	c.trades.WithLabelValues(side).Inc()
	c.volume.WithLabelValues(side).Add(float64(base))
}

func (c *Collector) SetActivePools(n int) {
	c.activePools.Set(float64(n))
}

// RecordGraduation counts a graduation attempt; duration is only observed on success.
func (c *Collector) RecordGraduation(exchange string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.graduations.WithLabelValues(status, exchange).Inc()
	if success {
		c.graduationDuration.WithLabelValues(exchange).Observe(duration.Seconds())
	}
}

func (c *Collector) RecordSweep(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.sweeps.WithLabelValues(status).Inc()
}

// AddDroppedEvents adds to the dropped events counter.
func (c *Collector) AddDroppedEvents(n uint64) {
	if n > 0 {
		c.droppedEvents.Add(float64(n))
	}
}
