package poller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exposes the coordinator snapshot as Prometheus metrics.
// It only reads the snapshot; scrapes never trigger vendor API calls.
type MetricsCollector struct {
	poller         *Poller
	organizationID string

	daily       *prometheus.GaugeVec
	hourly      *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
	success     prometheus.Gauge
	failures    prometheus.Gauge
}

func NewMetricsCollector(poller *Poller, organizationID string) *MetricsCollector {
	labels := []string{"organization_id"}
	return &MetricsCollector{
		poller:         poller,
		organizationID: organizationID,
		daily: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quandify2mqtt_water_daily_liters",
			Help: "Water consumed since local midnight",
		}, labels),
		hourly: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quandify2mqtt_water_hourly_liters",
			Help: "Water consumed over the last hour",
		}, labels),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quandify2mqtt_last_success_timestamp_seconds",
			Help: "Last successful refresh timestamp (epoch seconds)",
		}, labels),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quandify2mqtt_refresh_success",
			Help: "Last refresh success (1=ok, 0=error)",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quandify2mqtt_consecutive_failures",
			Help: "Refresh failures since the last success",
		}),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.daily.Describe(ch)
	c.hourly.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.success.Describe(ch)
	c.failures.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.poller.Snapshot()

	if snap.HasData() {
		labels := prometheus.Labels{"organization_id": c.organizationID}
		c.daily.With(labels).Set(snap.Daily.VolumeLiters)
		c.hourly.With(labels).Set(snap.Hourly.VolumeLiters)
		c.lastSuccess.With(labels).Set(float64(snap.LastSuccess.Unix()))
	}
	c.success.Set(boolToFloat(snap.HasData() && !snap.Stale))
	c.failures.Set(float64(snap.ConsecutiveFailures))

	c.daily.Collect(ch)
	c.hourly.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.success.Collect(ch)
	c.failures.Collect(ch)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
