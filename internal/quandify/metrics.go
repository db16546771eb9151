package quandify

import "github.com/prometheus/client_golang/prometheus"

var (
	authSuccess = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quandify2mqtt_auth_success_total",
			Help: "Successful logins against the Quandify auth endpoint",
		},
	)
	authFailure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quandify2mqtt_auth_failure_total",
			Help: "Failed logins against the Quandify auth endpoint",
		},
	)
	tokenValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quandify2mqtt_token_valid",
			Help: "Cached id token validity (1=valid, 0=invalid)",
		},
	)
)

// MetricsCollectors returns collectors for the session token lifecycle.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		authSuccess,
		authFailure,
		tokenValid,
	}
}
