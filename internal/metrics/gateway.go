package metrics

import "github.com/prometheus/client_golang/prometheus"

// Content gateway Prometheus metrics.
var (
	GatewayFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inkdex",
			Name:      "gateway_fetch_total",
			Help:      "Total number of gateway body fetch attempts",
		},
		[]string{"endpoint", "status"},
	)

	GatewayFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inkdex",
			Name:      "gateway_fetch_duration_seconds",
			Help:      "Gateway body fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	GatewayFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inkdex",
			Name:      "gateway_fallback_total",
			Help:      "Fallback hops taken after a rejected primary fetch",
		},
		[]string{"reason"}, // "transport" / "status"
	)
)

var gatewayMetricsRegistered bool

// RegisterGatewayMetrics registers gateway metrics. Must be called once from main.
func RegisterGatewayMetrics() {
	if gatewayMetricsRegistered {
		return
	}
	prometheus.MustRegister(GatewayFetchTotal)
	prometheus.MustRegister(GatewayFetchDuration)
	prometheus.MustRegister(GatewayFallbackTotal)
	gatewayMetricsRegistered = true
}
