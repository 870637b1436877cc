// Package metrics holds the process-wide Prometheus instruments and the
// HTTP endpoint that serves them in text format.
package metrics

import (
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Callbacks counts responded push notifications by outcome status.
	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_notifications_total",
		Help: "Total number of push notifications responded.",
	}, []string{"status"})

	// Inflight tracks send tasks whose result has not yet been handed to
	// the publisher.
	Inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "push_notifications_in_flight",
		Help: "Number of push notifications in flight",
	})

	// ResponseTimes observes the duration of each spawned send task,
	// from spawn until the handler returns (publishing included).
	ResponseTimes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "http_request_latency_seconds",
		Help: "The HTTP request latencies in seconds",
	})

	// TokenConsumers counts live token-authenticated APNs clients.
	TokenConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apns_token_consumers",
		Help: "Number of token-based consumers to Apple push notification service",
	})

	// CertificateConsumers counts live certificate-authenticated APNs
	// clients.
	CertificateConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apns_certificate_consumers",
		Help: "Number of certificate-based consumers to Apple push notification service",
	})

	// Applications counts tenants with an active upstream client.
	Applications = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "push_notications_number_of_applications",
		Help: "Number of applications sending push notifications",
	})
)

// StatusLabel converts a CamelCase status or reason into the snake_case
// label used on the Callbacks counter, e.g. "BadDeviceToken" →
// "bad_device_token".
func StatusLabel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
