package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for Exchanges.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

var (
	// Exchanges counts command/acknowledgment round trips by outcome.
	Exchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablecal",
		Subsystem: "grbl",
		Name:      "exchanges_total",
		Help:      "Command lines written to the controller, by reply outcome.",
	}, []string{"outcome"})

	// SoftResets counts 0x18 bytes sent while synchronizing.
	SoftResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tablecal",
		Subsystem: "grbl",
		Name:      "soft_resets_total",
		Help:      "Soft resets sent during the startup handshake.",
	})

	// Rejections counts requests refused before any bytes reached the controller.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablecal",
		Subsystem: "grbl",
		Name:      "rejections_total",
		Help:      "Motion requests rejected by envelope or feed-rate checks.",
	}, []string{"reason"})

	// Position is the last acknowledged tool position, per axis, in millimetres.
	Position = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tablecal",
		Subsystem: "grbl",
		Name:      "position_mm",
		Help:      "Last acknowledged tool position.",
	}, []string{"axis"})
)

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
