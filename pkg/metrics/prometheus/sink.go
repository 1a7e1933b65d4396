// Package prometheus implements metrics.Sink with real Prometheus
// collectors, registered against a caller-supplied registry so
// cmd/matterd controls what gets exposed on its /metrics endpoint.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkniffen/matterd/pkg/metrics"
)

// Sink is the Prometheus-backed metrics.Sink.
type Sink struct {
	activeSessions      prometheus.Gauge
	activeExchanges     prometheus.Gauge
	retransmitsTotal    prometheus.Counter
	activeSubscriptions prometheus.Gauge
	imErrorsTotal       *prometheus.CounterVec
	bytesSentTotal      *prometheus.CounterVec
	bytesReceivedTotal  *prometheus.CounterVec
}

// New creates the Prometheus-backed metrics.Sink.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func New() metrics.Sink {
	if !IsEnabled() {
		return nil
	}

	factory := promauto.With(Registry())
	return &Sink{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "matterd_active_sessions",
			Help: "Number of entries currently in the secure session table.",
		}),
		activeExchanges: factory.NewGauge(prometheus.GaugeOpts{
			Name: "matterd_active_exchanges",
			Help: "Number of exchanges currently open.",
		}),
		retransmitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "matterd_mrp_retransmits_total",
			Help: "Total number of MRP message retransmissions.",
		}),
		activeSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "matterd_active_subscriptions",
			Help: "Number of live Interaction Model subscriptions.",
		}),
		imErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matterd_im_errors_total",
			Help: "Total number of Interaction Model responses carrying a failure status, by status code.",
		}, []string{"status_code"}),
		bytesSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matterd_transport_bytes_sent_total",
			Help: "Total bytes written to the network, by link kind.",
		}, []string{"kind"}),
		bytesReceivedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matterd_transport_bytes_received_total",
			Help: "Total bytes read from the network, by link kind.",
		}, []string{"kind"}),
	}
}

func (s *Sink) SetActiveSessions(n int)  { s.activeSessions.Set(float64(n)) }
func (s *Sink) SetActiveExchanges(n int) { s.activeExchanges.Set(float64(n)) }
func (s *Sink) RecordRetransmit()        { s.retransmitsTotal.Inc() }

func (s *Sink) SetActiveSubscriptions(n int) { s.activeSubscriptions.Set(float64(n)) }

func (s *Sink) RecordIMError(statusCode uint8) {
	s.imErrorsTotal.WithLabelValues(statusCodeLabel(statusCode)).Inc()
}

func (s *Sink) RecordBytesSent(kind string, n int) {
	s.bytesSentTotal.WithLabelValues(kind).Add(float64(n))
}

func (s *Sink) RecordBytesReceived(kind string, n int) {
	s.bytesReceivedTotal.WithLabelValues(kind).Add(float64(n))
}

func statusCodeLabel(statusCode uint8) string {
	const hexDigits = "0123456789ABCDEF"
	return "0x" + string([]byte{hexDigits[statusCode>>4], hexDigits[statusCode&0xF]})
}

var _ metrics.Sink = (*Sink)(nil)
