// Package metrics defines the small observability interface the node
// actor, exchange manager, session table, transport layer, and IM
// dispatcher emit through. None of those packages import
// prometheus/client_golang directly; only pkg/metrics/prometheus does.
package metrics

// Sink receives node-level counters and gauges. Implementations must be
// safe for concurrent use.
type Sink interface {
	// SetActiveSessions reports the current size of the session table.
	SetActiveSessions(n int)

	// SetActiveExchanges reports the current number of open exchanges.
	SetActiveExchanges(n int)

	// RecordRetransmit counts one MRP retransmission.
	RecordRetransmit()

	// SetActiveSubscriptions reports the current number of live IM
	// subscriptions.
	SetActiveSubscriptions(n int)

	// RecordIMError counts one Interaction Model response carrying
	// statusCode as a failure status.
	RecordIMError(statusCode uint8)

	// RecordBytesSent counts n bytes written out over a link of the
	// given kind ("UDP", "TCP", "BTP").
	RecordBytesSent(kind string, n int)

	// RecordBytesReceived counts n bytes read in from a link of the
	// given kind.
	RecordBytesReceived(kind string, n int)
}

// NopSink discards every observation. It is the zero-overhead default
// when a node is built without a metrics backend.
type NopSink struct{}

func (NopSink) SetActiveSessions(int)         {}
func (NopSink) SetActiveExchanges(int)        {}
func (NopSink) RecordRetransmit()             {}
func (NopSink) SetActiveSubscriptions(int)    {}
func (NopSink) RecordIMError(uint8)           {}
func (NopSink) RecordBytesSent(string, int)   {}
func (NopSink) RecordBytesReceived(string, int) {}

var _ Sink = NopSink{}
