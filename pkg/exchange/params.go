package exchange

import "time"

// MRP constants from spec §4.4.8. Session-level timing (idle/active
// interval and threshold) lives in session.Params, learned from DNS-SD
// or handshake negotiation.
const (
	// MaxTransmissions bounds send attempts for a reliable message before
	// it's considered undeliverable.
	MaxTransmissions = 5

	// BackoffBase/BackoffMultiplier feed cenkalti/backoff's
	// ExponentialBackOff (spec §9 Open Question: base 300ms, multiplier
	// 1.6 approximates the spec's jittered exponential doubling).
	BackoffBase       = 300 * time.Millisecond
	BackoffMultiplier = 1.6
	BackoffJitter     = 0.25

	// StandaloneAckTimeout is how long an exchange waits for a piggyback
	// opportunity before sending a standalone ACK.
	StandaloneAckTimeout = 200 * time.Millisecond
)

// MaxConcurrentExchanges is the recommended per-session cap (spec
// §4.4.5.2): limits counter-window exhaustion from unbounded exchanges.
const MaxConcurrentExchanges = 5
