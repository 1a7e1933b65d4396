package exchange

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// newRetransmitBackoff builds the per-attempt MRP backoff schedule for a
// session's idle/active interval (spec §9 Open Question resolution):
// base*margin, growing by a factor of BackoffMultiplier per attempt, with
// jitter.
// cenkalti/backoff has no attempt cap of its own; MaxTransmissions is
// enforced by the retransmit table's caller instead.
func newRetransmitBackoff(baseInterval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(float64(baseInterval) * 1.1)
	if b.InitialInterval <= 0 {
		b.InitialInterval = BackoffBase
	}
	b.Multiplier = BackoffMultiplier
	b.RandomizationFactor = BackoffJitter
	b.MaxInterval = 0 // unbounded; MaxTransmissions caps attempt count instead
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// reliabilityLimiter throttles a peer's reliable (R-flagged) inbound
// traffic: a misbehaving or malicious peer's excess reliable messages are
// dropped (the manager returns ErrThrottled before acking or dispatching
// them; no StatusReport is sent) rather than driving unbounded
// ACK/retransmit bookkeeping
// (domain-stack addition grounded on the go-fdo-server example's use of
// golang.org/x/time/rate for request shaping).
type reliabilityLimiter struct {
	limiters map[exchangeKey]*rate.Limiter
}

func newReliabilityLimiter() *reliabilityLimiter {
	return &reliabilityLimiter{limiters: make(map[exchangeKey]*rate.Limiter)}
}

// Allow reports whether a newly-received reliable message for key should
// be processed, rate-limiting to 8 messages/sec with a burst of 16 per
// exchange.
func (l *reliabilityLimiter) Allow(key exchangeKey) bool {
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(8), 16)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

func (l *reliabilityLimiter) Remove(key exchangeKey) {
	delete(l.limiters, key)
}
