package session

import "time"

// MRP timing defaults (spec §9 Open Question, resolved in DESIGN.md):
// SESSION_IDLE_INTERVAL / SESSION_ACTIVE_INTERVAL / SESSION_ACTIVE_THRESHOLD.
const (
	DefaultIdleInterval    = 500 * time.Millisecond
	DefaultActiveInterval  = 300 * time.Millisecond
	DefaultActiveThreshold = 4000 * time.Millisecond
)

// Params carries the per-session MRP retry timing, as learned from a
// peer's DNS-SD TXT record or left at the spec defaults.
type Params struct {
	IdleInterval    time.Duration
	ActiveInterval  time.Duration
	ActiveThreshold time.Duration
}

// DefaultParams returns the spec-compliant defaults.
func DefaultParams() Params {
	return Params{
		IdleInterval:    DefaultIdleInterval,
		ActiveInterval:  DefaultActiveInterval,
		ActiveThreshold: DefaultActiveThreshold,
	}
}

// WithDefaults fills any zero field with its spec default.
func (p Params) WithDefaults() Params {
	if p.IdleInterval == 0 {
		p.IdleInterval = DefaultIdleInterval
	}
	if p.ActiveInterval == 0 {
		p.ActiveInterval = DefaultActiveInterval
	}
	if p.ActiveThreshold == 0 {
		p.ActiveThreshold = DefaultActiveThreshold
	}
	return p
}
