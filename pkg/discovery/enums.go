// Package discovery advertises and resolves Matter nodes over mDNS/DNS-SD
// (spec §4.12). It is a thin wrapper around github.com/grandcat/zeroconf:
// no mDNS responder or record cache lives in this package, only the
// Matter-specific service names, TXT record shapes, and instance-name
// formats zeroconf needs to be pointed at.
package discovery

// ServiceType identifies which Matter DNS-SD service a record belongs to.
type ServiceType int

const (
	ServiceTypeUnknown ServiceType = iota
	// ServiceTypeCommissionable is advertised by a node ready to be
	// commissioned, as _matterc._udp.
	ServiceTypeCommissionable
	// ServiceTypeOperational is advertised by a node already on a
	// fabric, as _matter._tcp.
	ServiceTypeOperational
)

const (
	ServiceCommissionable = "_matterc._udp"
	ServiceOperational    = "_matter._tcp"
	DefaultDomain         = "local."
)

func (s ServiceType) String() string {
	switch s {
	case ServiceTypeCommissionable:
		return "Commissionable"
	case ServiceTypeOperational:
		return "Operational"
	default:
		return "Unknown"
	}
}

func (s ServiceType) IsValid() bool {
	return s == ServiceTypeCommissionable || s == ServiceTypeOperational
}

// ServiceString returns the DNS-SD service type string for s, or "" if
// s isn't valid.
func (s ServiceType) ServiceString() string {
	switch s {
	case ServiceTypeCommissionable:
		return ServiceCommissionable
	case ServiceTypeOperational:
		return ServiceOperational
	default:
		return ""
	}
}

// CommissioningMode is the commissioning-window state advertised in a
// commissionable node's CM TXT record.
type CommissioningMode int

const (
	CommissioningModeDisabled CommissioningMode = 0
	CommissioningModeBasic    CommissioningMode = 1
	CommissioningModeEnhanced CommissioningMode = 2
)

func (c CommissioningMode) String() string {
	switch c {
	case CommissioningModeDisabled:
		return "Disabled"
	case CommissioningModeBasic:
		return "Basic"
	case CommissioningModeEnhanced:
		return "Enhanced"
	default:
		return "Unknown"
	}
}

func (c CommissioningMode) IsValid() bool {
	return c >= CommissioningModeDisabled && c <= CommissioningModeEnhanced
}
