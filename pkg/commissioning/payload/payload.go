package payload

import (
	"errors"
	"fmt"
)

// Discriminator bit widths: QR codes carry the full 12-bit value, manual
// pairing codes carry only its top 4 bits (spec §190/§192).
const (
	discriminatorLongBits  = 12
	discriminatorShortBits = 4
)

// Discriminator identifies a node during discovery. It may hold either
// the 12-bit form read from a QR code or the 4-bit form read from a
// manual pairing code; a short discriminator only ever matches the top
// nibble of a long one.
type Discriminator struct {
	value   uint16
	isShort bool
}

// NewLongDiscriminator builds a 12-bit discriminator. Panics if value
// doesn't fit in 12 bits.
func NewLongDiscriminator(value uint16) Discriminator {
	if value > 0xFFF {
		panic(fmt.Sprintf("payload: discriminator %d exceeds 12 bits", value))
	}
	return Discriminator{value: value}
}

// NewShortDiscriminator builds a 4-bit discriminator. Panics if value
// doesn't fit in 4 bits.
func NewShortDiscriminator(value uint8) Discriminator {
	if value > 0xF {
		panic(fmt.Sprintf("payload: discriminator %d exceeds 4 bits", value))
	}
	return Discriminator{value: uint16(value), isShort: true}
}

func (d Discriminator) IsShort() bool { return d.isShort }

// Long returns the 12-bit value. Panics if d is short.
func (d Discriminator) Long() uint16 {
	if d.isShort {
		panic("payload: Long called on a short discriminator")
	}
	return d.value
}

// Short returns the top 4 bits, whether d is already short or long.
func (d Discriminator) Short() uint8 {
	if d.isShort {
		return uint8(d.value)
	}
	return uint8(d.value >> (discriminatorLongBits - discriminatorShortBits))
}

// Matches reports whether d identifies the same node as the 12-bit
// discriminator long: exact equality if d is long, top-nibble equality
// if d is short.
func (d Discriminator) Matches(long uint16) bool {
	if d.isShort {
		return uint8(d.value) == uint8(long>>(discriminatorLongBits-discriminatorShortBits))
	}
	return d.value == long
}

func (d Discriminator) String() string {
	if d.isShort {
		return fmt.Sprintf("short:%d", d.value)
	}
	return fmt.Sprintf("long:%d", d.value)
}

// DiscoveryCapabilities is the QR code's 8-bit rendezvous-method bitmask.
type DiscoveryCapabilities uint8

const (
	DiscoveryCapabilitySoftAP    DiscoveryCapabilities = 1 << 0
	DiscoveryCapabilityBLE       DiscoveryCapabilities = 1 << 1
	DiscoveryCapabilityOnNetwork DiscoveryCapabilities = 1 << 2
	DiscoveryCapabilityWiFiPAF   DiscoveryCapabilities = 1 << 3
	DiscoveryCapabilityNFC       DiscoveryCapabilities = 1 << 4

	knownDiscoveryCapabilities = DiscoveryCapabilitySoftAP | DiscoveryCapabilityBLE |
		DiscoveryCapabilityOnNetwork | DiscoveryCapabilityWiFiPAF | DiscoveryCapabilityNFC
)

func (d DiscoveryCapabilities) Has(flag DiscoveryCapabilities) bool { return d&flag != 0 }

// CommissioningFlow tells a commissioner how the device enters pairing
// mode (spec §190).
type CommissioningFlow uint8

const (
	CommissioningFlowStandard   CommissioningFlow = 0
	CommissioningFlowUserIntent CommissioningFlow = 1
	CommissioningFlowCustom    CommissioningFlow = 2
)

func (c CommissioningFlow) String() string {
	switch c {
	case CommissioningFlowStandard:
		return "Standard"
	case CommissioningFlowUserIntent:
		return "UserIntent"
	case CommissioningFlowCustom:
		return "Custom"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// SetupPayload holds everything a QR code or manual pairing code
// carries about a device's commissioning parameters (spec §190/§192).
type SetupPayload struct {
	Version                  uint8
	VendorID                 uint16
	ProductID                uint16
	CommissioningFlow        CommissioningFlow
	DiscoveryCapabilities    DiscoveryCapabilities
	HasDiscoveryCapabilities bool
	Discriminator            Discriminator
	Passcode                 uint32
}

// ValidationMode trades strictness for forward compatibility.
type ValidationMode int

const (
	// ValidationModeProduce rejects anything not defined by this version
	// of the spec; used before encoding a payload.
	ValidationModeProduce ValidationMode = iota
	// ValidationModeConsume tolerates reserved/future values; used when
	// parsing a payload someone else produced.
	ValidationModeConsume
)

const (
	PasscodeMin = 1
	PasscodeMax = 99999998
)

// invalidPasscodes lists trivially-guessable passcodes the spec forbids
// outright: every repeated digit and the two canonical sequential runs.
var invalidPasscodes = map[uint32]bool{
	0: true, 11111111: true, 22222222: true, 33333333: true, 44444444: true,
	55555555: true, 66666666: true, 77777777: true, 88888888: true, 99999999: true,
	12345678: true, 87654321: true,
}

var (
	ErrInvalidVersion               = errors.New("payload: version must be 0")
	ErrInvalidPasscode              = errors.New("payload: invalid passcode")
	ErrInvalidCommissioningFlow     = errors.New("payload: invalid commissioning flow")
	ErrInvalidDiscoveryCapabilities = errors.New("payload: unknown discovery capability bits set")
)

// ValidatePasscode reports whether passcode is in range and not on the
// forbidden list (spec §190).
func ValidatePasscode(passcode uint32) error {
	if passcode < PasscodeMin || passcode > PasscodeMax {
		return ErrInvalidPasscode
	}
	if invalidPasscodes[passcode] {
		return ErrInvalidPasscode
	}
	return nil
}

func (p *SetupPayload) Validate(mode ValidationMode) error {
	if p.Version != 0 {
		return ErrInvalidVersion
	}
	if err := ValidatePasscode(p.Passcode); err != nil {
		return err
	}
	if mode == ValidationModeProduce {
		if p.CommissioningFlow > CommissioningFlowCustom {
			return ErrInvalidCommissioningFlow
		}
		if p.HasDiscoveryCapabilities && p.DiscoveryCapabilities & ^DiscoveryCapabilities(knownDiscoveryCapabilities) != 0 {
			return ErrInvalidDiscoveryCapabilities
		}
	}
	return nil
}

// IsValidQRCodePayload reports whether p can be encoded as a QR code:
// it needs discovery capabilities and a full 12-bit discriminator.
func (p *SetupPayload) IsValidQRCodePayload(mode ValidationMode) bool {
	if err := p.Validate(mode); err != nil {
		return false
	}
	return p.HasDiscoveryCapabilities && !p.Discriminator.IsShort()
}

func (p *SetupPayload) IsValidManualCode(mode ValidationMode) bool {
	return p.Validate(mode) == nil
}

func (p *SetupPayload) SupportsOnNetworkDiscovery() bool {
	return p.HasDiscoveryCapabilities && p.DiscoveryCapabilities.Has(DiscoveryCapabilityOnNetwork)
}

func (p *SetupPayload) SupportsBLE() bool {
	return p.HasDiscoveryCapabilities && p.DiscoveryCapabilities.Has(DiscoveryCapabilityBLE)
}
