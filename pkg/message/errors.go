// Package message implements Matter's plaintext/protocol message headers,
// AES-128-CCM secure framing, message counters with replay detection, and
// the fixed-layout StatusReport wire format.
package message

import "errors"

var (
	ErrMessageTooShort    = errors.New("message: data too short")
	ErrInvalidVersion     = errors.New("message: invalid version (must be 0)")
	ErrInvalidSessionType = errors.New("message: invalid session type")
	ErrInvalidDSIZ        = errors.New("message: invalid destination size field")
	ErrMissingSourceNode  = errors.New("message: group session requires source node id")

	ErrMessageTooLong      = errors.New("message: exceeds maximum size")
	ErrPayloadTooShort     = errors.New("message: payload too short for protocol header")
	ErrStreamReadFailed    = errors.New("message: failed to read from stream")
	ErrInvalidLengthPrefix = errors.New("message: invalid length prefix")

	ErrAuthFailed   = errors.New("message: decryption/authentication failed")
	ErrInvalidKey   = errors.New("message: invalid encryption key")
	ErrSessionMismatch = errors.New("message: session id mismatch")

	ErrReplayDetected    = errors.New("message: replay detected")
	ErrCounterTooOld     = errors.New("message: counter too old")
	ErrCounterExhausted  = errors.New("message: message counter exhausted")
)

const (
	MessageVersion uint8 = 0

	// MinHeaderSize: Message Flags(1) + Session ID(2) + Security Flags(1) + Counter(4).
	MinHeaderSize = 8

	// MinProtocolHeaderSize: Exchange Flags(1) + Opcode(1) + Exchange ID(2) + Protocol ID(2).
	MinProtocolHeaderSize = 6

	// MaxUDPMessageSize is the IPv6 minimum MTU (spec §4.4/§6).
	MaxUDPMessageSize = 1280

	// MaxTCPMessageSize bounds a single length-prefixed TCP frame. TCP
	// exists to carry IM traffic too large for a UDP datagram, so its
	// ceiling is generous rather than MTU-shaped.
	MaxTCPMessageSize = 1 << 20


	MICSize = 16

	NodeIDSize  = 8
	GroupIDSize = 2

	TCPLengthPrefixSize = 4
	BTPLengthPrefixSize = 2
)

const (
	flagDSIZMask        uint8 = 0x03
	flagSourcePresent   uint8 = 0x04
	flagVersionShift          = 4
	flagVersionMask     uint8 = 0x0F
)

const (
	secFlagSessionTypeMask uint8 = 0x03
	secFlagExtensions      uint8 = 0x20
	secFlagControl         uint8 = 0x40
	secFlagPrivacy         uint8 = 0x80
)

const (
	exchFlagInitiator         uint8 = 0x01
	exchFlagAcknowledgement   uint8 = 0x02
	exchFlagReliability       uint8 = 0x04
	exchFlagSecuredExtensions uint8 = 0x08
	exchFlagVendor            uint8 = 0x10
)

const (
	// CounterWindowSize is the replay-window width (spec §4.7).
	CounterWindowSize = 32

	// CounterInitMax bounds the random initial counter value (2^28, spec §9).
	CounterInitMax = 1 << 28
)

const UnspecifiedNodeID uint64 = 0
