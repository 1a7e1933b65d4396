package pase

import "errors"

// ContextPrefix seeds the SPAKE2+ transcript hash that binds a PASE run
// to the PBKDF parameter exchange that preceded it (spec §4.5.1.3: "CHIP
// PAKE V1 Commissioning", inherited from the reference implementation's
// naming even though PAKE and PASE are the same handshake here).
const ContextPrefix = "CHIP PAKE V1 Commissioning"

// SessionKeySize is the width of the derived I2R/R2I keys (AES-128).
const SessionKeySize = 16

// AttestationChallengeSize is the width of the derived attestation
// challenge (spec §4.5.2, used by the later attestation exchange).
const AttestationChallengeSize = 16

// PBKDF parameter bounds (spec §3.9).
const (
	PBKDFMinSaltLength = 16
	PBKDFMaxSaltLength = 32
	PBKDFMinIterations = 1000
	PBKDFMaxIterations = 100000
)

// DefaultPasscodeID is the only passcode id this repo's commissioning
// flow uses (spec §5.1.2: multiple concurrent passcodes are out of scope).
const DefaultPasscodeID = 0

var (
	ErrInvalidState       = errors.New("pase: invalid protocol state")
	ErrInvalidMessage     = errors.New("pase: malformed message")
	ErrInvalidPasscode    = errors.New("pase: passcode out of range")
	ErrInvalidSalt        = errors.New("pase: salt length out of bounds")
	ErrInvalidIterations  = errors.New("pase: iteration count out of bounds")
	ErrInvalidPasscodeID  = errors.New("pase: unsupported passcode id")
	ErrRandomMismatch     = errors.New("pase: initiator random echoed incorrectly")
	ErrConfirmationFailed = errors.New("pase: key confirmation failed")
	ErrMissingPBKDFParams = errors.New("pase: no PBKDF parameters available")
)

// State is the PASE handshake state machine (spec §4.5.1 message sequence).
type State int

const (
	StateInit State = iota
	StateWaitingPBKDFResponse // initiator: sent PBKDFParamRequest
	StateWaitingPake1         // responder: sent PBKDFParamResponse
	StateWaitingPake2         // initiator: sent Pake1
	StateWaitingPake3         // responder: sent Pake2
	StateWaitingStatusReport  // initiator: sent Pake3
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateWaitingPBKDFResponse:
		return "WaitingPBKDFResponse"
	case StateWaitingPake1:
		return "WaitingPake1"
	case StateWaitingPake2:
		return "WaitingPake2"
	case StateWaitingPake3:
		return "WaitingPake3"
	case StateWaitingStatusReport:
		return "WaitingStatusReport"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// SessionKeys are the symmetric keys a completed PASE handshake hands to
// session.Context.Commit.
type SessionKeys struct {
	I2RKey               [SessionKeySize]byte
	R2IKey               [SessionKeySize]byte
	AttestationChallenge [AttestationChallengeSize]byte
}

// deniedPasscodes are the repeated-digit and sequential setup codes spec
// §5.1.7 bans outright, regardless of PAKE math validity.
var deniedPasscodes = [...]uint32{
	0, 11111111, 22222222, 33333333, 44444444, 55555555,
	66666666, 77777777, 88888888, 99999999, 12345678, 87654321,
}

// ValidatePasscode rejects out-of-range and denylisted setup codes
// (spec §5.1.7): at most 8 digits, and not one of the all-same-digit or
// sequential codes a device must never accept.
func ValidatePasscode(passcode uint32) error {
	if passcode > 99_999_999 {
		return ErrInvalidPasscode
	}
	for _, denied := range deniedPasscodes {
		if passcode == denied {
			return ErrInvalidPasscode
		}
	}
	return nil
}

func validatePBKDFParams(salt []byte, iterations uint32) error {
	if len(salt) < PBKDFMinSaltLength || len(salt) > PBKDFMaxSaltLength {
		return ErrInvalidSalt
	}
	if iterations < PBKDFMinIterations || iterations > PBKDFMaxIterations {
		return ErrInvalidIterations
	}
	return nil
}
