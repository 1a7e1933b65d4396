// Package casesession implements CASE (Certificate Authenticated Session
// Establishment, spec §4.14): the Sigma1/Sigma2/Sigma3 handshake that
// stands up a secure session between two nodes already commissioned onto
// the same fabric, authenticated by their operational certificates rather
// than a passcode.
package casesession

import "errors"

var (
	ErrInvalidState           = errors.New("case: invalid state for operation")
	ErrInvalidDestination     = errors.New("case: invalid destination identifier")
	ErrInvalidCertificate     = errors.New("case: certificate validation failed")
	ErrSignatureInvalid       = errors.New("case: signature verification failed")
	ErrDecryptionFailed       = errors.New("case: decryption failed")
	ErrResumptionFailed       = errors.New("case: session resumption failed")
	ErrInvalidResumeMIC       = errors.New("case: invalid resumption MIC")
	ErrInvalidMessage         = errors.New("case: invalid message format")
	ErrInvalidRandom          = errors.New("case: invalid random size")
	ErrMissingResumptionField = errors.New("case: resumption requires both resumptionID and initiatorResumeMIC")
	ErrInvalidStatusReport    = errors.New("case: received failure status report")
	ErrSessionNotReady        = errors.New("case: session not yet established")
)

// Role identifies which side of the handshake a Session drives.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleResponder {
		return "Responder"
	}
	return "Initiator"
}

// State is the CASE handshake state machine (spec §4.14.2.3).
type State int

const (
	StateInit State = iota
	StateWaitingSigma2
	StateWaitingSigma2Resume
	StateWaitingSigma3
	StateWaitingStatusReport
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateWaitingSigma2:
		return "WaitingSigma2"
	case StateWaitingSigma2Resume:
		return "WaitingSigma2Resume"
	case StateWaitingSigma3:
		return "WaitingSigma3"
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

// SessionKeys holds the derived session encryption keys (spec §4.14.2.6).
type SessionKeys struct {
	I2RKey               [SessionKeySize]byte
	R2IKey               [SessionKeySize]byte
	AttestationChallenge [SessionKeySize]byte
}

// ResumptionInfo is what a Session persists after StateComplete so that a
// later CASE run with the same peer can resume instead of running the
// full signature-and-certificate exchange again (spec §4.14.2.3).
type ResumptionInfo struct {
	ResumptionID [ResumptionIDSize]byte
	SharedSecret []byte
	PeerNodeID   uint64
	PeerCATs     []uint32
}

// PeerCertInfo is what a certificate chain validator extracts from a
// peer's NOC (and ICAC, if present) once the chain is confirmed to lead
// to a trusted root.
type PeerCertInfo struct {
	NodeID    uint64
	FabricID  uint64
	PublicKey [EphPubKeySize]byte
}

// ValidatePeerCertChainFunc verifies a peer's operational certificate
// chain against a trusted root and extracts its identity. Session calls
// this once per handshake, on whichever side receives the peer's NOC.
type ValidatePeerCertChainFunc func(noc, icac []byte, trustedRootPubKey [EphPubKeySize]byte) (*PeerCertInfo, error)
