package pase

import (
	"crypto/rand"
	"crypto/subtle"
	"crypto/sha256"
	"io"
	"sync"

	"github.com/mkniffen/matterd/pkg/crypto"
	"github.com/mkniffen/matterd/pkg/crypto/spake2p"
)

// Role records which side of the handshake this Session drives.
type Role int

const (
	RoleInitiator Role = iota // commissioner: knows the passcode
	RoleResponder             // commissionee: holds the verifier
)

func (r Role) String() string {
	if r == RoleResponder {
		return "Responder"
	}
	return "Initiator"
}

// Session runs one side of a PASE handshake end to end: build the next
// outbound message from the previous inbound one, advancing State until
// it reaches StateComplete or StateFailed (spec §4.5.1).
//
//	Initiator                               Responder
//	----------                               ----------
//	req  := Start()                -------->  resp, _ := HandlePBKDFParamRequest(req)
//	pake1, _ := HandlePBKDFParamResponse(resp) -------->  pake2, _ := HandlePake1(pake1)
//	pake3, _ := HandlePake2(pake2)  -------->  ok, _ := HandlePake3(pake3)
//	HandleStatusReport(ok)          <--------  (status report carries ok)
type Session struct {
	mu sync.Mutex

	role  Role
	state State

	passcode   uint32    // initiator only
	w0, w1, l  []byte     // responder's verifier registration record
	salt       []byte
	iterations uint32

	localSessionID, peerSessionID uint16
	localRandom, peerRandom       [RandomSize]byte

	commissioningHash []byte
	prover            *spake2p.Prover
	verifier          *spake2p.Verifier
	keys              spake2p.KeySet
	pA, pB            []byte

	pbkdfReqBytes, pbkdfRespBytes []byte

	localMRPParams, peerMRPParams *MRPParameters

	sessionKeys *SessionKeys
	rand        io.Reader
}

// NewInitiator builds a commissioner-side session from the raw passcode.
func NewInitiator(passcode uint32) (*Session, error) {
	if err := ValidatePasscode(passcode); err != nil {
		return nil, err
	}
	return &Session{role: RoleInitiator, passcode: passcode, rand: rand.Reader}, nil
}

// NewResponder builds a commissionee-side session from the verifier
// registration record (w0, L) a prior ComputeVerifier call produced.
func NewResponder(w0, l, salt []byte, iterations uint32) (*Session, error) {
	if err := validatePBKDFParams(salt, iterations); err != nil {
		return nil, err
	}
	return &Session{
		role: RoleResponder, w0: w0, l: l,
		salt: append([]byte(nil), salt...), iterations: iterations,
		rand: rand.Reader,
	}, nil
}

// SetLocalMRPParams attaches this node's MRP timing to the next message
// this session sends. Call before Start/HandlePBKDFParamRequest.
func (s *Session) SetLocalMRPParams(p *MRPParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localMRPParams = p
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role reports which side of the handshake this Session drives.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) PeerMRPParams() *MRPParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerMRPParams
}

func (s *Session) PeerSessionID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerSessionID
}

// SessionKeys returns the derived keys, or nil before StateComplete.
func (s *Session) SessionKeys() *SessionKeys {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateComplete {
		return nil
	}
	return s.sessionKeys
}

// Start begins the handshake as initiator, returning the PBKDFParamRequest.
func (s *Session) Start(localSessionID uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateInit {
		return nil, ErrInvalidState
	}
	s.localSessionID = localSessionID
	if _, err := io.ReadFull(s.rand, s.localRandom[:]); err != nil {
		return nil, err
	}
	req := &PBKDFParamRequest{
		InitiatorRandom:    s.localRandom,
		InitiatorSessionID: localSessionID,
		PasscodeID:         DefaultPasscodeID,
		HasPBKDFParameters: s.salt != nil,
		MRPParams:          s.localMRPParams,
	}
	data, err := req.Encode()
	if err != nil {
		return nil, err
	}
	s.pbkdfReqBytes = data
	s.state = StateWaitingPBKDFResponse
	return data, nil
}

// HandlePBKDFParamRequest processes the commissioner's request as
// responder, returning the PBKDFParamResponse.
func (s *Session) HandlePBKDFParamRequest(data []byte, localSessionID uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateInit {
		return nil, ErrInvalidState
	}
	req, err := DecodePBKDFParamRequest(data)
	if err != nil {
		return nil, err
	}
	if req.PasscodeID != DefaultPasscodeID {
		return nil, ErrInvalidPasscodeID
	}

	s.pbkdfReqBytes = data
	s.localSessionID = localSessionID
	s.peerSessionID = req.InitiatorSessionID
	s.peerRandom = req.InitiatorRandom
	s.peerMRPParams = req.MRPParams

	if _, err := io.ReadFull(s.rand, s.localRandom[:]); err != nil {
		return nil, err
	}

	resp := &PBKDFParamResponse{
		InitiatorRandom:    req.InitiatorRandom,
		ResponderRandom:    s.localRandom,
		ResponderSessionID: localSessionID,
		MRPParams:          s.localMRPParams,
	}
	if !req.HasPBKDFParameters {
		resp.PBKDFParams = &PBKDFParameters{Iterations: s.iterations, Salt: s.salt}
	}
	respData, err := resp.Encode()
	if err != nil {
		return nil, err
	}
	s.pbkdfRespBytes = respData
	s.computeContext()

	verifier, err := spake2p.NewVerifier(s.commissioningHash, nil, nil, s.w0, s.l, s.rand)
	if err != nil {
		return nil, err
	}
	s.verifier = verifier
	s.state = StateWaitingPake1
	return respData, nil
}

// HandlePBKDFParamResponse processes the responder's reply as initiator,
// returning Pake1.
func (s *Session) HandlePBKDFParamResponse(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateWaitingPBKDFResponse {
		return nil, ErrInvalidState
	}
	resp, err := DecodePBKDFParamResponse(data)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(resp.InitiatorRandom[:], s.localRandom[:]) != 1 {
		return nil, ErrRandomMismatch
	}

	s.pbkdfRespBytes = data
	s.peerSessionID = resp.ResponderSessionID
	s.peerRandom = resp.ResponderRandom
	s.peerMRPParams = resp.MRPParams

	if s.salt == nil && resp.PBKDFParams != nil {
		s.salt = resp.PBKDFParams.Salt
		s.iterations = resp.PBKDFParams.Iterations
	}
	if s.salt == nil || s.iterations == 0 {
		return nil, ErrMissingPBKDFParams
	}
	s.computeContext()

	w0, w1, _, err := spake2p.ComputeVerifier(s.passcode, s.salt, int(s.iterations))
	if err != nil {
		return nil, err
	}
	prover, err := spake2p.NewProver(s.commissioningHash, nil, nil, w0, w1, s.rand)
	if err != nil {
		return nil, err
	}
	s.prover = prover

	pA, err := prover.Start()
	if err != nil {
		return nil, err
	}
	s.pA = pA

	pake1Data, err := (&Pake1{PA: pA}).Encode()
	if err != nil {
		return nil, err
	}
	s.state = StateWaitingPake2
	return pake1Data, nil
}

// HandlePake1 processes the commissioner's share as responder, returning
// Pake2.
func (s *Session) HandlePake1(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateWaitingPake1 {
		return nil, ErrInvalidState
	}
	pake1, err := DecodePake1(data)
	if err != nil {
		return nil, err
	}
	s.pA = pake1.PA

	pB, keys, err := s.verifier.Respond(pake1.PA)
	if err != nil {
		return nil, err
	}
	s.pB = pB
	s.keys = keys

	cB := keys.ConfirmationB(pake1.PA)
	pake2Data, err := (&Pake2{PB: pB, CB: cB}).Encode()
	if err != nil {
		return nil, err
	}
	s.state = StateWaitingPake3
	return pake2Data, nil
}

// HandlePake2 processes the commissionee's share as initiator, returning
// Pake3.
func (s *Session) HandlePake2(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateWaitingPake2 {
		return nil, ErrInvalidState
	}
	pake2, err := DecodePake2(data)
	if err != nil {
		return nil, err
	}
	s.pB = pake2.PB

	keys, err := s.prover.Finish(pake2.PB)
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	s.keys = keys

	if err := spake2p.VerifyConfirmation(keys.ConfirmationB(s.pA), pake2.CB); err != nil {
		s.state = StateFailed
		return nil, ErrConfirmationFailed
	}

	cA := keys.ConfirmationA(pake2.PB)
	pake3Data, err := (&Pake3{CA: cA}).Encode()
	if err != nil {
		return nil, err
	}
	s.state = StateWaitingStatusReport
	return pake3Data, nil
}

// HandlePake3 processes the commissioner's confirmation as responder.
// On success it derives session keys and moves to StateComplete; the
// caller sends a StatusReport reflecting the returned error.
func (s *Session) HandlePake3(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateWaitingPake3 {
		return ErrInvalidState
	}
	pake3, err := DecodePake3(data)
	if err != nil {
		return err
	}
	if err := spake2p.VerifyConfirmation(s.keys.ConfirmationA(s.pB), pake3.CA); err != nil {
		s.state = StateFailed
		return ErrConfirmationFailed
	}
	if err := s.deriveSessionKeys(); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateComplete
	return nil
}

// HandleStatusReport completes the handshake on the initiator side once
// the responder's final StatusReport is known to be a success.
func (s *Session) HandleStatusReport(success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateWaitingStatusReport {
		return ErrInvalidState
	}
	if !success {
		s.state = StateFailed
		return ErrConfirmationFailed
	}
	if err := s.deriveSessionKeys(); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateComplete
	return nil
}

// computeContext binds the transcript hash to the PBKDF exchange that
// preceded it (spec §4.5.1.3): SHA256(ContextPrefix || req || resp).
func (s *Session) computeContext() {
	h := sha256.New()
	h.Write([]byte(ContextPrefix))
	h.Write(s.pbkdfReqBytes)
	h.Write(s.pbkdfRespBytes)
	s.commissioningHash = h.Sum(nil)
}

// deriveSessionKeys splits Ke into I2R/R2I/attestation-challenge
// (spec §4.5.2): HKDF-SHA256(Ke, salt=nil, info="SessionKeys", 48).
func (s *Session) deriveSessionKeys() error {
	derived, err := crypto.HKDFSHA256(s.keys.Ke, nil, []byte("SessionKeys"), 48)
	if err != nil {
		return err
	}
	keys := &SessionKeys{}
	copy(keys.I2RKey[:], derived[0:16])
	copy(keys.R2IKey[:], derived[16:32])
	copy(keys.AttestationChallenge[:], derived[32:48])
	s.sessionKeys = keys
	return nil
}
