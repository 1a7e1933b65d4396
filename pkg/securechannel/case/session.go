package casesession

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/mkniffen/matterd/pkg/crypto"
	"github.com/mkniffen/matterd/pkg/fabric"
)

// FabricLookupFunc identifies which fabric/node a Sigma1's destination ID
// names, tried against every fabric the responder holds.
type FabricLookupFunc func(destinationID [DestinationIDSize]byte, initiatorRandom [RandomSize]byte) (*fabric.Info, *crypto.KeyPair, error)

// ResumptionLookupFunc finds the previous session a resumption Sigma1
// refers to, keyed by resumption id.
type ResumptionLookupFunc func(resumptionID [ResumptionIDSize]byte) (sharedSecret []byte, info *fabric.Info, operationalKey *crypto.KeyPair, ok bool)

// Session drives one side of a CASE handshake end to end (spec §4.14.2.3):
//
//	Initiator                                 Responder
//	----------                                 ----------
//	msg1, _ := Start()                -------->  msg2, resumed, _ := HandleSigma1(msg1)
//	msg3, _ := HandleSigma2(msg2)      -------->  err := HandleSigma3(msg3)
//	HandleStatusReport(err == nil)     <--------
//
// A resumption attempt instead yields Sigma2Resume, completing the
// responder in one round trip; the initiator then calls
// HandleSigma2Resume instead of HandleSigma2.
type Session struct {
	mu sync.Mutex

	role  Role
	state State

	fabricInfo     *fabric.Info
	operationalKey *crypto.KeyPair
	targetNodeID   uint64

	fabricLookup     FabricLookupFunc
	resumptionLookup ResumptionLookupFunc
	certValidator    ValidatePeerCertChainFunc

	localSessionID, peerSessionID uint16
	localRandom, peerRandom       [RandomSize]byte

	ephKeyPair    *crypto.KeyPair
	peerEphPubKey [EphPubKeySize]byte

	sharedSecret []byte
	ipk          [16]byte

	resumptionInfo  *ResumptionInfo
	newResumptionID [ResumptionIDSize]byte
	usedResumption  bool

	msg1Bytes, msg2Bytes, msg3Bytes []byte

	sessionKeys *SessionKeys

	peerNOC, peerICAC []byte
	peerNodeID        uint64

	localMRPParams, peerMRPParams *MRPParameters

	rand io.Reader
}

// NewInitiator builds the operational-node side that opens the handshake
// against a known peer node id on fabricInfo's fabric.
func NewInitiator(fabricInfo *fabric.Info, operationalKey *crypto.KeyPair, targetNodeID uint64) *Session {
	s := &Session{
		role:           RoleInitiator,
		state:          StateInit,
		fabricInfo:     fabricInfo,
		operationalKey: operationalKey,
		targetNodeID:   targetNodeID,
		rand:           rand.Reader,
	}
	copy(s.ipk[:], fabricInfo.IPK)
	return s
}

// NewResponder builds the operational-node side that answers a Sigma1,
// resolving the target fabric/peer via fabricLookup (and, optionally,
// trying resumption first via resumptionLookup).
func NewResponder(fabricLookup FabricLookupFunc, resumptionLookup ResumptionLookupFunc) *Session {
	return &Session{
		role:             RoleResponder,
		state:            StateInit,
		fabricLookup:     fabricLookup,
		resumptionLookup: resumptionLookup,
		rand:             rand.Reader,
	}
}

// WithResumption attaches a prior session's state so Start tries
// resumption instead of a full handshake (initiator only).
func (s *Session) WithResumption(info *ResumptionInfo) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumptionInfo = info
	return s
}

// WithMRPParams sets the local MRP timing advertised in this side's
// Sigma message.
func (s *Session) WithMRPParams(params *MRPParameters) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localMRPParams = params
	return s
}

// WithCertValidator attaches the NOC chain validator. Without one, Session
// skips certificate validation and signature verification — acceptable
// only in tests exercising the key-derivation math in isolation.
func (s *Session) WithCertValidator(validator ValidatePeerCertChainFunc) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certValidator = validator
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) PeerSessionID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerSessionID
}

// Role reports which side of the handshake this Session drives.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// FabricInfo returns the fabric this session authenticated against: the
// initiator's own fabric, or (once HandleSigma1 has matched a destination
// id) the responder's resolved fabric. Nil before that point.
func (s *Session) FabricInfo() *fabric.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fabricInfo
}

func (s *Session) PeerMRPParams() *MRPParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerMRPParams
}

// SessionKeys returns the derived keys once the handshake is complete.
func (s *Session) SessionKeys() (*SessionKeys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateComplete {
		return nil, ErrSessionNotReady
	}
	return s.sessionKeys, nil
}

// UsedResumption reports whether the completed session resumed a prior one.
func (s *Session) UsedResumption() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedResumption
}

// ResumptionID is the id a later CASE run can present to resume this
// session, valid once the session reaches StateComplete.
func (s *Session) ResumptionID() [ResumptionIDSize]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newResumptionID
}

// SharedSecret returns the ECDH shared secret, for persisting alongside
// ResumptionID in a resumption store.
func (s *Session) SharedSecret() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.sharedSecret...)
}

// PeerNodeID returns the peer's validated operational node id, set once
// a cert validator has run, or on an initiator's resumed handshake from
// the ResumptionInfo it resumed with.
func (s *Session) PeerNodeID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerNodeID
}

// Start begins the handshake as initiator, returning Sigma1.
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
	ephKeyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	s.ephKeyPair = ephKeyPair

	var rootPubKey [EphPubKeySize]byte
	copy(rootPubKey[:], s.fabricInfo.RootPublicKey)
	destinationID := GenerateDestinationID(s.localRandom, rootPubKey, uint64(s.fabricInfo.FabricID), s.targetNodeID, s.ipk)

	sigma1 := &Sigma1{
		InitiatorRandom:    s.localRandom,
		InitiatorSessionID: localSessionID,
		DestinationID:      destinationID,
		MRPParams:          s.localMRPParams,
	}
	copy(sigma1.InitiatorEphPubKey[:], ephKeyPair.PublicKeyBytes())

	if s.resumptionInfo != nil {
		sigma1.ResumptionID = &s.resumptionInfo.ResumptionID
		s1rk, err := DeriveS1RK(s.resumptionInfo.SharedSecret, s.localRandom, s.resumptionInfo.ResumptionID)
		if err != nil {
			return nil, err
		}
		mic, err := ComputeResumeMIC(s1rk, Resume1Nonce)
		if err != nil {
			return nil, err
		}
		sigma1.InitiatorResumeMIC = &mic
	}

	data, err := sigma1.Encode()
	if err != nil {
		return nil, err
	}
	s.msg1Bytes = data

	if s.resumptionInfo != nil {
		s.state = StateWaitingSigma2Resume
	} else {
		s.state = StateWaitingSigma2
	}
	return data, nil
}

// HandleSigma1 processes the initiator's opening message as responder,
// returning either Sigma2 (isResumption=false) or Sigma2Resume
// (isResumption=true).
func (s *Session) HandleSigma1(data []byte, localSessionID uint16) (response []byte, isResumption bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateInit {
		return nil, false, ErrInvalidState
	}
	sigma1, err := DecodeSigma1(data)
	if err != nil {
		return nil, false, err
	}

	s.msg1Bytes = data
	s.localSessionID = localSessionID
	s.peerSessionID = sigma1.InitiatorSessionID
	s.peerRandom = sigma1.InitiatorRandom
	s.peerMRPParams = sigma1.MRPParams
	s.peerEphPubKey = sigma1.InitiatorEphPubKey

	if sigma1.HasResumption() && s.resumptionLookup != nil {
		sharedSecret, info, operationalKey, ok := s.resumptionLookup(*sigma1.ResumptionID)
		if ok {
			s1rk, err := DeriveS1RK(sharedSecret, sigma1.InitiatorRandom, *sigma1.ResumptionID)
			if err == nil && VerifyResumeMIC(s1rk, Resume1Nonce, *sigma1.InitiatorResumeMIC) {
				s.fabricInfo = info
				s.operationalKey = operationalKey
				s.sharedSecret = sharedSecret
				copy(s.ipk[:], info.IPK)
				return s.generateSigma2Resume(sigma1)
			}
		}
	}

	info, operationalKey, err := s.fabricLookup(sigma1.DestinationID, sigma1.InitiatorRandom)
	if err != nil {
		return nil, false, err
	}
	s.fabricInfo = info
	s.operationalKey = operationalKey
	copy(s.ipk[:], info.IPK)

	return s.generateSigma2(sigma1)
}

func (s *Session) generateSigma2(sigma1 *Sigma1) ([]byte, bool, error) {
	if _, err := io.ReadFull(s.rand, s.localRandom[:]); err != nil {
		return nil, false, err
	}
	ephKeyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, false, err
	}
	s.ephKeyPair = ephKeyPair
	if _, err := io.ReadFull(s.rand, s.newResumptionID[:]); err != nil {
		return nil, false, err
	}

	s.sharedSecret, err = ephKeyPair.ECDH(sigma1.InitiatorEphPubKey[:])
	if err != nil {
		return nil, false, err
	}

	var responderEphPubKey [EphPubKeySize]byte
	copy(responderEphPubKey[:], ephKeyPair.PublicKeyBytes())

	tbsData2 := &TBSData2{
		ResponderNOC:       s.fabricInfo.NOC,
		ResponderICAC:      s.fabricInfo.ICAC,
		ResponderEphPubKey: responderEphPubKey,
		InitiatorEphPubKey: sigma1.InitiatorEphPubKey,
	}
	tbsData2Bytes, err := tbsData2.Encode()
	if err != nil {
		return nil, false, err
	}
	signature, err := s.operationalKey.Sign(tbsData2Bytes)
	if err != nil {
		return nil, false, err
	}

	tbeData2 := &TBEData2{
		ResponderNOC:  s.fabricInfo.NOC,
		ResponderICAC: s.fabricInfo.ICAC,
		ResumptionID:  s.newResumptionID,
	}
	copy(tbeData2.Signature[:], signature)
	tbeData2Bytes, err := tbeData2.Encode()
	if err != nil {
		return nil, false, err
	}

	s2k, err := DeriveS2K(s.sharedSecret, s.ipk, s.localRandom, responderEphPubKey, s.msg1Bytes)
	if err != nil {
		return nil, false, err
	}
	encrypted2, err := EncryptTBEData(s2k, tbeData2Bytes, Sigma2Nonce)
	if err != nil {
		return nil, false, err
	}

	sigma2 := &Sigma2{
		ResponderRandom:    s.localRandom,
		ResponderSessionID: s.localSessionID,
		ResponderEphPubKey: responderEphPubKey,
		Encrypted2:         encrypted2,
		MRPParams:          s.localMRPParams,
	}
	data, err := sigma2.Encode()
	if err != nil {
		return nil, false, err
	}
	s.msg2Bytes = data
	s.state = StateWaitingSigma3
	return data, false, nil
}

func (s *Session) generateSigma2Resume(sigma1 *Sigma1) ([]byte, bool, error) {
	if _, err := io.ReadFull(s.rand, s.newResumptionID[:]); err != nil {
		return nil, false, err
	}
	s2rk, err := DeriveS2RK(s.sharedSecret, sigma1.InitiatorRandom, s.newResumptionID)
	if err != nil {
		return nil, false, err
	}
	resume2MIC, err := ComputeResumeMIC(s2rk, Resume2Nonce)
	if err != nil {
		return nil, false, err
	}

	sigma2Resume := &Sigma2Resume{
		ResumptionID:       s.newResumptionID,
		Resume2MIC:         resume2MIC,
		ResponderSessionID: s.localSessionID,
		MRPParams:          s.localMRPParams,
	}
	data, err := sigma2Resume.Encode()
	if err != nil {
		return nil, false, err
	}
	s.msg2Bytes = data
	s.usedResumption = true

	s.sessionKeys, err = DeriveResumptionSessionKeys(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes)
	if err != nil {
		return nil, false, err
	}
	s.state = StateComplete
	return data, true, nil
}

// HandleSigma2 processes the responder's reply as initiator, returning
// Sigma3.
func (s *Session) HandleSigma2(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || (s.state != StateWaitingSigma2 && s.state != StateWaitingSigma2Resume) {
		return nil, ErrInvalidState
	}
	sigma2, err := DecodeSigma2(data)
	if err != nil {
		return nil, err
	}
	s.msg2Bytes = data
	s.peerSessionID = sigma2.ResponderSessionID
	s.peerRandom = sigma2.ResponderRandom
	s.peerMRPParams = sigma2.MRPParams
	s.peerEphPubKey = sigma2.ResponderEphPubKey

	s.sharedSecret, err = s.ephKeyPair.ECDH(sigma2.ResponderEphPubKey[:])
	if err != nil {
		return nil, err
	}

	s2k, err := DeriveS2K(s.sharedSecret, s.ipk, sigma2.ResponderRandom, sigma2.ResponderEphPubKey, s.msg1Bytes)
	if err != nil {
		return nil, err
	}
	tbeData2Bytes, err := DecryptTBEData(s2k, sigma2.Encrypted2, Sigma2Nonce)
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	tbeData2, err := DecodeTBEData2(tbeData2Bytes)
	if err != nil {
		return nil, err
	}
	s.peerNOC = tbeData2.ResponderNOC
	s.peerICAC = tbeData2.ResponderICAC
	s.newResumptionID = tbeData2.ResumptionID

	if s.certValidator != nil {
		var rootPubKey [EphPubKeySize]byte
		copy(rootPubKey[:], s.fabricInfo.RootPublicKey)
		peerInfo, err := s.certValidator(tbeData2.ResponderNOC, tbeData2.ResponderICAC, rootPubKey)
		if err != nil {
			s.state = StateFailed
			return nil, ErrInvalidCertificate
		}
		if peerInfo.NodeID != s.targetNodeID {
			s.state = StateFailed
			return nil, ErrInvalidCertificate
		}
		s.peerNodeID = peerInfo.NodeID

		var initiatorEphPubKey [EphPubKeySize]byte
		copy(initiatorEphPubKey[:], s.ephKeyPair.PublicKeyBytes())
		tbsData2 := &TBSData2{
			ResponderNOC:       tbeData2.ResponderNOC,
			ResponderICAC:      tbeData2.ResponderICAC,
			ResponderEphPubKey: sigma2.ResponderEphPubKey,
			InitiatorEphPubKey: initiatorEphPubKey,
		}
		tbsData2Bytes, err := tbsData2.Encode()
		if err != nil {
			return nil, err
		}
		ok, err := crypto.VerifyRaw(peerInfo.PublicKey[:], tbsData2Bytes, tbeData2.Signature[:])
		if err != nil || !ok {
			s.state = StateFailed
			return nil, ErrSignatureInvalid
		}
	}

	return s.generateSigma3()
}

func (s *Session) generateSigma3() ([]byte, error) {
	var initiatorEphPubKey [EphPubKeySize]byte
	copy(initiatorEphPubKey[:], s.ephKeyPair.PublicKeyBytes())

	tbsData3 := &TBSData3{
		InitiatorNOC:       s.fabricInfo.NOC,
		InitiatorICAC:      s.fabricInfo.ICAC,
		InitiatorEphPubKey: initiatorEphPubKey,
		ResponderEphPubKey: s.peerEphPubKey,
	}
	tbsData3Bytes, err := tbsData3.Encode()
	if err != nil {
		return nil, err
	}
	signature, err := s.operationalKey.Sign(tbsData3Bytes)
	if err != nil {
		return nil, err
	}

	tbeData3 := &TBEData3{InitiatorNOC: s.fabricInfo.NOC, InitiatorICAC: s.fabricInfo.ICAC}
	copy(tbeData3.Signature[:], signature)
	tbeData3Bytes, err := tbeData3.Encode()
	if err != nil {
		return nil, err
	}

	s3k, err := DeriveS3K(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes)
	if err != nil {
		return nil, err
	}
	encrypted3, err := EncryptTBEData(s3k, tbeData3Bytes, Sigma3Nonce)
	if err != nil {
		return nil, err
	}

	sigma3 := &Sigma3{Encrypted3: encrypted3}
	data, err := sigma3.Encode()
	if err != nil {
		return nil, err
	}
	s.msg3Bytes = data
	s.state = StateWaitingStatusReport
	return data, nil
}

// HandleSigma2Resume processes a resumption reply as initiator, completing
// the session in one round trip.
func (s *Session) HandleSigma2Resume(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateWaitingSigma2Resume {
		return ErrInvalidState
	}
	if s.resumptionInfo == nil {
		return ErrResumptionFailed
	}
	sigma2Resume, err := DecodeSigma2Resume(data)
	if err != nil {
		return err
	}
	s.msg2Bytes = data
	s.peerSessionID = sigma2Resume.ResponderSessionID
	s.peerMRPParams = sigma2Resume.MRPParams
	s.newResumptionID = sigma2Resume.ResumptionID
	s.sharedSecret = s.resumptionInfo.SharedSecret
	s.peerNodeID = s.resumptionInfo.PeerNodeID

	s2rk, err := DeriveS2RK(s.sharedSecret, s.localRandom, sigma2Resume.ResumptionID)
	if err != nil {
		return err
	}
	if !VerifyResumeMIC(s2rk, Resume2Nonce, sigma2Resume.Resume2MIC) {
		s.state = StateFailed
		return ErrInvalidResumeMIC
	}

	s.sessionKeys, err = DeriveResumptionSessionKeys(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes)
	if err != nil {
		return err
	}
	s.usedResumption = true
	s.state = StateComplete
	return nil
}

// HandleSigma3 processes the initiator's final message as responder.
func (s *Session) HandleSigma3(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleResponder || s.state != StateWaitingSigma3 {
		return ErrInvalidState
	}
	sigma3, err := DecodeSigma3(data)
	if err != nil {
		return err
	}
	s.msg3Bytes = data

	s3k, err := DeriveS3K(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes)
	if err != nil {
		return err
	}
	tbeData3Bytes, err := DecryptTBEData(s3k, sigma3.Encrypted3, Sigma3Nonce)
	if err != nil {
		s.state = StateFailed
		return err
	}
	tbeData3, err := DecodeTBEData3(tbeData3Bytes)
	if err != nil {
		return err
	}
	s.peerNOC = tbeData3.InitiatorNOC
	s.peerICAC = tbeData3.InitiatorICAC

	if s.certValidator != nil {
		var rootPubKey [EphPubKeySize]byte
		copy(rootPubKey[:], s.fabricInfo.RootPublicKey)
		peerInfo, err := s.certValidator(tbeData3.InitiatorNOC, tbeData3.InitiatorICAC, rootPubKey)
		if err != nil {
			s.state = StateFailed
			return ErrInvalidCertificate
		}
		if peerInfo.FabricID != uint64(s.fabricInfo.FabricID) {
			s.state = StateFailed
			return ErrInvalidCertificate
		}
		s.peerNodeID = peerInfo.NodeID

		var responderEphPubKey [EphPubKeySize]byte
		copy(responderEphPubKey[:], s.ephKeyPair.PublicKeyBytes())
		tbsData3 := &TBSData3{
			InitiatorNOC:       tbeData3.InitiatorNOC,
			InitiatorICAC:      tbeData3.InitiatorICAC,
			InitiatorEphPubKey: s.peerEphPubKey,
			ResponderEphPubKey: responderEphPubKey,
		}
		tbsData3Bytes, err := tbsData3.Encode()
		if err != nil {
			return err
		}
		ok, err := crypto.VerifyRaw(peerInfo.PublicKey[:], tbsData3Bytes, tbeData3.Signature[:])
		if err != nil || !ok {
			s.state = StateFailed
			return ErrSignatureInvalid
		}
	}

	s.sessionKeys, err = DeriveSessionKeys(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes, s.msg3Bytes)
	if err != nil {
		return err
	}
	s.state = StateComplete
	return nil
}

// HandleStatusReport completes the initiator side once the responder's
// final StatusReport is known to be a success.
func (s *Session) HandleStatusReport(success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleInitiator || s.state != StateWaitingStatusReport {
		return ErrInvalidState
	}
	if !success {
		s.state = StateFailed
		return ErrInvalidStatusReport
	}
	var err error
	s.sessionKeys, err = DeriveSessionKeys(s.sharedSecret, s.ipk, s.msg1Bytes, s.msg2Bytes, s.msg3Bytes)
	if err != nil {
		return err
	}
	s.state = StateComplete
	return nil
}
