// Package securechannel implements the Matter Secure Channel protocol:
// PASE and CASE session establishment, MRP standalone acks, and the
// StatusReport-based close/failure path they share (spec §4.5/§4.6).
package securechannel

import (
	"errors"
	"sync"

	"github.com/mkniffen/matterd/pkg/crypto"
	"github.com/mkniffen/matterd/pkg/crypto/spake2p"
	"github.com/mkniffen/matterd/pkg/exchange"
	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/message"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/securechannel/pase"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/transport"
)

var (
	ErrUnexpectedOpcode    = errors.New("securechannel: unexpected opcode for exchange state")
	ErrPeerReportedFailure = errors.New("securechannel: peer sent a failure status report")
	ErrSessionNotReady     = errors.New("securechannel: session keys not ready")
)

// Callbacks notifies the node's upper layers of handshake outcomes. Every
// field may be left nil.
type Callbacks struct {
	// OnSessionEstablished fires once a PASE or CASE session has been
	// committed into the session table and is ready for application use.
	OnSessionEstablished func(localSessionID uint16, kind session.Kind)

	// OnSessionError fires when a handshake fails, naming the stage it
	// failed at ("PASE", "CASE").
	OnSessionError func(err error, stage string)

	// OnSessionClosed fires when a peer's CloseSession StatusReport tears
	// down an established session.
	OnSessionClosed func(localSessionID uint16)
}

// paseResponderConfig is the verifier a device exposes while its
// commissioning window is open (spec §4.5: "the commissionee SHALL have
// generated ... w0, L").
type paseResponderConfig struct {
	w0, l      []byte
	salt       []byte
	iterations uint32
}

// ManagerConfig wires the Manager to the node's shared session/fabric
// state and its exchange layer.
type ManagerConfig struct {
	Exchange      *exchange.Manager
	Sessions      *session.Table
	Fabrics       *fabric.Table
	Resumption    *ResumptionStore
	CertValidator casesession.ValidatePeerCertChainFunc
	Callbacks     Callbacks
}

// Manager is the Secure Channel protocol handler: it registers itself on
// message.ProtocolSecureChannel and turns PBKDFParamRequest/Sigma1
// traffic into committed session.Context entries.
type Manager struct {
	mu sync.Mutex

	exchangeMgr   *exchange.Manager
	sessions      *session.Table
	fabrics       *fabric.Table
	resumption    *ResumptionStore
	certValidator casesession.ValidatePeerCertChainFunc
	callbacks     Callbacks

	paseResponder *paseResponderConfig
}

// NewManager builds a Manager and registers it on the exchange layer for
// message.ProtocolSecureChannel traffic.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Resumption == nil {
		cfg.Resumption = NewResumptionStore()
	}
	m := &Manager{
		exchangeMgr: cfg.Exchange,
		sessions:    cfg.Sessions,
		fabrics:     cfg.Fabrics,
		resumption:  cfg.Resumption,
		callbacks:   cfg.Callbacks,
		certValidator: cfg.CertValidator,
	}
	if cfg.Exchange != nil {
		cfg.Exchange.RegisterProtocol(message.ProtocolSecureChannel, m)
	}
	return m
}

// OpenCommissioningWindow arms the responder side of PASE with a verifier
// computed from passcode. Call with iterations/salt matching whatever the
// node advertises via its discovery/pairing payload (spec §5).
func (m *Manager) OpenCommissioningWindow(passcode uint32, salt []byte, iterations uint32) error {
	w0, _, l, err := spake2p.ComputeVerifier(passcode, salt, int(iterations))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.paseResponder = &paseResponderConfig{w0: w0, l: l, salt: salt, iterations: iterations}
	m.mu.Unlock()
	return nil
}

// CloseCommissioningWindow disarms the PASE responder; any in-flight
// PBKDFParamRequest that arrives afterward is rejected with Busy.
func (m *Manager) CloseCommissioningWindow() {
	m.mu.Lock()
	m.paseResponder = nil
	m.mu.Unlock()
}

// HasOpenCommissioningWindow reports whether a PASE responder verifier is
// currently armed.
func (m *Manager) HasOpenCommissioningWindow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paseResponder != nil
}

// OnUnsolicited implements exchange.Handler: the first message of a new
// Secure Channel exchange is always a handshake's opening move.
func (m *Manager) OnUnsolicited(ctx *exchange.Context, opcode uint8, payload []byte) ([]byte, error) {
	switch Opcode(opcode) {
	case OpcodePBKDFParamRequest:
		return nil, m.acceptPASE(ctx, payload)
	case OpcodeCASESigma1:
		return nil, m.acceptCASE(ctx, payload)
	default:
		ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
		return nil, ErrUnexpectedOpcode
	}
}

// OnMessage implements exchange.Handler. Manager.processFrame only ever
// calls OnUnsolicited for a brand-new exchange; every later message is
// routed through the per-exchange Delegate installed in acceptPASE /
// acceptCASE / StartPASE / StartCASE, so this is unreachable in practice.
func (m *Manager) OnMessage(ctx *exchange.Context, opcode uint8, payload []byte) ([]byte, error) {
	return nil, nil
}

func (m *Manager) acceptPASE(ctx *exchange.Context, payload []byte) error {
	m.mu.Lock()
	cfg := m.paseResponder
	m.mu.Unlock()
	if cfg == nil {
		return ctx.SendMessage(uint8(OpcodeStatusReport), Busy(0).Encode(), true)
	}

	paseSession, err := pase.NewResponder(cfg.w0, cfg.l, cfg.salt, cfg.iterations)
	if err != nil {
		return err
	}
	provisional, err := m.sessions.CreateProvisional(session.KindPASE, session.RoleResponder)
	if err != nil {
		return ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
	}

	resp, err := paseSession.HandlePBKDFParamRequest(payload, provisional.LocalID())
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
	}

	ctx.SetDelegate(&paseDelegate{manager: m, session: paseSession, provisional: provisional})
	return ctx.SendMessage(uint8(OpcodePBKDFParamResponse), resp, true)
}

func (m *Manager) acceptCASE(ctx *exchange.Context, payload []byte) error {
	provisional, err := m.sessions.CreateProvisional(session.KindCASE, session.RoleResponder)
	if err != nil {
		return ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
	}

	responder := casesession.NewResponder(m.fabricLookupFunc(), m.resumption.lookupFunc())
	if m.certValidator != nil {
		responder.WithCertValidator(m.certValidator)
	}

	resp, isResumption, err := responder.HandleSigma1(payload, provisional.LocalID())
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		if errors.Is(err, casesession.ErrInvalidDestination) {
			return ctx.SendMessage(uint8(OpcodeStatusReport), NoSharedTrustRoots().Encode(), true)
		}
		return ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
	}

	ctx.SetDelegate(&caseDelegate{manager: m, session: responder, provisional: provisional})

	opcode := OpcodeCASESigma2
	if isResumption {
		opcode = OpcodeCASESigma2Resume
		if err := m.completeCASE(provisional, responder); err != nil {
			m.sessions.Close(provisional.LocalID())
			return ctx.SendMessage(uint8(OpcodeStatusReport), message.Failure().Encode(), true)
		}
		m.notifyEstablished(provisional.LocalID(), session.KindCASE)
	}
	return ctx.SendMessage(uint8(opcode), resp, true)
}

// StartPASE dials out as the commissioner side of PASE: it allocates a
// provisional session, opens a fresh handshake exchange to peer, and
// sends the PBKDFParamRequest. The handshake then plays out asynchronously
// through paseDelegate; callbacks.OnSessionEstablished / OnSessionError
// report its outcome.
func (m *Manager) StartPASE(passcode uint32, peer transport.PeerAddress) error {
	provisional, err := m.sessions.CreateProvisional(session.KindPASE, session.RoleInitiator)
	if err != nil {
		return err
	}

	paseSession, err := pase.NewInitiator(passcode)
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return err
	}
	req, err := paseSession.Start(provisional.LocalID())
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return err
	}

	exCtx, err := m.exchangeMgr.NewUnsecuredExchange(m.sessions.GlobalCounter(), peer, message.ProtocolSecureChannel,
		&paseDelegate{manager: m, session: paseSession, provisional: provisional})
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return err
	}
	return exCtx.SendMessage(uint8(OpcodePBKDFParamRequest), req, true)
}

// StartCASE dials out as the initiator side of CASE, the usual path for a
// controller opening an operational session to a device (or a device
// talking back to one, e.g. to deliver a subscription report). If this
// node already holds a resumption record for targetNodeID, Sigma1 carries
// it (spec §4.14.2.4) and the responder may skip straight to
// Sigma2Resume; otherwise this runs the full certificate exchange.
func (m *Manager) StartCASE(fabricInfo *fabric.Info, operationalKey *crypto.KeyPair, targetNodeID uint64, peer transport.PeerAddress) error {
	provisional, err := m.sessions.CreateProvisional(session.KindCASE, session.RoleInitiator)
	if err != nil {
		return err
	}

	caseSession := casesession.NewInitiator(fabricInfo, operationalKey, targetNodeID)
	if m.certValidator != nil {
		caseSession.WithCertValidator(m.certValidator)
	}
	if id, sharedSecret, _, _, ok := m.resumption.FindByPeer(targetNodeID); ok {
		caseSession.WithResumption(&casesession.ResumptionInfo{
			ResumptionID: id,
			SharedSecret: sharedSecret,
			PeerNodeID:   targetNodeID,
		})
	}

	msg1, err := caseSession.Start(provisional.LocalID())
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return err
	}

	exCtx, err := m.exchangeMgr.NewUnsecuredExchange(m.sessions.GlobalCounter(), peer, message.ProtocolSecureChannel,
		&caseDelegate{manager: m, session: caseSession, provisional: provisional})
	if err != nil {
		m.sessions.Close(provisional.LocalID())
		return err
	}
	return exCtx.SendMessage(uint8(OpcodeCASESigma1), msg1, true)
}

// fabricLookupFunc resolves a CASE Sigma1's destination id against every
// commissioned fabric by recomputing it and comparing (spec §4.14.2.4).
func (m *Manager) fabricLookupFunc() casesession.FabricLookupFunc {
	return func(destinationID [casesession.DestinationIDSize]byte, initiatorRandom [casesession.RandomSize]byte) (*fabric.Info, *crypto.KeyPair, error) {
		if m.fabrics == nil {
			return nil, nil, casesession.ErrInvalidDestination
		}
		var match *fabric.Info
		m.fabrics.ForEach(func(info *fabric.Info) bool {
			var root [casesession.EphPubKeySize]byte
			copy(root[:], info.RootPublicKey)
			var ipk [16]byte
			copy(ipk[:], info.IPK)
			if casesession.MatchDestinationID(destinationID, initiatorRandom, root, uint64(info.FabricID), uint64(info.NodeID), ipk) {
				match = info
				return false
			}
			return true
		})
		if match == nil {
			return nil, nil, casesession.ErrInvalidDestination
		}
		opKey, err := crypto.KeyPairFromScalar(match.OperationalKey)
		if err != nil {
			return nil, nil, err
		}
		return match, opKey, nil
	}
}

// commitPASE promotes prov to an established session from a completed
// PASE handshake's derived keys (spec §4.5.2).
func (m *Manager) commitPASE(prov *session.Context, s *pase.Session) error {
	keys := s.SessionKeys()
	if keys == nil {
		return ErrSessionNotReady
	}
	encKey, decKey := keys.I2RKey[:], keys.R2IKey[:]
	if s.Role() == pase.RoleResponder {
		encKey, decKey = keys.R2IKey[:], keys.I2RKey[:]
	}
	return prov.Commit(session.CommitConfig{
		PeerSessionID:        s.PeerSessionID(),
		EncryptKey:           encKey,
		DecryptKey:           decKey,
		AttestationChallenge: keys.AttestationChallenge[:],
		Params:               session.DefaultParams(),
	})
}

// completeCASE commits prov from a completed CASE handshake and banks a
// fresh resumption record for next time (spec §4.14.3).
func (m *Manager) completeCASE(prov *session.Context, s *casesession.Session) error {
	if err := m.commitCASE(prov, s); err != nil {
		return err
	}
	fabricInfo := s.FabricInfo()
	if fabricInfo != nil {
		opKey, err := crypto.KeyPairFromScalar(fabricInfo.OperationalKey)
		if err == nil {
			m.resumption.Save(s.ResumptionID(), s.SharedSecret(), fabricInfo, opKey, s.PeerNodeID())
		}
	}
	return nil
}

func (m *Manager) commitCASE(prov *session.Context, s *casesession.Session) error {
	keys, err := s.SessionKeys()
	if err != nil {
		return err
	}
	fabricInfo := s.FabricInfo()
	if fabricInfo == nil {
		return ErrSessionNotReady
	}
	encKey, decKey := keys.I2RKey[:], keys.R2IKey[:]
	if s.Role() == casesession.RoleResponder {
		encKey, decKey = keys.R2IKey[:], keys.I2RKey[:]
	}
	return prov.Commit(session.CommitConfig{
		PeerSessionID:        s.PeerSessionID(),
		EncryptKey:           encKey,
		DecryptKey:           decKey,
		AttestationChallenge: keys.AttestationChallenge[:],
		LocalNodeID:          fabricInfo.NodeID,
		PeerNodeID:           fabric.NodeID(s.PeerNodeID()),
		FabricIndex:          fabricInfo.Index,
		Params:               session.DefaultParams(),
	})
}

func (m *Manager) notifyEstablished(localSessionID uint16, kind session.Kind) {
	if m.callbacks.OnSessionEstablished != nil {
		m.callbacks.OnSessionEstablished(localSessionID, kind)
	}
}

func (m *Manager) notifyError(err error, stage string) {
	if m.callbacks.OnSessionError != nil {
		m.callbacks.OnSessionError(err, stage)
	}
}

// HandleUnsolicitedStatusReport applies spec §4.11.1.4/.5 to a StatusReport
// that arrives on an already-established secure session (CloseSession or
// Busy), outside of any handshake exchange.
func (m *Manager) HandleUnsolicitedStatusReport(localSessionID uint16, report message.StatusReport) {
	if report.GeneralCode == message.GeneralCodeSuccess &&
		report.ProtocolID == uint32(message.ProtocolSecureChannel) &&
		message.SecureChannelProtocolCode(report.ProtocolCode) == message.ProtocolCodeCloseSession {
		m.sessions.Close(localSessionID)
		if m.callbacks.OnSessionClosed != nil {
			m.callbacks.OnSessionClosed(localSessionID)
		}
	}
}
