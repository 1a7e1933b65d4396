package btp

import (
	"sync"
)

// Link is the raw byte pipe a Session fragments over: one BLE
// connection's RX/TX characteristics, or (in tests) any in-memory
// byte-message transport. A single Link carries exactly one Session.
type Link interface {
	// WritePacket sends one already-framed BTP packet (handshake or
	// data) to the peer. Implementations should not further fragment
	// it; Session has already sized it to the negotiated MTU.
	WritePacket(packet []byte) error
}

// Role distinguishes which side opens the handshake. The GATT central
// (commissioner) always initiates; the peripheral (commissionee)
// responds.
type Role int

const (
	RoleCentral Role = iota
	RolePeripheral
)

// Session is one BLE connection's BTP state: negotiated MTU and window,
// the outbound sequence counter, and the inbound reassembler. Central
// and peripheral each run their own Session wrapping the same link.
type Session struct {
	link Link
	role Role

	mu          sync.Mutex
	handshaked  bool
	mtu         int
	windowSize  byte
	txSeq       byte
	rxSeq       byte
	unackedTx   int
	lastAckSent byte
	reassembler *Reassembler
	onMessage   func([]byte)
}

// NewSession wraps link with a BTP session for the given role. A central
// calls StartHandshake; a peripheral answers the incoming handshake
// request automatically when it arrives through HandlePacket.
func NewSession(link Link, role Role) *Session {
	return &Session{
		link:       link,
		role:       role,
		mtu:        DefaultMTU,
		windowSize: DefaultWindowSize,
	}
}

// OnMessage registers the callback invoked with each fully reassembled
// application message. Must be set before any packets are fed in.
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

// StartHandshake sends the central's handshake request proposing this
// implementation's MTU/window. Only valid for RoleCentral.
func (s *Session) StartHandshake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != RoleCentral {
		return ErrNotHandshaked
	}
	if s.handshaked {
		return ErrAlreadyHandshaked
	}

	req := HandshakeRequest{
		SupportedVersions: versionBitmask(SupportedVersion),
		MTU:               DefaultMTU,
		WindowSize:        DefaultWindowSize,
	}
	return s.link.WritePacket(req.Encode())
}

// HandlePacket feeds one raw packet received from the link. Handshake
// packets drive the negotiation; data packets are reassembled and, once
// complete, handed to the OnMessage callback.
func (s *Session) HandlePacket(data []byte) error {
	if len(data) < 1 {
		return ErrShortPacket
	}
	flags := Flags(data[0])

	if flags.has(FlagManagement) {
		return s.handleManagement(data)
	}
	return s.handleData(data)
}

func (s *Session) handleManagement(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.role {
	case RolePeripheral:
		req, err := DecodeHandshakeRequest(data)
		if err != nil {
			return err
		}
		version, ok := selectVersion(req.SupportedVersions)
		if !ok {
			return ErrUnsupportedVersion
		}

		s.mtu = int(minUint16(req.MTU, uint16(s.mtu)))
		if s.mtu < MinMTU {
			s.mtu = MinMTU
		}
		s.windowSize = minByte(req.WindowSize, s.windowSize)
		s.handshaked = true
		s.reassembler = NewReassembler(0)

		resp := HandshakeResponse{
			SelectedVersion: version,
			MTU:             uint16(s.mtu),
			WindowSize:      s.windowSize,
		}
		return s.link.WritePacket(resp.Encode())

	case RoleCentral:
		resp, err := DecodeHandshakeResponse(data)
		if err != nil {
			return err
		}
		s.mtu = int(minUint16(resp.MTU, uint16(s.mtu)))
		if s.mtu < MinMTU {
			s.mtu = MinMTU
		}
		s.windowSize = minByte(resp.WindowSize, s.windowSize)
		s.handshaked = true
		s.reassembler = NewReassembler(0)
		return nil
	}
	return nil
}

func (s *Session) handleData(data []byte) error {
	s.mu.Lock()
	if !s.handshaked {
		s.mu.Unlock()
		return ErrNotHandshaked
	}

	h, payloadOffset, err := decodeDataHeader(data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if h.Flags.has(FlagAck) {
		// Acks shrink the sender's outstanding window; nothing else
		// to validate here since Session retransmits nothing itself
		// (the reliability layer above handles loss end to end).
		if s.unackedTx > 0 {
			s.unackedTx--
		}
	}

	msg, done, err := s.reassembler.Feed(h, data[payloadOffset:])
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.rxSeq = h.SeqNum + 1
	cb := s.onMessage
	s.mu.Unlock()

	if done && cb != nil {
		cb(msg)
	}
	return nil
}

// Send fragments message and writes every fragment to the link,
// piggy-backing an ack for the last packet received. Returns
// ErrWindowExceeded if the fragments already outstanding plus this
// message's fragments would exceed WindowSize.
func (s *Session) Send(message []byte) error {
	s.mu.Lock()
	if !s.handshaked {
		s.mu.Unlock()
		return ErrNotHandshaked
	}

	// One byte is reserved for the ack number withAck splices into the
	// last fragment, so every packet stays within the negotiated MTU.
	packets := Fragment(message, s.mtu-1, s.txSeq)
	if int(s.windowSize) > 0 && s.unackedTx+len(packets) > int(s.windowSize) {
		s.mu.Unlock()
		return ErrWindowExceeded
	}

	ackNum := s.rxSeq - 1
	s.txSeq += byte(len(packets))
	s.unackedTx += len(packets)
	s.mu.Unlock()

	for i, packet := range packets {
		if i == len(packets)-1 {
			packet = withAck(packet, ackNum)
		}
		if err := s.link.WritePacket(packet); err != nil {
			return err
		}
	}
	return nil
}

// withAck rewrites a fragment's flags byte to set FlagAck and splices
// the ack number in right after the flags byte, ahead of the existing
// header fields.
func withAck(packet []byte, ack byte) []byte {
	if len(packet) == 0 {
		return packet
	}
	out := make([]byte, 0, len(packet)+1)
	out = append(out, byte(Flags(packet[0])|FlagAck), ack)
	out = append(out, packet[1:]...)
	return out
}

// MTU returns the negotiated ATT MTU, valid once the handshake
// completes.
func (s *Session) MTU() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mtu
}

// Handshaked reports whether this session has completed its handshake.
func (s *Session) Handshaked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshaked
}
