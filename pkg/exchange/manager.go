package exchange

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/transport"
)

// standaloneAckOpcode is the Secure Channel protocol opcode for a
// standalone MRP acknowledgement (spec §4.4.5.2.2).
const standaloneAckOpcode = 0x10

// Handler routes messages for one protocol ID to the layer above the
// exchange manager (SecureChannel, then the Interaction Model).
type Handler interface {
	// OnMessage handles a message on an existing exchange.
	OnMessage(ctx *Context, opcode uint8, payload []byte) ([]byte, error)
	// OnUnsolicited handles the first message of a new exchange.
	OnUnsolicited(ctx *Context, opcode uint8, payload []byte) ([]byte, error)
}

// Sender abstracts the transport layer's outbound path so this package
// doesn't need to import a concrete UDP/TCP/BTP implementation.
type Sender interface {
	Send(data []byte, peer transport.PeerAddress) error
}

// ReceivedMessage is a raw frame handed up from a transport with the peer
// address it arrived from.
type ReceivedMessage struct {
	Data []byte
	Peer transport.PeerAddress
}

// SessionLookup resolves session ids (and handshake-time unsecured
// traffic) to a sessionLike encrypt/decrypt surface, implemented by
// pkg/session.Table plus the node's global unsecured counter.
type SessionLookup interface {
	Lookup(localID uint16) (*session.Context, bool)
	GlobalCounter() *message.GlobalCounter
}

// ManagerConfig wires a Manager to the session table and a transport
// sender.
type ManagerConfig struct {
	Sessions  SessionLookup
	Transport Sender

	// Sink receives exchange-count and retransmit observations. Defaults
	// to metrics.NopSink{} when left nil.
	Sink metrics.Sink
}

// Manager multiplexes exchanges over sessions and runs MRP (spec §4.4):
// exchange lifecycle, ack coalescing, and retransmission.
type Manager struct {
	config ManagerConfig

	mu        sync.RWMutex
	exchanges map[exchangeKey]*Context
	handlers  map[message.ProtocolID]Handler

	acks        *ackTable
	retransmits *retransmitTable
	limiter     *reliabilityLimiter

	nextExchangeID uint16
}

// NewManager builds an exchange manager bound to a session lookup and
// transport sender.
func NewManager(config ManagerConfig) *Manager {
	if config.Sink == nil {
		config.Sink = metrics.NopSink{}
	}
	m := &Manager{
		config:      config,
		exchanges:   make(map[exchangeKey]*Context),
		handlers:    make(map[message.ProtocolID]Handler),
		acks:        newAckTable(),
		retransmits: newRetransmitTable(),
		limiter:     newReliabilityLimiter(),
	}
	// Spec §4.4.2: first exchange id is random, then increments by 1.
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err == nil {
		m.nextExchangeID = binary.LittleEndian.Uint16(buf[:])
	}
	return m
}

// RegisterProtocol binds a Handler to a protocol ID.
func (m *Manager) RegisterProtocol(protocolID message.ProtocolID, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[protocolID] = handler
}

// NewExchange opens a new exchange as initiator, ready for the first
// SendMessage call.
func (m *Manager) NewExchange(
	sess sessionLike,
	localSessionID uint16,
	peerAddress transport.PeerAddress,
	protocolID message.ProtocolID,
	delegate Delegate,
) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exchangeID := m.nextExchangeID
	m.nextExchangeID++

	key := exchangeKey{localSessionID: localSessionID, exchangeID: exchangeID, role: RoleInitiator}
	if _, exists := m.exchanges[key]; exists {
		return nil, ErrExchangeExists
	}

	ctx := newContext(Config{
		ID:             exchangeID,
		Role:           RoleInitiator,
		ProtocolID:     protocolID,
		LocalSessionID: localSessionID,
		Session:        sess,
		PeerAddress:    peerAddress,
		Delegate:       delegate,
		Manager:        m,
	})
	m.exchanges[key] = ctx
	m.config.Sink.SetActiveExchanges(len(m.exchanges))
	return ctx, nil
}

// OnMessageReceived is the transport layer's entry point: decode the
// plaintext header, decrypt if the session id is non-zero, and dispatch
// the resulting frame.
func (m *Manager) OnMessageReceived(msg *ReceivedMessage) error {
	var header message.Header
	if _, err := header.Decode(msg.Data); err != nil {
		return ErrInvalidMessage
	}

	var sess sessionLike
	var frame *message.Frame
	var err error

	if header.SessionID == 0 {
		frame, err = message.DecodeUnsecured(msg.Data)
		if err != nil {
			return ErrInvalidMessage
		}
		sess = newUnsecuredSession(m.config.Sessions.GlobalCounter(), session.DefaultParams())
	} else {
		secureCtx, ok := m.config.Sessions.Lookup(header.SessionID)
		if !ok {
			return ErrSessionNotFound
		}
		frame, err = secureCtx.Decrypt(msg.Data)
		if err != nil {
			return err
		}
		sess = secureCtx
	}

	return m.processFrame(frame, msg.Peer, sess)
}

func (m *Manager) processFrame(frame *message.Frame, peerAddr transport.PeerAddress, sess sessionLike) error {
	proto := &frame.Protocol

	ourRole := RoleInitiator
	if proto.Initiator {
		ourRole = RoleResponder
	}

	localSessionID := frame.Header.SessionID
	key := exchangeKey{localSessionID: localSessionID, exchangeID: proto.ExchangeID, role: ourRole}

	if proto.Acknowledgement {
		m.handleReceivedAck(proto.AckedMessageCounter)
	}

	m.mu.RLock()
	ctx, exists := m.exchanges[key]
	m.mu.RUnlock()

	if !exists {
		return m.handleUnsolicited(frame, peerAddr, sess, key)
	}

	if proto.Reliability {
		if !m.limiter.Allow(key) {
			return ErrThrottled
		}
		m.scheduleAck(ctx, frame.Header.MessageCounter)
	}

	response, err := ctx.handleMessage(proto, frame.Payload)
	if err != nil {
		return err
	}
	if response != nil {
		reliable := peerAddr.Kind == transport.KindUDP
		return ctx.SendMessage(proto.ProtocolOpcode, response, reliable)
	}
	return nil
}

// handleUnsolicited applies spec §4.4.5.2: only spawn a responder
// exchange for a message carrying the Initiator flag with a registered
// handler; anything else gets at most a standalone ACK and is dropped.
func (m *Manager) handleUnsolicited(frame *message.Frame, peerAddr transport.PeerAddress, sess sessionLike, key exchangeKey) error {
	proto := frame.Protocol

	if !proto.Initiator {
		if proto.Reliability {
			m.sendStandaloneAckForUnsolicited(frame, peerAddr, sess)
		}
		return ErrUnsolicitedNotInitiator
	}

	m.mu.RLock()
	handler, hasHandler := m.handlers[proto.ProtocolID]
	m.mu.RUnlock()

	if !hasHandler {
		if proto.Reliability {
			m.sendStandaloneAckForUnsolicited(frame, peerAddr, sess)
		}
		return ErrNoHandler
	}

	localSessionID := frame.Header.SessionID
	ctx := newContext(Config{
		ID:             proto.ExchangeID,
		Role:           RoleResponder,
		ProtocolID:     proto.ProtocolID,
		LocalSessionID: localSessionID,
		Session:        sess,
		PeerAddress:    peerAddr,
		Manager:        m,
	})

	m.mu.Lock()
	m.exchanges[key] = ctx
	m.config.Sink.SetActiveExchanges(len(m.exchanges))
	m.mu.Unlock()

	if proto.Reliability {
		m.scheduleAck(ctx, frame.Header.MessageCounter)
	}

	response, err := handler.OnUnsolicited(ctx, proto.ProtocolOpcode, frame.Payload)
	if err != nil {
		m.mu.Lock()
		delete(m.exchanges, key)
		m.config.Sink.SetActiveExchanges(len(m.exchanges))
		m.mu.Unlock()
		return err
	}
	if response != nil {
		reliable := peerAddr.Kind == transport.KindUDP
		return ctx.SendMessage(proto.ProtocolOpcode, response, reliable)
	}
	return nil
}

func (m *Manager) handleReceivedAck(ackedCounter uint32) {
	entry := m.retransmits.ack(ackedCounter)
	if entry == nil {
		return
	}
	m.mu.RLock()
	ctx, exists := m.exchanges[entry.key]
	m.mu.RUnlock()
	if exists {
		ctx.onRetransmitComplete()
	}
}

// scheduleAck records that messageCounter needs acknowledging on ctx,
// flushing out any prior displaced entry that hadn't gone standalone yet.
func (m *Manager) scheduleAck(ctx *Context, messageCounter uint32) {
	key := ctx.key()
	ctx.setPendingAck(messageCounter)

	displaced := m.acks.add(key, messageCounter, func() {
		m.sendStandaloneAck(ctx, messageCounter)
	})
	if displaced != nil {
		m.sendStandaloneAck(ctx, displaced.messageCounter)
	}
}

func (m *Manager) sendStandaloneAck(ctx *Context, ackedCounter uint32) {
	proto := &message.ProtocolHeader{
		ProtocolID:          message.ProtocolSecureChannel,
		ProtocolOpcode:      standaloneAckOpcode,
		ExchangeID:          ctx.ID,
		Initiator:           ctx.Role == RoleInitiator,
		Acknowledgement:     true,
		Reliability:         false,
		AckedMessageCounter: ackedCounter,
	}

	key := ctx.key()
	m.acks.markStandaloneAckSent(key)
	ctx.clearPendingAck()

	_ = m.sendMessageInternal(ctx, proto, nil)
}

// sendStandaloneAckForUnsolicited acks a reliable message that didn't
// create an exchange (unregistered protocol, or a non-initiator stray),
// sent directly since there is no Context to carry it.
func (m *Manager) sendStandaloneAckForUnsolicited(frame *message.Frame, peerAddr transport.PeerAddress, sess sessionLike) {
	ourRole := RoleInitiator
	if frame.Protocol.Initiator {
		ourRole = RoleResponder
	}

	proto := &message.ProtocolHeader{
		ProtocolID:          message.ProtocolSecureChannel,
		ProtocolOpcode:      standaloneAckOpcode,
		ExchangeID:          frame.Protocol.ExchangeID,
		Initiator:           ourRole == RoleInitiator,
		Acknowledgement:     true,
		Reliability:         false,
		AckedMessageCounter: frame.Header.MessageCounter,
	}

	header := &message.Header{}
	encoded, err := sess.Encrypt(header, proto, nil, false)
	if err != nil {
		return
	}
	_ = m.config.Transport.Send(encoded, peerAddr)
}

func (m *Manager) flushPendingAck(ctx *Context) {
	key := ctx.key()
	if entry, ok := m.acks.get(key); ok && !entry.standaloneAckSent {
		m.sendStandaloneAck(ctx, entry.messageCounter)
	}
}

// sendMessage is SendMessage's entry from Context: piggyback any pending
// inbound ack before handing off to the wire encode/send path.
func (m *Manager) sendMessage(ctx *Context, proto *message.ProtocolHeader, payload []byte) error {
	if ackCounter, hasAck := ctx.getPendingAck(); hasAck && !proto.Acknowledgement {
		proto.Acknowledgement = true
		proto.AckedMessageCounter = ackCounter
		m.acks.markAcked(ctx.key())
		ctx.clearPendingAck()
	}
	return m.sendMessageInternal(ctx, proto, payload)
}

func (m *Manager) sendMessageInternal(ctx *Context, proto *message.ProtocolHeader, payload []byte) error {
	sess := ctx.Session()
	if sess == nil {
		return ErrSessionNotFound
	}

	header := &message.Header{SessionID: sess.PeerID()}
	encoded, err := sess.Encrypt(header, proto, payload, false)
	if err != nil {
		return err
	}

	if proto.Reliability {
		peerAddr := ctx.PeerAddress()
		baseInterval := sess.BaseInterval()
		key := ctx.key()
		if err := m.retransmits.add(key, header.MessageCounter, encoded, peerAddr, baseInterval, m.onRetransmitTimeout); err != nil {
			return err
		}
		ctx.setPendingRetransmit(header.MessageCounter)
	}

	return m.config.Transport.Send(encoded, ctx.PeerAddress())
}

func (m *Manager) onRetransmitTimeout(entry *retransmitEntry) {
	m.mu.RLock()
	ctx, exists := m.exchanges[entry.key]
	m.mu.RUnlock()

	if !exists {
		m.retransmits.removeByCounter(entry.messageCounter)
		return
	}

	if !m.retransmits.scheduleRetransmit(entry.messageCounter) {
		ctx.onRetransmitComplete()
		return
	}
	m.config.Sink.RecordRetransmit()
	_ = m.config.Transport.Send(entry.message, entry.peerAddress)
}

func (m *Manager) removeExchange(ctx *Context) {
	key := ctx.key()

	m.mu.Lock()
	delete(m.exchanges, key)
	m.config.Sink.SetActiveExchanges(len(m.exchanges))
	m.mu.Unlock()

	m.acks.remove(key)
	m.retransmits.remove(key)
	m.limiter.Remove(key)

	if delegate := ctx.GetDelegate(); delegate != nil {
		delegate.OnClose(ctx)
	}
}

// GetExchange looks up an active exchange by its key tuple.
func (m *Manager) GetExchange(localSessionID, exchangeID uint16, role Role) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctx, ok := m.exchanges[exchangeKey{localSessionID: localSessionID, exchangeID: exchangeID, role: role}]
	return ctx, ok
}

func (m *Manager) ExchangeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exchanges)
}

// Close tears down every open exchange (e.g. on node shutdown).
func (m *Manager) Close() {
	m.mu.Lock()
	exchanges := make([]*Context, 0, len(m.exchanges))
	for _, ctx := range m.exchanges {
		exchanges = append(exchanges, ctx)
	}
	m.mu.Unlock()

	for _, ctx := range exchanges {
		ctx.Close()
	}
	m.acks.clear()
	m.retransmits.clear()
}
