package exchange

import (
	"sync"
	"time"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/transport"
)

// sessionLike is satisfied by *session.Context (an established PASE/CASE
// session) and by unsecuredSession (the session-id-0 handshake traffic
// that precedes one), giving the exchange layer a single encrypt/decrypt
// surface regardless of handshake stage.
type sessionLike interface {
	Params() session.Params
	LocalID() uint16
	PeerID() uint16
	IsPeerActive() bool
	BaseInterval() time.Duration
	Encrypt(header *message.Header, protocol *message.ProtocolHeader, payload []byte, privacy bool) ([]byte, error)
}

// Delegate receives messages for an exchange from the layer above
// (SecureChannel during a handshake, the Interaction Model dispatcher
// afterwards).
type Delegate interface {
	OnMessage(ctx *Context, header *message.ProtocolHeader, payload []byte) ([]byte, error)
	OnClose(ctx *Context)
}

// Context is one conversation between two nodes (spec §4.4.3): an
// exchange id, a role, the session it rides on, and the MRP bookkeeping
// (one pending ACK, one pending retransmit) that session carries.
type Context struct {
	mu sync.Mutex

	ID         uint16
	Role       Role
	State      State
	ProtocolID message.ProtocolID

	localSessionID uint16
	session        sessionLike
	peerAddress    transport.PeerAddress
	delegate       Delegate
	manager        *Manager

	pendingAckCounter uint32
	hasPendingAck     bool

	pendingRetransmitCounter uint32
	hasPendingRetransmit     bool
}

// Config seeds a new Context.
type Config struct {
	ID             uint16
	Role           Role
	ProtocolID     message.ProtocolID
	LocalSessionID uint16
	Session        sessionLike
	PeerAddress    transport.PeerAddress
	Delegate       Delegate
	Manager        *Manager
}

func newContext(cfg Config) *Context {
	return &Context{
		ID:             cfg.ID,
		Role:           cfg.Role,
		State:          StateActive,
		ProtocolID:     cfg.ProtocolID,
		localSessionID: cfg.LocalSessionID,
		session:        cfg.Session,
		peerAddress:    cfg.PeerAddress,
		delegate:       cfg.Delegate,
		manager:        cfg.Manager,
	}
}

func (c *Context) key() exchangeKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return exchangeKey{localSessionID: c.localSessionID, exchangeID: c.ID, role: c.Role}
}

func (c *Context) Session() sessionLike {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Context) PeerAddress() transport.PeerAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerAddress
}

func (c *Context) LocalSessionID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localSessionID
}

func (c *Context) IsInitiator() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Role == RoleInitiator
}

func (c *Context) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State == StateClosed
}

func (c *Context) SetDelegate(d Delegate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate = d
}

func (c *Context) GetDelegate() Delegate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate
}

func (c *Context) setPendingAck(counter uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingAckCounter, c.hasPendingAck = counter, true
}

func (c *Context) clearPendingAck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingAckCounter, c.hasPendingAck = 0, false
}

func (c *Context) getPendingAck() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingAckCounter, c.hasPendingAck
}

func (c *Context) setPendingRetransmit(counter uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingRetransmitCounter, c.hasPendingRetransmit = counter, true
}

func (c *Context) clearPendingRetransmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingRetransmitCounter, c.hasPendingRetransmit = 0, false
}

func (c *Context) HasPendingRetransmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasPendingRetransmit
}

// CanSend reports whether the upper layer may hand this exchange a new
// message: not while closing, and not while a reliable send is already
// in flight (spec §4.4: "SHALL NOT accept a message from upper layer
// when there is an outbound reliable message pending").
func (c *Context) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State.CanSend() && !c.hasPendingRetransmit
}

// SendMessage sends payload as opcode on this exchange. When reliable is
// true and the underlying link is UDP, the manager tracks it for MRP
// retransmission; any pending inbound ACK is piggybacked automatically.
func (c *Context) SendMessage(opcode uint8, payload []byte, reliable bool) error {
	c.mu.Lock()
	if !c.State.CanSend() {
		closed := c.State == StateClosed
		c.mu.Unlock()
		if closed {
			return ErrExchangeClosed
		}
		return ErrExchangeClosing
	}
	if c.hasPendingRetransmit {
		c.mu.Unlock()
		return ErrPendingRetransmit
	}
	manager := c.manager
	c.mu.Unlock()

	if manager == nil {
		return ErrExchangeClosed
	}

	proto := &message.ProtocolHeader{
		ProtocolID:     c.ProtocolID,
		ProtocolOpcode: opcode,
		ExchangeID:     c.ID,
		Initiator:      c.Role == RoleInitiator,
		Reliability:    reliable && c.peerAddress.Kind == transport.KindUDP,
	}
	if ackCounter, hasAck := c.getPendingAck(); hasAck {
		proto.Acknowledgement = true
		proto.AckedMessageCounter = ackCounter
		c.clearPendingAck()
	}

	return manager.sendMessage(c, proto, payload)
}

// Close begins exchange teardown (spec §4.4.5.3): flush any pending ACK,
// then either close immediately or wait for the in-flight retransmit to
// finish (ack or give up).
func (c *Context) Close() error {
	c.mu.Lock()
	if c.State == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.State = StateClosing
	manager := c.manager
	pending := c.hasPendingRetransmit
	c.mu.Unlock()

	if manager == nil {
		return nil
	}
	manager.flushPendingAck(c)

	if !pending {
		c.mu.Lock()
		c.State = StateClosed
		c.mu.Unlock()
		manager.removeExchange(c)
	}
	return nil
}

func (c *Context) onRetransmitComplete() {
	c.mu.Lock()
	c.hasPendingRetransmit = false
	c.pendingRetransmitCounter = 0
	if c.State == StateClosing {
		c.State = StateClosed
		manager := c.manager
		c.mu.Unlock()
		if manager != nil {
			manager.removeExchange(c)
		}
		return
	}
	c.mu.Unlock()
}

func (c *Context) HasDelegate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate != nil
}

func (c *Context) handleMessage(proto *message.ProtocolHeader, payload []byte) ([]byte, error) {
	c.mu.Lock()
	if !c.State.CanReceive() {
		c.mu.Unlock()
		return nil, ErrExchangeClosed
	}
	delegate := c.delegate
	c.mu.Unlock()

	if delegate == nil {
		return nil, nil
	}
	return delegate.OnMessage(c, proto, payload)
}
