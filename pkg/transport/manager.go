package transport

import (
	"fmt"
	"net"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
)

// Manager multiplexes UDP and TCP transports behind a single Sender,
// picking the wire format by the destination PeerAddress.Kind (spec
// §5/§6). BTP sessions are carried over pkg/btp directly — Manager
// never opens a GATT link itself, since a central/peripheral role and
// connection lifecycle is negotiated per-device, not listened for.
type Manager struct {
	lifecycle

	udp     *UDP
	tcp     *TCP
	handler MessageHandler
}

// ManagerConfig configures the transport manager.
type ManagerConfig struct {
	// Port is the port to listen on. Default: DefaultPort (5540).
	Port int

	// UDPEnabled controls whether UDP is enabled. Default: true.
	UDPEnabled bool

	// TCPEnabled controls whether TCP is enabled. Default: true.
	TCPEnabled bool

	// MessageHandler is called for each received message. Required.
	MessageHandler MessageHandler

	// Sink receives byte counters for both transports. Defaults to
	// metrics.NopSink{} when left nil.
	Sink metrics.Sink

	// UDPConn lets tests supply a pre-existing connection.
	UDPConn net.PacketConn

	// TCPListener lets tests supply a pre-existing listener.
	TCPListener net.Listener
}

// maxSizeFor bounds an outbound message by the wire limit of kind, so a
// caller that picked the wrong Kind for a peer fails fast instead of
// letting the underlying transport reject (or silently truncate) it.
func maxSizeFor(kind Kind) int {
	switch kind {
	case KindTCP:
		return message.MaxTCPMessageSize
	default:
		return message.MaxUDPMessageSize
	}
}

// NewManager creates a transport manager with the given configuration.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Sink == nil {
		config.Sink = metrics.NopSink{}
	}

	if !config.UDPEnabled && !config.TCPEnabled {
		config.UDPEnabled = true
		config.TCPEnabled = true
	}

	m := &Manager{handler: config.MessageHandler}

	listenAddr := fmt.Sprintf(":%d", config.Port)

	if config.UDPEnabled {
		udp, err := NewUDP(UDPConfig{
			Conn:           config.UDPConn,
			ListenAddr:     listenAddr,
			MessageHandler: config.MessageHandler,
			Sink:           config.Sink,
		})
		if err != nil {
			return nil, fmt.Errorf("creating UDP transport: %w", err)
		}
		m.udp = udp
	}

	if config.TCPEnabled {
		tcp, err := NewTCP(TCPConfig{
			Listener:       config.TCPListener,
			ListenAddr:     listenAddr,
			MessageHandler: config.MessageHandler,
			Sink:           config.Sink,
		})
		if err != nil {
			if m.udp != nil {
				m.udp.Stop()
			}
			return nil, fmt.Errorf("creating TCP transport: %w", err)
		}
		m.tcp = tcp
	}

	return m, nil
}

// Start begins listening on every enabled transport.
func (m *Manager) Start() error {
	if err := m.begin(); err != nil {
		return err
	}

	if m.udp != nil {
		if err := m.udp.Start(); err != nil {
			return fmt.Errorf("starting UDP transport: %w", err)
		}
	}

	if m.tcp != nil {
		if err := m.tcp.Start(); err != nil {
			if m.udp != nil {
				m.udp.Stop()
			}
			return fmt.Errorf("starting TCP transport: %w", err)
		}
	}

	return nil
}

// Stop closes every enabled transport.
func (m *Manager) Stop() error {
	if err := m.end(); err != nil {
		return err
	}

	var errs []error

	if m.udp != nil {
		if err := m.udp.Stop(); err != nil && err != ErrClosed {
			errs = append(errs, fmt.Errorf("stopping UDP: %w", err))
		}
	}

	if m.tcp != nil {
		if err := m.tcp.Stop(); err != nil && err != ErrClosed {
			errs = append(errs, fmt.Errorf("stopping TCP: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Send implements exchange.Sender: it routes by peer.Kind to the
// matching transport, rejecting a payload too large for that kind's
// wire limit before ever touching a socket. BTP peers are rejected
// here since Manager has no BTP transport of its own — exchange wiring
// over BLE goes through pkg/btp's Session directly instead.
func (m *Manager) Send(data []byte, peer PeerAddress) error {
	if m.isClosed() {
		return ErrClosed
	}

	if !peer.IsValid() {
		return ErrInvalidAddress
	}

	if len(data) > maxSizeFor(peer.Kind) {
		return ErrMessageTooLarge
	}

	switch peer.Kind {
	case KindUDP:
		if m.udp == nil {
			return fmt.Errorf("UDP transport not enabled")
		}
		return m.udp.Send(data, peer.Addr)
	case KindTCP:
		if m.tcp == nil {
			return fmt.Errorf("TCP transport not enabled")
		}
		return m.tcp.SendRaw(data, peer.Addr)
	default:
		return ErrInvalidAddress
	}
}

// LocalAddresses returns every address the manager is listening on.
func (m *Manager) LocalAddresses() []net.Addr {
	var addrs []net.Addr

	if m.udp != nil {
		addrs = append(addrs, m.udp.LocalAddr())
	}
	if m.tcp != nil {
		addrs = append(addrs, m.tcp.LocalAddr())
	}

	return addrs
}

// UDP returns the UDP transport, or nil if disabled.
func (m *Manager) UDP() *UDP {
	return m.udp
}

// TCP returns the TCP transport, or nil if disabled.
func (m *Manager) TCP() *TCP {
	return m.tcp
}
