package transport

import (
	"net"
	"sync"
	"time"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
	"github.com/pion/logging"
)

// DefaultPort is the default Matter operational port (spec §5/§6).
const DefaultPort = 5540

// UDP carries Matter messages over a net.PacketConn, running its own read
// loop that hands each datagram to a MessageHandler. It's the link PASE,
// multicast-discovered CASE, and reliable MRP traffic normally run over.
type UDP struct {
	lifecycle

	conn    net.PacketConn
	handler MessageHandler
	sink    metrics.Sink
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger
}

// UDPConfig configures the UDP transport.
type UDPConfig struct {
	// Conn is an optional pre-existing PacketConn. If nil, one is opened
	// using ListenAddr.
	Conn net.PacketConn

	// ListenAddr is the address to listen on (e.g. ":5540"). Ignored if
	// Conn is provided.
	ListenAddr string

	// MessageHandler is called for each received message. Required.
	MessageHandler MessageHandler

	// Sink receives byte counters for every datagram sent/received.
	// Defaults to metrics.NopSink{} when left nil.
	Sink metrics.Sink

	// LoggerFactory builds this transport's logger. Logging is disabled
	// if nil.
	LoggerFactory logging.LoggerFactory
}

// NewUDP creates a UDP transport with the given configuration.
func NewUDP(config UDPConfig) (*UDP, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	u := &UDP{
		conn:    config.Conn,
		handler: config.MessageHandler,
		sink:    config.Sink,
		closeCh: make(chan struct{}),
	}
	if u.sink == nil {
		u.sink = metrics.NopSink{}
	}

	if config.LoggerFactory != nil {
		u.log = config.LoggerFactory.NewLogger("transport-udp")
	}

	if u.conn == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}

		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		u.conn = conn
	}

	return u, nil
}

// Start begins the read loop. Received messages go to the configured
// MessageHandler.
func (u *UDP) Start() error {
	if err := u.begin(); err != nil {
		return err
	}

	if u.log != nil {
		u.log.Infof("starting UDP transport on %s", u.conn.LocalAddr())
	}

	u.wg.Add(1)
	go u.readLoop()

	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (u *UDP) Stop() error {
	if err := u.end(); err != nil {
		return err
	}

	if u.log != nil {
		u.log.Info("stopping UDP transport")
	}

	close(u.closeCh)

	u.conn.SetReadDeadline(time.Now())
	u.conn.Close()
	u.wg.Wait()

	return nil
}

// Send writes a single datagram to addr. UDP has no per-peer framing:
// reliable delivery is MRP's job one layer up (spec §4.12).
func (u *UDP) Send(data []byte, addr net.Addr) error {
	if u.isClosed() {
		return ErrClosed
	}

	if addr == nil {
		return ErrInvalidAddress
	}

	if len(data) > message.MaxUDPMessageSize {
		return ErrMessageTooLarge
	}

	if u.log != nil {
		u.log.Debugf("sending %d bytes to %v", len(data), addr)
	}

	n, err := u.conn.WriteTo(data, addr)
	if err != nil {
		if u.log != nil {
			u.log.Warnf("send failed: %v", err)
		}
		return err
	}
	u.sink.RecordBytesSent(KindUDP.String(), n)

	return nil
}

// LocalAddr returns the address the transport is listening on.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, message.MaxUDPMessageSize)

	for {
		select {
		case <-u.closeCh:
			return
		default:
		}

		n, addr, err := u.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-u.closeCh:
				return
			default:
				if u.log != nil {
					u.log.Warnf("UDP read error: %v", err)
				}
				continue
			}
		}

		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		u.sink.RecordBytesReceived(KindUDP.String(), n)

		if u.log != nil {
			u.log.Debugf("received %d bytes from %v", n, addr)
		}

		u.handler(&ReceivedMessage{
			Data:     data,
			PeerAddr: NewUDPPeerAddress(addr),
		})
	}
}
