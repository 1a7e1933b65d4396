package transport

import (
	"net"
	"sync"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
	"github.com/pion/logging"
)

// TCP carries Matter messages over persistent connections, each framed
// with a 4-byte length prefix (spec §6). Used for the unreliable-network
// fallback and for IM traffic too large to fit comfortably in MRP's
// retransmit window.
type TCP struct {
	lifecycle

	listener net.Listener
	handler  MessageHandler
	sink     metrics.Sink
	closeCh  chan struct{}
	wg       sync.WaitGroup
	log      logging.LeveledLogger

	connsMu sync.RWMutex
	conns   map[string]*tcpConn
}

// tcpConn pairs a connection with the framing reader/writer built on it.
type tcpConn struct {
	conn   net.Conn
	reader *message.StreamReader
	writer *message.StreamWriter
	mu     sync.Mutex
}

// TCPConfig configures the TCP transport.
type TCPConfig struct {
	// Listener is an optional pre-existing Listener. If nil, one is
	// opened using ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g. ":5540"). Ignored if
	// Listener is provided.
	ListenAddr string

	// MessageHandler is called for each received message. Required.
	MessageHandler MessageHandler

	// Sink receives byte counters for every frame sent/received.
	// Defaults to metrics.NopSink{} when left nil.
	Sink metrics.Sink

	// LoggerFactory builds this transport's logger. Logging is disabled
	// if nil.
	LoggerFactory logging.LoggerFactory
}

// NewTCP creates a TCP transport with the given configuration.
func NewTCP(config TCPConfig) (*TCP, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	t := &TCP{
		listener: config.Listener,
		handler:  config.MessageHandler,
		sink:     config.Sink,
		closeCh:  make(chan struct{}),
		conns:    make(map[string]*tcpConn),
	}
	if t.sink == nil {
		t.sink = metrics.NopSink{}
	}

	if config.LoggerFactory != nil {
		t.log = config.LoggerFactory.NewLogger("transport-tcp")
	}

	if t.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}

		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		t.listener = listener
	}

	return t, nil
}

// Start begins accepting connections.
func (t *TCP) Start() error {
	if err := t.begin(); err != nil {
		return err
	}

	if t.log != nil {
		t.log.Infof("starting TCP transport on %s", t.listener.Addr())
	}

	t.wg.Add(1)
	go t.acceptLoop()

	return nil
}

// Stop closes the listener and every open connection.
func (t *TCP) Stop() error {
	if err := t.end(); err != nil {
		return err
	}

	if t.log != nil {
		t.log.Info("stopping TCP transport")
	}

	close(t.closeCh)
	t.listener.Close()

	t.connsMu.Lock()
	for _, tc := range t.conns {
		tc.conn.Close()
	}
	t.conns = make(map[string]*tcpConn)
	t.connsMu.Unlock()

	t.wg.Wait()
	return nil
}

// SendRaw frames data with the length prefix and sends it to addr,
// dialing a new connection if none is open yet.
func (t *TCP) SendRaw(data []byte, addr net.Addr) error {
	if t.isClosed() {
		return ErrClosed
	}

	if addr == nil {
		return ErrInvalidAddress
	}

	if len(data) > message.MaxTCPMessageSize {
		return ErrMessageTooLarge
	}

	tc, err := t.getOrCreateConn(addr)
	if err != nil {
		return err
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	n, err := tc.writer.Write(data)
	if err != nil {
		return err
	}
	t.sink.RecordBytesSent(KindTCP.String(), n)
	return nil
}

// LocalAddr returns the address the transport is listening on.
func (t *TCP) LocalAddr() net.Addr {
	return t.listener.Addr()
}

func (t *TCP) acceptLoop() {
	defer t.wg.Done()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closeCh:
				return
			default:
				continue
			}
		}

		t.wg.Add(1)
		go t.handleConn(conn, conn.RemoteAddr().String())
	}
}

// handleConn reads frames from conn until it fails, tracking it in conns
// under key for the connection's lifetime.
func (t *TCP) handleConn(conn net.Conn, key string) {
	defer t.wg.Done()

	tc := &tcpConn{
		conn:   conn,
		reader: message.NewStreamReader(conn),
		writer: message.NewStreamWriter(conn),
	}

	t.connsMu.Lock()
	t.conns[key] = tc
	t.connsMu.Unlock()

	defer func() {
		conn.Close()
		t.connsMu.Lock()
		delete(t.conns, key)
		t.connsMu.Unlock()
	}()

	for {
		select {
		case <-t.closeCh:
			return
		default:
		}

		data, err := tc.reader.Read()
		if err != nil {
			return
		}
		t.sink.RecordBytesReceived(KindTCP.String(), len(data)+message.TCPLengthPrefixSize)

		t.handler(&ReceivedMessage{
			Data:     data,
			PeerAddr: NewTCPPeerAddress(conn.RemoteAddr()),
		})
	}
}

func (t *TCP) getOrCreateConn(addr net.Addr) (*tcpConn, error) {
	addrStr := addr.String()

	t.connsMu.RLock()
	tc, ok := t.conns[addrStr]
	t.connsMu.RUnlock()
	if ok {
		return tc, nil
	}

	conn, err := net.Dial("tcp", addrStr)
	if err != nil {
		return nil, err
	}

	tc = &tcpConn{
		conn:   conn,
		reader: message.NewStreamReader(conn),
		writer: message.NewStreamWriter(conn),
	}

	t.connsMu.Lock()
	if existing, ok := t.conns[addrStr]; ok {
		t.connsMu.Unlock()
		conn.Close()
		return existing, nil
	}
	t.conns[addrStr] = tc
	t.connsMu.Unlock()

	t.wg.Add(1)
	go t.handleConn(conn, addrStr)

	return tc, nil
}

// AddConnection registers an already-established connection (e.g. from
// net.Pipe in tests) so Send can use it without dialing.
func (t *TCP) AddConnection(conn net.Conn) {
	tc := &tcpConn{
		conn:   conn,
		reader: message.NewStreamReader(conn),
		writer: message.NewStreamWriter(conn),
	}

	remoteAddr := conn.RemoteAddr().String()
	t.connsMu.Lock()
	t.conns[remoteAddr] = tc
	t.connsMu.Unlock()

	t.wg.Add(1)
	go t.handleConn(conn, remoteAddr)
}
