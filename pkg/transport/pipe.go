package transport

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/transport/v3/test"
)

// NetworkCondition simulates link impairment on a Pipe, for testing MRP
// retransmission and reordering behavior (spec §4.12) without a real
// network.
type NetworkCondition struct {
	// DropRate is the probability of silently dropping a packet.
	DropRate float64

	// DelayMin/DelayMax bound an added, uniformly distributed delay.
	DelayMin time.Duration
	DelayMax time.Duration

	// DuplicateRate is the probability of sending a packet twice.
	DuplicateRate float64
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess delivers queued packets on a background goroutine.
	// Default: true.
	AutoProcess bool

	// ProcessInterval is how often the auto-processor checks for
	// packets. Default: 1ms.
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: time.Millisecond,
	}
}

// PipeStats counts what a Pipe's impairment simulation did to traffic
// crossing it, so a test exercising retransmission can assert on the
// impairment it asked for instead of just on the end-to-end outcome.
type PipeStats struct {
	Sent       int64
	Dropped    int64
	Duplicated int64
}

// Pipe is a bidirectional in-memory packet link between two endpoints,
// built on pion's test.Bridge with network condition simulation layered
// on top. Use it for deterministic MRP/PASE/CASE tests instead of real
// sockets.
type Pipe struct {
	lifecycle

	bridge *test.Bridge

	condMu          sync.RWMutex
	condition       NetworkCondition
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup

	sent       atomic.Int64
	dropped    atomic.Int64
	duplicated atomic.Int64
}

// NewPipe creates a pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(pipeSeed())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}

	if p.processInterval == 0 {
		p.processInterval = time.Millisecond
	}

	if p.autoProcess {
		p.startAutoProcess()
	}

	return p
}

// pipeSeed varies the simulated link's RNG seed across Pipe instances
// without calling time.Now() from the hot path; Unix nanoseconds at
// package init is enough entropy for test impairment simulation.
var pipeSeed = func() func() int64 {
	base := time.Now().UnixNano()
	var n atomic.Int64
	return func() int64 {
		return base + n.Add(1)
	}
}()

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetAutoProcess enables or disables background delivery. Disable it for
// tests that need to drive delivery one packet at a time.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.condMu.Lock()
	defer p.condMu.Unlock()

	if p.isClosed() || p.autoProcess == enabled {
		return
	}
	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// SetCondition configures simulated impairment, applied to both
// directions.
func (p *Pipe) SetCondition(cond NetworkCondition) {
	p.condMu.Lock()
	defer p.condMu.Unlock()
	p.condition = cond
}

// Stats reports how many packets this pipe has forwarded, dropped, and
// duplicated since creation.
func (p *Pipe) Stats() PipeStats {
	return PipeStats{
		Sent:       p.sent.Load(),
		Dropped:    p.dropped.Load(),
		Duplicated: p.duplicated.Load(),
	}
}

// Conn0 returns endpoint 0's connection.
func (p *Pipe) Conn0() net.Conn { return p.bridge.GetConn0() }

// Conn1 returns endpoint 1's connection.
func (p *Pipe) Conn1() net.Conn { return p.bridge.GetConn1() }

// Tick delivers one queued packet in each direction, if any. Only useful
// with auto-processing disabled.
func (p *Pipe) Tick() int { return p.bridge.Tick() }

// Process delivers every queued packet.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both endpoints and stops auto-processing.
func (p *Pipe) Close() error {
	if err := p.end(); err != nil {
		return nil
	}

	p.condMu.RLock()
	auto := p.autoProcess
	p.condMu.RUnlock()
	if auto {
		close(p.stopCh)
	}

	p.wg.Wait()

	var errs []error
	if err := p.bridge.GetConn0().Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.bridge.GetConn1().Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// simulate applies the pipe's configured impairment to one write,
// reporting whether the caller should still write b and, if so, whether
// to write it a second time for DuplicateRate.
func (p *Pipe) simulate(n int) (write, duplicate bool) {
	p.condMu.RLock()
	cond := p.condition
	rng := p.rng
	p.condMu.RUnlock()

	if cond.DropRate > 0 && rng.Float64() < cond.DropRate {
		p.dropped.Add(1)
		return false, false
	}

	if cond.DelayMax > 0 {
		delay := cond.DelayMin
		if cond.DelayMax > cond.DelayMin {
			delay += time.Duration(rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	duplicate = cond.DuplicateRate > 0 && rng.Float64() < cond.DuplicateRate
	p.sent.Add(int64(n))
	if duplicate {
		p.duplicated.Add(1)
	}
	return true, duplicate
}

// PipeAddr implements net.Addr for a Pipe endpoint.
type PipeAddr struct {
	ID   int
	Port int
}

func (a PipeAddr) Network() string { return "pipe" }
func (a PipeAddr) String() string  { return fmt.Sprintf("pipe:%d:%d", a.ID, a.Port) }

// PipePacketConn adapts one Pipe endpoint to net.PacketConn so it can
// back a UDP transport in tests.
type PipePacketConn struct {
	conn     net.Conn
	localID  int
	port     int
	peerAddr net.Addr
	pipe     *Pipe
}

func (c *PipePacketConn) ReadFrom(b []byte) (n int, addr net.Addr, err error) {
	n, err = c.conn.Read(b)
	return n, c.peerAddr, err
}

func (c *PipePacketConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	if c.pipe == nil {
		return c.conn.Write(b)
	}

	write, duplicate := c.pipe.simulate(len(b))
	if !write {
		return len(b), nil
	}
	if duplicate {
		if _, err := c.conn.Write(b); err != nil {
			return 0, err
		}
	}

	return c.conn.Write(b)
}

func (c *PipePacketConn) Close() error                       { return c.conn.Close() }
func (c *PipePacketConn) LocalAddr() net.Addr                { return PipeAddr{ID: c.localID, Port: c.port} }
func (c *PipePacketConn) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *PipePacketConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *PipePacketConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

var _ net.PacketConn = (*PipePacketConn)(nil)

// PipeFactory hands out one side of a Pipe's UDP-like connection, for
// tests that want a real UDP transport wired to an in-memory link rather
// than a loopback socket.
type PipeFactory struct {
	mu      sync.Mutex
	pipe    *Pipe
	localID int
	udpConn *PipePacketConn
}

// NewPipeFactoryPair creates two PipeFactory endpoints sharing one Pipe
// with auto-processing enabled.
func NewPipeFactoryPair() (*PipeFactory, *PipeFactory) {
	return NewPipeFactoryPairWithConfig(DefaultPipeConfig())
}

// NewPipeFactoryPairWithConfig creates two PipeFactory endpoints sharing
// one Pipe with the given configuration.
func NewPipeFactoryPairWithConfig(config PipeConfig) (*PipeFactory, *PipeFactory) {
	pipe := NewPipeWithConfig(config)
	f0 := &PipeFactory{pipe: pipe, localID: 0}
	f1 := &PipeFactory{pipe: pipe, localID: 1}
	return f0, f1
}

// Pipe returns the underlying pipe, for SetCondition/SetAutoProcess,
// Stats, or manual Process() calls.
func (f *PipeFactory) Pipe() *Pipe { return f.pipe }

// LocalAddr returns this endpoint's pipe address.
func (f *PipeFactory) LocalAddr() net.Addr { return PipeAddr{ID: f.localID, Port: DefaultPort} }

// PeerAddr returns the other endpoint's pipe address.
func (f *PipeFactory) PeerAddr() net.Addr {
	return PipeAddr{ID: 1 - f.localID, Port: DefaultPort}
}

// CreateUDPConn returns a PacketConn backed by this endpoint's side of
// the pipe, creating it on first use.
func (f *PipeFactory) CreateUDPConn(port int) (net.PacketConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.udpConn != nil {
		return f.udpConn, nil
	}

	var conn net.Conn
	if f.localID == 0 {
		conn = f.pipe.Conn0()
	} else {
		conn = f.pipe.Conn1()
	}

	f.udpConn = &PipePacketConn{
		conn:     conn,
		localID:  f.localID,
		port:     port,
		peerAddr: PipeAddr{ID: 1 - f.localID, Port: port},
		pipe:     f.pipe,
	}

	return f.udpConn, nil
}

// SetCondition configures simulated impairment on this factory's pipe.
func (f *PipeFactory) SetCondition(cond NetworkCondition) {
	f.pipe.SetCondition(cond)
}
