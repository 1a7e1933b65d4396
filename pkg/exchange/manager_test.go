package exchange

import (
	"sync"
	"testing"
	"time"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/transport"
)

type fakeSink struct {
	mu              sync.Mutex
	activeExchanges int
	retransmits     int
}

func (f *fakeSink) SetActiveSessions(int) {}
func (f *fakeSink) SetActiveExchanges(n int) {
	f.mu.Lock()
	f.activeExchanges = n
	f.mu.Unlock()
}
func (f *fakeSink) RecordRetransmit() {
	f.mu.Lock()
	f.retransmits++
	f.mu.Unlock()
}
func (f *fakeSink) SetActiveSubscriptions(int)         {}
func (f *fakeSink) RecordIMError(uint8)                {}
func (f *fakeSink) RecordBytesSent(string, int)        {}
func (f *fakeSink) RecordBytesReceived(string, int)    {}

func (f *fakeSink) snapshot() (activeExchanges, retransmits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeExchanges, f.retransmits
}

// pipeSender wires two Managers together synchronously in-process, the
// way two nodes on a loopback UDP socket would behave for test purposes.
type pipeSender struct {
	mu   sync.Mutex
	peer *Manager
}

func (p *pipeSender) Send(data []byte, addr transport.PeerAddress) error {
	p.mu.Lock()
	peer := p.peer
	p.mu.Unlock()
	cp := append([]byte(nil), data...)
	go func() {
		_ = peer.OnMessageReceived(&ReceivedMessage{Data: cp, Peer: transport.PeerAddress{Kind: transport.KindUDP}})
	}()
	return nil
}

type sessionLookup struct {
	table *session.Table
}

func (s *sessionLookup) Lookup(localID uint16) (*session.Context, bool) { return s.table.Lookup(localID) }
func (s *sessionLookup) GlobalCounter() *message.GlobalCounter          { return s.table.GlobalCounter() }

type echoHandler struct {
	received chan []byte
}

func (h *echoHandler) OnMessage(ctx *Context, opcode uint8, payload []byte) ([]byte, error) {
	h.received <- payload
	return nil, nil
}

func (h *echoHandler) OnUnsolicited(ctx *Context, opcode uint8, payload []byte) ([]byte, error) {
	h.received <- payload
	return append([]byte("ack:"), payload...), nil
}

func newLinkedManagers() (*Manager, *Manager) {
	aTable := session.NewTable(0)
	bTable := session.NewTable(0)

	aSender := &pipeSender{}
	bSender := &pipeSender{}

	a := NewManager(ManagerConfig{Sessions: &sessionLookup{aTable}, Transport: aSender})
	b := NewManager(ManagerConfig{Sessions: &sessionLookup{bTable}, Transport: bSender})

	aSender.peer = b
	bSender.peer = a
	return a, b
}

func TestUnsolicitedExchangeRoundTrip(t *testing.T) {
	a, b := newLinkedManagers()

	handler := &echoHandler{received: make(chan []byte, 1)}
	b.RegisterProtocol(message.ProtocolInteractionModel, handler)

	unsecuredParams := session.DefaultParams()
	aSess := newUnsecuredSession(a.config.Sessions.GlobalCounter(), unsecuredParams)

	ctx, err := a.NewExchange(aSess, 0, transport.PeerAddress{Kind: transport.KindUDP}, message.ProtocolInteractionModel, nil)
	if err != nil {
		t.Fatalf("NewExchange: %v", err)
	}

	if err := ctx.SendMessage(1, []byte("hello"), false); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	select {
	case got := <-handler.received:
		if string(got) != "hello" {
			t.Fatalf("unexpected payload %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unsolicited message")
	}
}

func TestNoHandlerDropsUnsolicited(t *testing.T) {
	a, b := newLinkedManagers()
	_ = b // b has no registered handler

	aSess := newUnsecuredSession(a.config.Sessions.GlobalCounter(), session.DefaultParams())
	ctx, err := a.NewExchange(aSess, 0, transport.PeerAddress{Kind: transport.KindUDP}, message.ProtocolBDX, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.SendMessage(1, []byte("x"), false); err != nil {
		t.Fatal(err)
	}
	// No handler registered for ProtocolBDX on b: nothing should panic and
	// no exchange should be left dangling on b.
	time.Sleep(50 * time.Millisecond)
	if b.ExchangeCount() != 0 {
		t.Fatalf("expected no exchange created on b, got %d", b.ExchangeCount())
	}
}

func TestExchangeCloseRemovesEntry(t *testing.T) {
	a, _ := newLinkedManagers()
	aSess := newUnsecuredSession(a.config.Sessions.GlobalCounter(), session.DefaultParams())
	ctx, err := a.NewExchange(aSess, 0, transport.PeerAddress{Kind: transport.KindUDP}, message.ProtocolInteractionModel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.ExchangeCount() != 1 {
		t.Fatalf("expected 1 exchange, got %d", a.ExchangeCount())
	}
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if a.ExchangeCount() != 0 {
		t.Fatalf("expected exchange removed after close, got %d", a.ExchangeCount())
	}
}

func TestManagerReportsActiveExchangesToSink(t *testing.T) {
	sink := &fakeSink{}
	table := session.NewTable(0)
	sender := &pipeSender{}
	m := NewManager(ManagerConfig{Sessions: &sessionLookup{table}, Transport: sender, Sink: sink})
	sender.peer = m

	aSess := newUnsecuredSession(m.config.Sessions.GlobalCounter(), session.DefaultParams())
	ctx, err := m.NewExchange(aSess, 0, transport.PeerAddress{Kind: transport.KindUDP}, message.ProtocolInteractionModel, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := sink.snapshot(); got != 1 {
		t.Fatalf("activeExchanges after NewExchange = %d, want 1", got)
	}

	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if got, _ := sink.snapshot(); got != 0 {
		t.Fatalf("activeExchanges after Close = %d, want 0", got)
	}
}
