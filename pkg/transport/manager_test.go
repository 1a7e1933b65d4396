package transport

import (
	"testing"
)

func TestNewManagerRequiresHandler(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); err != ErrNoHandler {
		t.Fatalf("got %v, want ErrNoHandler", err)
	}
}

func TestManagerStartStop(t *testing.T) {
	m, err := NewManager(ManagerConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start: got %v, want ErrAlreadyStarted", err)
	}
	if len(m.LocalAddresses()) != 2 {
		t.Fatalf("got %d local addresses, want 2 (UDP+TCP)", len(m.LocalAddresses()))
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := m.Stop(); err != ErrClosed {
		t.Fatalf("second Stop: got %v, want ErrClosed", err)
	}
}

func TestManagerSendRoutesByKind(t *testing.T) {
	received := make(chan PeerAddress, 1)
	m, err := NewManager(ManagerConfig{MessageHandler: func(msg *ReceivedMessage) {
		received <- msg.PeerAddr
	}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	udpPeer := NewUDPPeerAddress(m.UDP().LocalAddr())
	if err := m.Send([]byte("ping"), udpPeer); err != nil {
		t.Fatalf("Send UDP: %v", err)
	}
	if got := <-received; got.Kind != KindUDP {
		t.Fatalf("got Kind %v, want KindUDP", got.Kind)
	}
}

func TestManagerSendRejectsInvalidOrDisabled(t *testing.T) {
	m, err := NewManager(ManagerConfig{
		MessageHandler: func(*ReceivedMessage) {},
		UDPEnabled:     true,
		TCPEnabled:     false,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	if err := m.Send([]byte("x"), PeerAddress{}); err != ErrInvalidAddress {
		t.Fatalf("got %v, want ErrInvalidAddress", err)
	}
	if err := m.Send([]byte("x"), NewTCPPeerAddress(m.UDP().LocalAddr())); err == nil {
		t.Fatal("expected error sending over disabled TCP transport")
	}
}
