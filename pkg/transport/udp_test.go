package transport

import (
	"sync"
	"testing"
	"time"
)

func TestUDPRoundtrip(t *testing.T) {
	var mu sync.Mutex
	var got []byte
	var gotFrom PeerAddress
	received := make(chan struct{})

	server, err := NewUDP(UDPConfig{MessageHandler: func(msg *ReceivedMessage) {
		mu.Lock()
		got = msg.Data
		gotFrom = msg.PeerAddr
		mu.Unlock()
		close(received)
	}})
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	client, err := NewUDP(UDPConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewUDP client: %v", err)
	}
	if err := client.Start(); err != nil {
		t.Fatalf("Start client: %v", err)
	}
	defer client.Stop()

	payload := []byte("hello matter")
	if err := client.Send(payload, server.LocalAddr()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
	if gotFrom.Kind != KindUDP {
		t.Fatalf("got Kind %v, want KindUDP", gotFrom.Kind)
	}
}

func TestUDPSendRejectsOversizeMessage(t *testing.T) {
	u, err := NewUDP(UDPConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer u.Stop()

	oversize := make([]byte, 2000)
	if err := u.Send(oversize, u.LocalAddr()); err != ErrMessageTooLarge {
		t.Fatalf("got %v, want ErrMessageTooLarge", err)
	}
}

func TestUDPStartStopErrors(t *testing.T) {
	u, err := NewUDP(UDPConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	if err := u.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := u.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start: got %v, want ErrAlreadyStarted", err)
	}
	if err := u.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := u.Stop(); err != ErrClosed {
		t.Fatalf("second Stop: got %v, want ErrClosed", err)
	}
}
