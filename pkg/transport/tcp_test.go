package transport

import (
	"sync"
	"testing"
	"time"
)

func TestTCPRoundtrip(t *testing.T) {
	var mu sync.Mutex
	var got []byte
	received := make(chan struct{})

	server, err := NewTCP(TCPConfig{MessageHandler: func(msg *ReceivedMessage) {
		mu.Lock()
		got = msg.Data
		mu.Unlock()
		close(received)
	}})
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	client, err := NewTCP(TCPConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewTCP client: %v", err)
	}
	if err := client.Start(); err != nil {
		t.Fatalf("Start client: %v", err)
	}
	defer client.Stop()

	payload := []byte("hello over tcp")
	if err := client.SendRaw(payload, server.LocalAddr()); err != nil {
		t.Fatalf("SendRaw: %v", err)
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
}

func TestTCPReusesConnection(t *testing.T) {
	count := 0
	var mu sync.Mutex
	received := make(chan struct{}, 2)

	server, err := NewTCP(TCPConfig{MessageHandler: func(*ReceivedMessage) {
		mu.Lock()
		count++
		mu.Unlock()
		received <- struct{}{}
	}})
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	client, err := NewTCP(TCPConfig{MessageHandler: func(*ReceivedMessage) {}})
	if err != nil {
		t.Fatalf("NewTCP client: %v", err)
	}
	if err := client.Start(); err != nil {
		t.Fatalf("Start client: %v", err)
	}
	defer client.Stop()

	addr := server.LocalAddr()
	if err := client.SendRaw([]byte("one"), addr); err != nil {
		t.Fatalf("SendRaw 1: %v", err)
	}
	<-received
	if err := client.SendRaw([]byte("two"), addr); err != nil {
		t.Fatalf("SendRaw 2: %v", err)
	}
	<-received

	client.connsMu.RLock()
	n := len(client.conns)
	client.connsMu.RUnlock()
	if n != 1 {
		t.Fatalf("client has %d tracked connections, want 1 (should reuse)", n)
	}
}
