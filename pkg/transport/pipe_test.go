package transport

import (
	"testing"
	"time"
)

func TestPipeFactoryRoundtrip(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	conn0, err := f0.CreateUDPConn(DefaultPort)
	if err != nil {
		t.Fatalf("CreateUDPConn f0: %v", err)
	}
	conn1, err := f1.CreateUDPConn(DefaultPort)
	if err != nil {
		t.Fatalf("CreateUDPConn f1: %v", err)
	}

	if _, err := conn0.WriteTo([]byte("ping"), f0.PeerAddr()); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	buf := make([]byte, 16)
	conn1.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := conn1.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("got %q, want %q", buf[:n], "ping")
	}
}

func TestPipeDropsOnFullDropRate(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()
	f0.SetCondition(NetworkCondition{DropRate: 1.0})

	conn0, _ := f0.CreateUDPConn(DefaultPort)
	conn1, _ := f1.CreateUDPConn(DefaultPort)

	if _, err := conn0.WriteTo([]byte("dropped"), f0.PeerAddr()); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	buf := make([]byte, 16)
	conn1.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := conn1.ReadFrom(buf); err == nil {
		t.Fatal("expected read timeout, packet should have been dropped")
	}
}

func TestPipeAddrString(t *testing.T) {
	a := PipeAddr{ID: 1, Port: 5540}
	if a.Network() != "pipe" {
		t.Fatalf("got network %q, want pipe", a.Network())
	}
	if a.String() != "pipe:1:5540" {
		t.Fatalf("got %q, want pipe:1:5540", a.String())
	}
}
