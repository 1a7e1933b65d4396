package exchange

import (
	"testing"
	"time"

	"github.com/mkniffen/matterd/pkg/transport"
)

func TestRetransmitTableRejectsDuplicatePending(t *testing.T) {
	table := newRetransmitTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 1, role: RoleInitiator}

	err := table.add(key, 1, []byte("a"), transport.PeerAddress{}, time.Millisecond, func(*retransmitEntry) {})
	if err != nil {
		t.Fatal(err)
	}
	err = table.add(key, 2, []byte("b"), transport.PeerAddress{}, time.Millisecond, func(*retransmitEntry) {})
	if err != ErrPendingRetransmit {
		t.Fatalf("expected ErrPendingRetransmit, got %v", err)
	}
}

func TestRetransmitTableAckRemovesEntry(t *testing.T) {
	table := newRetransmitTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 1, role: RoleInitiator}

	if err := table.add(key, 10, []byte("a"), transport.PeerAddress{}, time.Hour, func(*retransmitEntry) {}); err != nil {
		t.Fatal(err)
	}
	entry := table.ack(10)
	if entry == nil {
		t.Fatal("expected entry")
	}
	if table.hasPending(key) {
		t.Fatal("expected no pending entry after ack")
	}
}

func TestRetransmitTableGivesUpAfterMaxTransmissions(t *testing.T) {
	table := newRetransmitTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 1, role: RoleInitiator}

	if err := table.add(key, 1, []byte("a"), transport.PeerAddress{}, time.Hour, func(*retransmitEntry) {}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < MaxTransmissions-1; i++ {
		if !table.scheduleRetransmit(1) {
			t.Fatalf("expected scheduleRetransmit to succeed on attempt %d", i)
		}
	}
	if table.scheduleRetransmit(1) {
		t.Fatal("expected scheduleRetransmit to fail once MaxTransmissions reached")
	}
	if table.hasPending(key) {
		t.Fatal("expected entry removed after max transmissions")
	}
}

func TestRetransmitBackoffGrows(t *testing.T) {
	b := newRetransmitBackoff(100 * time.Millisecond)
	first := b.NextBackOff()
	second := b.NextBackOff()
	if second <= first/2 {
		t.Fatalf("expected backoff to grow, got %v then %v", first, second)
	}
}
