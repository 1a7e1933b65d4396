package exchange

import (
	"testing"
	"time"
)

func TestAckTableAddAndMarkAcked(t *testing.T) {
	table := newAckTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 2, role: RoleInitiator}

	fired := make(chan struct{}, 1)
	table.add(key, 100, func() { fired <- struct{}{} })

	if counter := table.markAcked(key); counter != 100 {
		t.Fatalf("expected counter 100, got %d", counter)
	}
	if table.count() != 0 {
		t.Fatalf("expected entry removed, count=%d", table.count())
	}

	select {
	case <-fired:
		t.Fatal("timeout should not have fired after markAcked")
	case <-time.After(StandaloneAckTimeout + 50*time.Millisecond):
	}
}

func TestAckTableStandaloneTimeout(t *testing.T) {
	table := newAckTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 2, role: RoleResponder}

	fired := make(chan struct{}, 1)
	table.add(key, 7, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(StandaloneAckTimeout + 200*time.Millisecond):
		t.Fatal("expected standalone ack timeout to fire")
	}

	if table.hasPending(key) {
		t.Fatal("expected standaloneAckSent to suppress hasPending")
	}
}

func TestAckTableDisplacesPriorEntry(t *testing.T) {
	table := newAckTable()
	key := exchangeKey{localSessionID: 1, exchangeID: 2, role: RoleInitiator}

	table.add(key, 1, func() {})
	displaced := table.add(key, 2, func() {})
	if displaced == nil || displaced.messageCounter != 1 {
		t.Fatalf("expected displaced entry for counter 1, got %v", displaced)
	}
}
