package exchange

import (
	"sync"
	"time"

	"github.com/mkniffen/matterd/pkg/transport"
)

// retransmitEntry is a reliable outbound message awaiting acknowledgement
// (spec §4.4.6.1). There is at most one per exchange (flow control).
type retransmitEntry struct {
	key            exchangeKey
	messageCounter uint32
	message        []byte
	peerAddress    transport.PeerAddress
	sendCount      int

	backoff  backoffSource
	timer    *time.Timer
	callback func()
}

// backoffSource abstracts cenkalti/backoff's ExponentialBackOff so tests
// can substitute a deterministic source.
type backoffSource interface {
	NextBackOff() time.Duration
}

func (e *retransmitEntry) stop() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// retransmitTable schedules MRP retransmits with a jittered exponential
// backoff per session (spec §4.4.6.1, §9 Open Question resolution).
type retransmitTable struct {
	mu         sync.Mutex
	entries    map[uint32]*retransmitEntry
	byExchange map[exchangeKey]*retransmitEntry
}

func newRetransmitTable() *retransmitTable {
	return &retransmitTable{
		entries:    make(map[uint32]*retransmitEntry),
		byExchange: make(map[exchangeKey]*retransmitEntry),
	}
}

// add schedules the first send attempt. onTimeout is invoked (off the
// table's lock) whenever the current attempt's deadline fires.
func (t *retransmitTable) add(
	key exchangeKey,
	messageCounter uint32,
	msg []byte,
	peerAddress transport.PeerAddress,
	baseInterval time.Duration,
	onTimeout func(entry *retransmitEntry),
) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byExchange[key]; exists {
		return ErrPendingRetransmit
	}

	entry := &retransmitEntry{
		key:            key,
		messageCounter: messageCounter,
		message:        msg,
		peerAddress:    peerAddress,
		sendCount:      1,
		backoff:        newRetransmitBackoff(baseInterval),
	}
	entry.callback = func() { onTimeout(entry) }
	entry.timer = time.AfterFunc(entry.backoff.NextBackOff(), entry.callback)

	t.entries[messageCounter] = entry
	t.byExchange[key] = entry
	return nil
}

// ack removes the entry once its counter has been acknowledged.
func (t *retransmitTable) ack(messageCounter uint32) *retransmitEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[messageCounter]
	if !ok {
		return nil
	}
	entry.stop()
	delete(t.entries, messageCounter)
	delete(t.byExchange, entry.key)
	return entry
}

// scheduleRetransmit advances the attempt count and restarts the timer,
// or — once MaxTransmissions is reached — removes the entry and reports
// false so the caller can fail the send.
func (t *retransmitTable) scheduleRetransmit(messageCounter uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[messageCounter]
	if !ok {
		return false
	}

	entry.sendCount++
	if entry.sendCount >= MaxTransmissions {
		entry.stop()
		delete(t.entries, messageCounter)
		delete(t.byExchange, entry.key)
		return false
	}

	entry.stop()
	entry.timer = time.AfterFunc(entry.backoff.NextBackOff(), entry.callback)
	return true
}

func (t *retransmitTable) getByCounter(messageCounter uint32) (*retransmitEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[messageCounter]
	return entry, ok
}

func (t *retransmitTable) getByExchange(key exchangeKey) (*retransmitEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.byExchange[key]
	return entry, ok
}

func (t *retransmitTable) hasPending(key exchangeKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byExchange[key]
	return ok
}

func (t *retransmitTable) remove(key exchangeKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.byExchange[key]
	if !ok {
		return
	}
	entry.stop()
	delete(t.entries, entry.messageCounter)
	delete(t.byExchange, key)
}

func (t *retransmitTable) removeByCounter(messageCounter uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[messageCounter]
	if !ok {
		return
	}
	entry.stop()
	delete(t.entries, messageCounter)
	delete(t.byExchange, entry.key)
}

func (t *retransmitTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *retransmitTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for counter, entry := range t.entries {
		entry.stop()
		delete(t.entries, counter)
	}
	t.byExchange = make(map[exchangeKey]*retransmitEntry)
}
