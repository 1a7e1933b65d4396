package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
)

// MinID/MaxID bound the valid local session id space; 0 is reserved for
// unsecured messages (spec §3/§4.7).
const (
	MinID uint16 = 1
	MaxID uint16 = 0xFFFE

	// DefaultMaxSessions bounds table size absent an explicit config.
	DefaultMaxSessions = 64
)

// Table is the node's session table (spec §4.7): it owns id allocation,
// provisional-session bookkeeping for in-flight handshakes, and lookup for
// the message codec and exchange manager.
//
// Per spec §9's Open Question, id allocation draws a random candidate and
// retries against the live table on collision rather than a single
// uncoordinated random draw.
type Table struct {
	mu       sync.RWMutex
	sessions map[uint16]*Context
	maxSize  int

	globalCounter *message.GlobalCounter
	sink          metrics.Sink
}

// NewTable builds an empty session table. maxSize<=0 uses DefaultMaxSessions.
func NewTable(maxSize int) *Table {
	if maxSize <= 0 {
		maxSize = DefaultMaxSessions
	}
	return &Table{
		sessions:      make(map[uint16]*Context),
		maxSize:       maxSize,
		globalCounter: message.NewGlobalCounter(),
		sink:          metrics.NopSink{},
	}
}

// SetSink installs the metrics sink sessions are reported through. Safe to
// call once during node setup, before the table is shared across goroutines.
func (t *Table) SetSink(sink metrics.Sink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	t.sink = sink
}

// reportCount pushes the current table size to the installed sink. Callers
// must hold t.mu (read or write) before calling len(t.sessions) separately;
// this helper takes the count directly to avoid re-locking.
func (t *Table) reportCount(n int) {
	t.sink.SetActiveSessions(n)
}

// GlobalCounter is the outbound counter shared by unsecured (handshake)
// messages, before any session exists to own one (spec §4.5/§4.6). Unlike
// a per-session Counter, it never exhausts: there is no session to
// re-establish when it wraps, so it just keeps counting from 0.
func (t *Table) GlobalCounter() *message.GlobalCounter { return t.globalCounter }

func randomCandidate() (uint16, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(buf[:])
	span := uint32(MaxID-MinID) + 1
	return MinID + uint16(uint32(v)%span), nil
}

// CreateProvisional allocates a fresh local session id and returns an
// unestablished Context a handshake FSM can populate. The id is retried
// against the live table until a free one is found (spec §9).
func (t *Table) CreateProvisional(kind Kind, role Role) (*Context, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sessions) >= t.maxSize {
		return nil, ErrTableFull
	}

	for attempts := 0; attempts < 4*int(MaxID-MinID+1); attempts++ {
		id, err := randomCandidate()
		if err != nil {
			return nil, err
		}
		if _, exists := t.sessions[id]; exists {
			continue
		}
		ctx := &Context{localID: id, kind: kind, role: role, params: DefaultParams()}
		t.sessions[id] = ctx
		t.reportCount(len(t.sessions))
		return ctx, nil
	}
	return nil, ErrIDSpaceExhausted
}

// Lookup finds a session by local id.
func (t *Table) Lookup(localID uint16) (*Context, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ctx, ok := t.sessions[localID]
	return ctx, ok
}

// Close tears down and removes a session, zeroizing its keys.
func (t *Table) Close(localID uint16) {
	t.mu.Lock()
	ctx, ok := t.sessions[localID]
	if ok {
		delete(t.sessions, localID)
		t.reportCount(len(t.sessions))
	}
	t.mu.Unlock()
	if ok {
		ctx.ZeroizeKeys()
	}
}

// CloseByTransport closes every session bound to the given transport
// descriptor — "iterate sessions whose descriptor matches the closing
// transport" (spec §9) — returning the closed session ids so the exchange
// manager and subscription engine can tear down their state too.
func (t *Table) CloseByTransport(descriptor any) []uint16 {
	t.mu.Lock()
	var closed []uint16
	var ctxs []*Context
	for id, ctx := range t.sessions {
		if ctx.Transport() == descriptor {
			closed = append(closed, id)
			ctxs = append(ctxs, ctx)
			delete(t.sessions, id)
		}
	}
	t.reportCount(len(t.sessions))
	t.mu.Unlock()
	for _, ctx := range ctxs {
		ctx.ZeroizeKeys()
	}
	return closed
}

// FindByPeer returns all sessions established with a given peer on a fabric.
func (t *Table) FindByPeer(idx fabric.Index, peer fabric.NodeID) []*Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Context
	for _, ctx := range t.sessions {
		if ctx.FabricIndex() == idx && ctx.PeerNodeID() == peer {
			out = append(out, ctx)
		}
	}
	return out
}

// RemoveFabric closes every session on a fabric (e.g. on fabric removal).
func (t *Table) RemoveFabric(idx fabric.Index) int {
	t.mu.Lock()
	var ids []uint16
	var ctxs []*Context
	for id, ctx := range t.sessions {
		if ctx.FabricIndex() == idx {
			ids = append(ids, id)
			ctxs = append(ctxs, ctx)
		}
	}
	for _, id := range ids {
		delete(t.sessions, id)
	}
	t.reportCount(len(t.sessions))
	t.mu.Unlock()
	for _, ctx := range ctxs {
		ctx.ZeroizeKeys()
	}
	return len(ids)
}

// Count returns the number of sessions currently tracked (provisional or
// established).
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// ForEach visits every session; fn returning false stops iteration.
func (t *Table) ForEach(fn func(*Context) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ctx := range t.sessions {
		if !fn(ctx) {
			return
		}
	}
}
