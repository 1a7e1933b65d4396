package im

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/metrics"
	"github.com/mkniffen/matterd/pkg/tlv"
)

// Subscription tracks one live subscription's reporting state (spec
// §4.10): the path set it watches, the last value observed at each path,
// and the min/max interval bounds its tick loop must respect.
type Subscription struct {
	ID       message.SubscriptionID
	reqCtx   acl.Context
	fabric   bool
	paths    []message.AttributePathIB
	min, max time.Duration

	mu         sync.Mutex
	lastReport time.Time
	lastValues map[ConcreteAttributePath][]byte

	Send func(message.ReportDataMessage) error
}

// SubscriptionManager allocates and ticks subscriptions against a Server
// (spec §4.10).
type SubscriptionManager struct {
	s *Server

	mu     sync.Mutex
	nextID message.SubscriptionID
	subs   map[message.SubscriptionID]*Subscription
	sink   metrics.Sink
}

func NewSubscriptionManager(s *Server) *SubscriptionManager {
	return &SubscriptionManager{s: s, subs: make(map[message.SubscriptionID]*Subscription), sink: metrics.NopSink{}}
}

// SetSink installs the metrics sink live subscription counts are reported
// through. Safe to call once during node setup.
func (m *SubscriptionManager) SetSink(sink metrics.Sink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

// Subscribe allocates a subscription, snapshots current values across the
// expanded path set, and returns the priming ReportData chunks plus the
// SubscribeResponse to send after them (spec §4.10).
func (m *SubscriptionManager) Subscribe(
	ctx context.Context,
	reqCtx acl.Context,
	req message.SubscribeRequestMessage,
	send func(message.ReportDataMessage) error,
) (message.SubscribeResponseMessage, []message.ReportDataMessage, error) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	sub := &Subscription{
		ID:         id,
		reqCtx:     reqCtx,
		fabric:     req.FabricFiltered,
		paths:      req.AttributeRequests,
		min:        time.Duration(req.MinIntervalFloor) * time.Second,
		max:        time.Duration(req.MaxIntervalCeiling) * time.Second,
		lastValues: make(map[ConcreteAttributePath][]byte),
		Send:       send,
	}

	reports := m.s.snapshot(ctx, sub, sub.paths)
	sub.mu.Lock()
	sub.lastReport = time.Now()
	sub.mu.Unlock()

	chunks := chunkReports(reports)
	for i := range chunks {
		chunks[i].SubscriptionID = &id
	}

	m.mu.Lock()
	m.subs[id] = sub
	m.sink.SetActiveSubscriptions(len(m.subs))
	m.mu.Unlock()

	return message.SubscribeResponseMessage{SubscriptionID: id, MaxInterval: req.MaxIntervalCeiling}, chunks, nil
}

// Close terminates a subscription (spec §4.10: session close, peer
// rejection, or resource exhaustion all route here).
func (m *SubscriptionManager) Close(id message.SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	m.sink.SetActiveSubscriptions(len(m.subs))
}

// Tick drives one pass of the reporting loop (spec §4.10), called
// roughly once a second. It never reports a subscription more often than
// its min_interval, and forces a keep-alive report at max_interval even
// with no changes.
func (m *SubscriptionManager) Tick(ctx context.Context, now time.Time) {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		m.tickOne(ctx, sub, now)
	}
}

func (m *SubscriptionManager) tickOne(ctx context.Context, sub *Subscription, now time.Time) {
	sub.mu.Lock()
	elapsed := now.Sub(sub.lastReport)
	sub.mu.Unlock()

	if elapsed >= sub.max {
		reports := m.s.snapshot(ctx, sub, sub.paths)
		m.emit(sub, reports, now)
		return
	}
	if elapsed < sub.min {
		return
	}

	changed := m.s.changedReports(ctx, sub)
	if len(changed) == 0 {
		return
	}
	m.emit(sub, changed, now)
}

func (m *SubscriptionManager) emit(sub *Subscription, reports []message.AttributeReportIB, now time.Time) {
	sub.mu.Lock()
	sub.lastReport = now
	sub.mu.Unlock()

	for _, chunk := range chunkReports(reports) {
		chunk.SubscriptionID = &sub.ID
		if sub.Send != nil {
			sub.Send(chunk)
		}
	}
}

// snapshot reads every path in paths and records the encoded value for
// future change detection.
func (s *Server) snapshot(ctx context.Context, sub *Subscription, paths []message.AttributePathIB) []message.AttributeReportIB {
	var reports []message.AttributeReportIB
	for _, p := range paths {
		for _, cp := range s.Router.expandAttributePath(p) {
			report := s.readOne(ctx, sub.reqCtx, sub.fabric, cp)
			reports = append(reports, report)
			if report.AttributeData != nil {
				encoded, _ := tlv.Encode(report.AttributeData.Data)
				sub.mu.Lock()
				sub.lastValues[cp] = encoded
				sub.mu.Unlock()
			}
		}
	}
	return reports
}

// changedReports re-reads the watched paths and returns only the ones
// whose encoded value differs from the last snapshot.
func (s *Server) changedReports(ctx context.Context, sub *Subscription) []message.AttributeReportIB {
	var changed []message.AttributeReportIB
	for _, p := range sub.paths {
		for _, cp := range s.Router.expandAttributePath(p) {
			report := s.readOne(ctx, sub.reqCtx, sub.fabric, cp)
			if report.AttributeData == nil {
				changed = append(changed, report)
				continue
			}
			encoded, _ := tlv.Encode(report.AttributeData.Data)
			sub.mu.Lock()
			prev, ok := sub.lastValues[cp]
			sub.lastValues[cp] = encoded
			sub.mu.Unlock()
			if !ok || !bytes.Equal(prev, encoded) {
				changed = append(changed, report)
			}
		}
	}
	return changed
}
