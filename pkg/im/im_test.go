package im

import (
	"context"
	"testing"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

// mockOnOff is a minimal single-attribute cluster double used to drive
// the router without pulling in a real cluster implementation.
type mockOnOff struct {
	on      bool
	version message.DataVersion
}

const (
	mockClusterID ClusterID   = 0x0006
	mockAttrOnOff AttributeID = 0x0000
	mockCmdOn     CommandID   = 0x01
	mockCmdOff    CommandID   = 0x00
)

func (c *mockOnOff) ID() ClusterID                   { return mockClusterID }
func (c *mockOnOff) DataVersion() message.DataVersion { return c.version }
func (c *mockOnOff) Attributes() []AttributeMetadata {
	return []AttributeMetadata{{ID: mockAttrOnOff, Writable: true}}
}
func (c *mockOnOff) Commands() []CommandID { return []CommandID{mockCmdOn, mockCmdOff} }

func (c *mockOnOff) ReadAttribute(ctx context.Context, reqCtx acl.Context, attr AttributeID) (tlv.Value, error) {
	if attr != mockAttrOnOff {
		return tlv.Value{}, ErrAttributeNotFound
	}
	return tlv.Bool(tlv.AnonymousTag(), c.on), nil
}

func (c *mockOnOff) WriteAttribute(ctx context.Context, reqCtx acl.Context, attr AttributeID, data tlv.Value) error {
	if attr != mockAttrOnOff {
		return ErrAttributeNotFound
	}
	v, _ := data.AsBool()
	c.on = v
	c.version++
	return nil
}

func (c *mockOnOff) InvokeCommand(ctx context.Context, reqCtx acl.Context, cmd CommandID, fields tlv.Value) (*tlv.Value, error) {
	switch cmd {
	case mockCmdOn:
		c.on = true
	case mockCmdOff:
		c.on = false
	default:
		return nil, ErrCommandNotFound
	}
	c.version++
	return nil, nil
}

func newTestServer() (*Server, *mockOnOff) {
	router := NewRouter()
	cluster := &mockOnOff{}
	router.RegisterCluster(1, cluster)
	return NewServer(router, func(uint8) []acl.Entry { return nil }), cluster
}

var adminCtx = acl.Context{FabricIndex: 1, AuthMode: acl.AuthModeCASE, Subject: 1, IsPASE: true}

func TestHandleReadReturnsValue(t *testing.T) {
	s, cluster := newTestServer()
	cluster.on = true

	endpoint, clusterID := EndpointID(1), mockClusterID
	req := message.ReadRequestMessage{AttributeRequests: []message.AttributePathIB{{Endpoint: &endpoint, Cluster: &clusterID}}}

	chunks := s.HandleRead(context.Background(), adminCtx, req)
	if len(chunks) != 1 || len(chunks[0].AttributeReports) != 1 {
		t.Fatalf("got %+v", chunks)
	}
	data := chunks[0].AttributeReports[0].AttributeData
	if data == nil {
		t.Fatal("expected attribute data, got status")
	}
	v, _ := data.Data.AsBool()
	if !v {
		t.Fatal("expected on=true")
	}
}

func TestHandleReadDeniesWithoutACL(t *testing.T) {
	s, _ := newTestServer()
	denyCtx := acl.Context{FabricIndex: 1, AuthMode: acl.AuthModeCASE, Subject: 1}

	endpoint, clusterID := EndpointID(1), mockClusterID
	req := message.ReadRequestMessage{AttributeRequests: []message.AttributePathIB{{Endpoint: &endpoint, Cluster: &clusterID}}}

	chunks := s.HandleRead(context.Background(), denyCtx, req)
	status := chunks[0].AttributeReports[0].AttributeStatus
	if status == nil || status.Status.Status != message.StatusUnsupportedAccess {
		t.Fatalf("got %+v, want UnsupportedAccess", chunks[0].AttributeReports[0])
	}
}

func TestHandleReadChunksAtMaxReportsPerChunk(t *testing.T) {
	router := NewRouter()
	for i := 0; i < MaxReportsPerChunk+3; i++ {
		router.RegisterCluster(EndpointID(i), &mockOnOff{})
	}
	s := NewServer(router, func(uint8) []acl.Entry { return nil })

	req := message.ReadRequestMessage{AttributeRequests: []message.AttributePathIB{{}}}
	chunks := s.HandleRead(context.Background(), adminCtx, req)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !chunks[0].MoreChunkedMessages {
		t.Fatal("first chunk should set MoreChunkedMessages")
	}
	if chunks[1].MoreChunkedMessages {
		t.Fatal("last chunk should not set MoreChunkedMessages")
	}
	total := len(chunks[0].AttributeReports) + len(chunks[1].AttributeReports)
	if total != MaxReportsPerChunk+3 {
		t.Fatalf("got %d total reports, want %d", total, MaxReportsPerChunk+3)
	}
}

func TestHandleWriteAppliesAndReturnsStatus(t *testing.T) {
	s, cluster := newTestServer()

	endpoint, clusterID := EndpointID(1), mockClusterID
	req := message.WriteRequestMessage{WriteRequests: []message.AttributeDataIB{
		{Path: message.AttributePathIB{Endpoint: &endpoint, Cluster: &clusterID, Attribute: attrPtr(mockAttrOnOff)}, Data: tlv.Bool(tlv.AnonymousTag(), true)},
	}}

	resp := s.HandleWrite(context.Background(), adminCtx, req)
	if len(resp.WriteResponses) != 1 || resp.WriteResponses[0].Status.Status != message.StatusSuccess {
		t.Fatalf("got %+v", resp)
	}
	if !cluster.on {
		t.Fatal("write should have applied")
	}
}

func attrPtr(v AttributeID) *AttributeID { return &v }

func TestHandleInvokeRunsCommand(t *testing.T) {
	s, cluster := newTestServer()

	req := message.InvokeRequestMessage{InvokeRequests: []message.CommandDataIB{
		{Path: message.CommandPathIB{Endpoint: 1, Cluster: mockClusterID, Command: mockCmdOn}},
	}}

	resp := s.HandleInvoke(context.Background(), adminCtx, req)
	if len(resp.InvokeResponses) != 1 {
		t.Fatalf("got %+v", resp)
	}
	st := resp.InvokeResponses[0].Status
	if st == nil || st.Status.Status != message.StatusSuccess {
		t.Fatalf("got %+v, want success status", resp.InvokeResponses[0])
	}
	if !cluster.on {
		t.Fatal("invoke should have applied")
	}
}

func TestHandleInvokeUnsupportedCommand(t *testing.T) {
	s, _ := newTestServer()
	req := message.InvokeRequestMessage{InvokeRequests: []message.CommandDataIB{
		{Path: message.CommandPathIB{Endpoint: 1, Cluster: mockClusterID, Command: 0x99}},
	}}
	resp := s.HandleInvoke(context.Background(), adminCtx, req)
	st := resp.InvokeResponses[0].Status
	if st == nil || st.Status.Status != message.StatusUnsupportedCommand {
		t.Fatalf("got %+v, want UnsupportedCommand", resp.InvokeResponses[0])
	}
}

type recordingSink struct {
	fakeSubscriptionSink
	codes []uint8
}

func (r *recordingSink) RecordIMError(code uint8) { r.codes = append(r.codes, code) }

func TestHandleInvokeReportsFailureStatusToSink(t *testing.T) {
	s, _ := newTestServer()
	sink := &recordingSink{}
	s.SetSink(sink)

	req := message.InvokeRequestMessage{InvokeRequests: []message.CommandDataIB{
		{Path: message.CommandPathIB{Endpoint: 1, Cluster: mockClusterID, Command: 0x99}},
	}}
	s.HandleInvoke(context.Background(), adminCtx, req)

	if len(sink.codes) != 1 || sink.codes[0] != uint8(message.StatusUnsupportedCommand) {
		t.Fatalf("recorded IM error codes = %v, want [%d]", sink.codes, message.StatusUnsupportedCommand)
	}
}

func TestHandleInvokeSuccessDoesNotReportToSink(t *testing.T) {
	s, _ := newTestServer()
	sink := &recordingSink{}
	s.SetSink(sink)

	req := message.InvokeRequestMessage{InvokeRequests: []message.CommandDataIB{
		{Path: message.CommandPathIB{Endpoint: 1, Cluster: mockClusterID, Command: mockCmdOn}},
	}}
	s.HandleInvoke(context.Background(), adminCtx, req)

	if len(sink.codes) != 0 {
		t.Fatalf("recorded IM error codes = %v, want none on success", sink.codes)
	}
}
