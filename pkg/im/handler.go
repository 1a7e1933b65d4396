package im

import (
	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/metrics"
)

// AccessControlClusterID is the Access Control cluster (0x001F), writes
// to which require Administer privilege rather than the usual Operate
// (spec §4.9).
const AccessControlClusterID ClusterID = 0x001F

// MaxReportsPerChunk bounds how many attribute reports a single
// ReportData message carries before the response must be split into
// follow-up chunks (spec §4.9).
const MaxReportsPerChunk = 9

// ACLEntries resolves the ACL entries in force for a fabric. The router
// doesn't own fabric/ACL storage itself; it asks this function each time
// so callers can back it with whatever attribute store they use.
type ACLEntries func(fabricIndex uint8) []acl.Entry

// Server dispatches Interaction Model requests against a cluster tree,
// gated by the access control entries ACLEntries supplies (spec §4.9).
type Server struct {
	Router  *Router
	Entries ACLEntries
	Sink    metrics.Sink
}

func NewServer(router *Router, entries ACLEntries) *Server {
	return &Server{Router: router, Entries: entries, Sink: metrics.NopSink{}}
}

// SetSink installs the metrics sink failure statuses are reported
// through. Safe to call once during node setup.
func (s *Server) SetSink(sink metrics.Sink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	s.Sink = sink
}

// recordStatus reports a non-success IM status code to the metrics sink.
func (s *Server) recordStatus(status message.Status) {
	if status != message.StatusSuccess {
		s.Sink.RecordIMError(uint8(status))
	}
}

func (s *Server) entries(ctx acl.Context) []acl.Entry {
	if s.Entries == nil {
		return nil
	}
	return s.Entries(uint8(ctx.FabricIndex))
}

func requiredWritePrivilege(cluster ClusterID) acl.Privilege {
	if cluster == AccessControlClusterID {
		return acl.PrivilegeAdminister
	}
	return acl.PrivilegeOperate
}
