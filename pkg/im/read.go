package im

import (
	"context"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

// globalFieldFabricIndex is the context tag a fabric-scoped list element
// carries its owning fabric index under (spec §7.13.6 / §4.9).
const globalFieldFabricIndex = 0xFE

// HandleRead resolves a ReadRequest into one or more ReportData messages,
// chunked at MaxReportsPerChunk (spec §4.9).
func (s *Server) HandleRead(ctx context.Context, reqCtx acl.Context, req message.ReadRequestMessage) []message.ReportDataMessage {
	var reports []message.AttributeReportIB

	for _, p := range req.AttributeRequests {
		for _, path := range s.Router.expandAttributePath(p) {
			reports = append(reports, s.readOne(ctx, reqCtx, req.FabricFiltered, path))
		}
	}

	return chunkReports(reports)
}

func (s *Server) readOne(ctx context.Context, reqCtx acl.Context, fabricFiltered bool, path ConcreteAttributePath) message.AttributeReportIB {
	c, ok := s.Router.cluster(path.Endpoint, path.Cluster)
	if !ok {
		return s.statusReport(path, message.StatusUnsupportedCluster)
	}
	meta, ok := attributeMeta(c, path.Attribute)
	if !ok {
		return s.statusReport(path, message.StatusUnsupportedAttribute)
	}
	if !acl.Check(reqCtx, s.entries(reqCtx), acl.PrivilegeView, uint16(path.Endpoint), uint32(path.Cluster)) {
		return s.statusReport(path, message.StatusUnsupportedAccess)
	}

	value, err := c.ReadAttribute(ctx, reqCtx, path.Attribute)
	if err != nil {
		return s.statusReport(path, message.StatusFailure)
	}

	if fabricFiltered && meta.FabricScoped && !reqCtx.IsPASE {
		value = filterByFabric(value, uint64(reqCtx.FabricIndex))
	}

	return message.AttributeReportIB{
		AttributeData: &message.AttributeDataIB{
			DataVersion: c.DataVersion(),
			Path:        wildcardToPath(path),
			Data:        value,
		},
	}
}

func (s *Server) statusReport(path ConcreteAttributePath, status message.Status) message.AttributeReportIB {
	s.recordStatus(status)
	return message.AttributeReportIB{
		AttributeStatus: &message.AttributeStatusIB{
			Path:   wildcardToPath(path),
			Status: message.StatusIB{Status: status},
		},
	}
}

func wildcardToPath(path ConcreteAttributePath) message.AttributePathIB {
	ep, cl, at := path.Endpoint, path.Cluster, path.Attribute
	return message.AttributePathIB{Endpoint: &ep, Cluster: &cl, Attribute: &at}
}

// filterByFabric drops elements of a fabric-scoped list whose fabric
// index field doesn't match fabricIndex (spec §4.9).
func filterByFabric(v tlv.Value, fabricIndex uint64) tlv.Value {
	if v.Kind != tlv.KindArray && v.Kind != tlv.KindList {
		return v
	}
	var kept []tlv.Value
	for _, e := range v.Elems() {
		if f, ok := e.Field(globalFieldFabricIndex); ok {
			if u, ok := f.AsUint(); ok && u != fabricIndex {
				continue
			}
		}
		kept = append(kept, e)
	}
	if v.Kind == tlv.KindArray {
		return tlv.Array(v.Tag, kept...)
	}
	return tlv.List(v.Tag, kept...)
}

// chunkReports splits reports across ReportData messages of at most
// MaxReportsPerChunk each, setting MoreChunkedMessages on every chunk but
// the last (spec §4.9). A nil/empty input still yields one empty chunk.
func chunkReports(reports []message.AttributeReportIB) []message.ReportDataMessage {
	if len(reports) == 0 {
		return []message.ReportDataMessage{{SuppressResponse: true}}
	}
	var out []message.ReportDataMessage
	for i := 0; i < len(reports); i += MaxReportsPerChunk {
		end := i + MaxReportsPerChunk
		if end > len(reports) {
			end = len(reports)
		}
		out = append(out, message.ReportDataMessage{
			AttributeReports:    reports[i:end],
			MoreChunkedMessages: end < len(reports),
		})
	}
	return out
}
