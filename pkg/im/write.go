package im

import (
	"context"
	"errors"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

// HandleWrite applies a WriteRequest's attribute writes and reports a
// per-path status for each (spec §4.9).
func (s *Server) HandleWrite(ctx context.Context, reqCtx acl.Context, req message.WriteRequestMessage) message.WriteResponseMessage {
	var statuses []message.AttributeStatusIB

	for _, data := range req.WriteRequests {
		for _, path := range s.Router.expandAttributePath(data.Path) {
			statuses = append(statuses, s.writeOne(ctx, reqCtx, path, data.Data))
		}
	}

	if req.SuppressResponse {
		return message.WriteResponseMessage{}
	}
	return message.WriteResponseMessage{WriteResponses: statuses}
}

func (s *Server) writeOne(ctx context.Context, reqCtx acl.Context, path ConcreteAttributePath, data tlv.Value) message.AttributeStatusIB {
	c, ok := s.Router.cluster(path.Endpoint, path.Cluster)
	if !ok {
		return s.attributeStatus(path, message.StatusUnsupportedCluster)
	}
	meta, ok := attributeMeta(c, path.Attribute)
	if !ok {
		return s.attributeStatus(path, message.StatusUnsupportedAttribute)
	}
	if !meta.Writable {
		return s.attributeStatus(path, message.StatusUnsupportedWrite)
	}

	required := requiredWritePrivilege(path.Cluster)
	if !acl.Check(reqCtx, s.entries(reqCtx), required, uint16(path.Endpoint), uint32(path.Cluster)) {
		return s.attributeStatus(path, message.StatusUnsupportedAccess)
	}

	if meta.FabricScoped && !reqCtx.IsPASE {
		data = s.mergeFabricScoped(ctx, reqCtx, c, path, data)
	}

	if err := c.WriteAttribute(ctx, reqCtx, path.Attribute, data); err != nil {
		return s.attributeStatus(path, writeErrorStatus(err))
	}
	return s.attributeStatus(path, message.StatusSuccess)
}

func (s *Server) attributeStatus(path ConcreteAttributePath, status message.Status) message.AttributeStatusIB {
	s.recordStatus(status)
	return message.AttributeStatusIB{Path: wildcardToPath(path), Status: message.StatusIB{Status: status}}
}

func writeErrorStatus(err error) message.Status {
	switch {
	case errors.Is(err, ErrNotWritable):
		return message.StatusUnsupportedWrite
	default:
		return message.StatusFailure
	}
}

// mergeFabricScoped preserves other fabrics' entries in a fabric-scoped
// list attribute: the incoming write only ever replaces this requester's
// own entries (spec §4.9).
func (s *Server) mergeFabricScoped(ctx context.Context, reqCtx acl.Context, c Cluster, path ConcreteAttributePath, data tlv.Value) tlv.Value {
	current, err := c.ReadAttribute(ctx, reqCtx, path.Attribute)
	if err != nil {
		return data
	}
	others := filterOutFabric(current, uint64(reqCtx.FabricIndex))
	mine := stampFabric(data, uint64(reqCtx.FabricIndex))
	merged := append(append([]tlv.Value(nil), others.Elems()...), mine.Elems()...)
	if data.Kind == tlv.KindList {
		return tlv.List(data.Tag, merged...)
	}
	return tlv.Array(data.Tag, merged...)
}

func filterOutFabric(v tlv.Value, fabricIndex uint64) tlv.Value {
	var kept []tlv.Value
	for _, e := range v.Elems() {
		if f, ok := e.Field(globalFieldFabricIndex); ok {
			if u, ok := f.AsUint(); ok && u == fabricIndex {
				continue
			}
		}
		kept = append(kept, e)
	}
	return tlv.Array(v.Tag, kept...)
}

// stampFabric overwrites (or adds) each element's fabric-index field with
// fabricIndex, discarding any value the client supplied: a commissioner
// never gets to pick which fabric its own write lands in.
func stampFabric(v tlv.Value, fabricIndex uint64) tlv.Value {
	elems := v.Elems()
	out := make([]tlv.Value, len(elems))
	for i, e := range elems {
		var fields []tlv.Value
		for _, f := range e.Elems() {
			if n, ok := f.Tag.IsContext(); ok && n == globalFieldFabricIndex {
				continue
			}
			fields = append(fields, f)
		}
		fields = append(fields, tlv.Uint(tlv.ContextTag(globalFieldFabricIndex), fabricIndex))
		out[i] = tlv.Struct(e.Tag, fields...)
	}
	return tlv.Array(v.Tag, out...)
}
