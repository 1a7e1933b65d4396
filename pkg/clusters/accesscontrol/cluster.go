// Package accesscontrol implements the Access Control cluster (0x001F):
// the fabric-scoped attribute that stores the ACL entries spec §4.11's
// Check function evaluates. Writes to this cluster require Administer
// privilege (spec §4.9); the IM layer enforces that, not this package.
package accesscontrol

import (
	"context"
	"sync"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/im"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

const (
	ClusterID       = im.AccessControlClusterID
	ClusterRevision uint16 = 1
)

// Attribute IDs (spec cluster definition 9.10.6).
const (
	AttrACL im.AttributeID = 0x0000
)

// AccessControlEntryStruct field tags.
const (
	entryTagPrivilege   = 1
	entryTagAuthMode    = 2
	entryTagSubjects    = 3
	entryTagTargets     = 4
	entryTagFabricIndex = 0xFE

	targetTagCluster  = 0
	targetTagEndpoint = 1
)

// Cluster implements im.Cluster for the Access Control cluster. It is the
// backing store an ACLEntries callback (see pkg/im.Server) reads when
// checking a request against spec §4.11.
type Cluster struct {
	mu      sync.RWMutex
	entries []acl.Entry
	version message.DataVersion
}

func New() *Cluster {
	return &Cluster{}
}

func (c *Cluster) ID() im.ClusterID                 { return ClusterID }
func (c *Cluster) DataVersion() message.DataVersion { return c.version }

func (c *Cluster) Attributes() []im.AttributeMetadata {
	attrs := []im.AttributeMetadata{{ID: AttrACL, Writable: true, FabricScoped: true}}
	for _, id := range im.GlobalAttributeIDs() {
		attrs = append(attrs, im.AttributeMetadata{ID: id})
	}
	return attrs
}

func (c *Cluster) Commands() []im.CommandID { return nil }

// EntriesForFabric returns the ACL entries belonging to fabricIndex,
// wired as an im.ACLEntries callback at bootstrap.
func (c *Cluster) EntriesForFabric(fabricIndex uint8) []acl.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []acl.Entry
	for _, e := range c.entries {
		if uint8(e.FabricIndex) == fabricIndex {
			out = append(out, e)
		}
	}
	return out
}

func (c *Cluster) ReadAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID) (tlv.Value, error) {
	if v, ok := im.ReadGlobalAttribute(attr, ClusterRevision, 0, c.Attributes(), nil, nil); ok {
		return v, nil
	}
	if attr != AttrACL {
		return tlv.Value{}, im.ErrAttributeNotFound
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return EncodeEntries(c.entries), nil
}

// EncodeEntries builds the AccessControlEntryStruct list an ACL
// attribute read/write carries on the wire, exported so bootstrap code
// and tests can seed entries without reaching into unexported helpers.
func EncodeEntries(entries []acl.Entry) tlv.Value {
	elems := make([]tlv.Value, len(entries))
	for i, e := range entries {
		elems[i] = encodeEntry(e)
	}
	return tlv.Array(tlv.AnonymousTag(), elems...)
}

func (c *Cluster) WriteAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID, data tlv.Value) error {
	if attr != AttrACL {
		return im.ErrNotWritable
	}
	entries := make([]acl.Entry, 0, len(data.Elems()))
	for _, v := range data.Elems() {
		e, ok := decodeEntry(v)
		if !ok {
			return im.ErrNotWritable
		}
		entries = append(entries, e)
	}

	c.mu.Lock()
	c.entries = entries
	c.version++
	c.mu.Unlock()
	return nil
}

func (c *Cluster) InvokeCommand(ctx context.Context, reqCtx acl.Context, cmd im.CommandID, fields tlv.Value) (*tlv.Value, error) {
	return nil, im.ErrCommandNotFound
}

func encodeEntry(e acl.Entry) tlv.Value {
	var subjects []tlv.Value
	for _, s := range e.Subjects {
		subjects = append(subjects, tlv.Uint(tlv.AnonymousTag(), s))
	}

	var targets []tlv.Value
	for _, t := range e.Targets {
		fields := []tlv.Value{}
		if t.Cluster != nil {
			fields = append(fields, tlv.Uint(tlv.ContextTag(targetTagCluster), uint64(*t.Cluster)))
		}
		if t.Endpoint != nil {
			fields = append(fields, tlv.Uint(tlv.ContextTag(targetTagEndpoint), uint64(*t.Endpoint)))
		}
		targets = append(targets, tlv.Struct(tlv.AnonymousTag(), fields...))
	}

	return tlv.Struct(tlv.AnonymousTag(),
		tlv.Uint(tlv.ContextTag(entryTagPrivilege), uint64(e.Privilege)),
		tlv.Uint(tlv.ContextTag(entryTagAuthMode), uint64(e.AuthMode)),
		tlv.Array(tlv.ContextTag(entryTagSubjects), subjects...),
		tlv.Array(tlv.ContextTag(entryTagTargets), targets...),
		tlv.Uint(tlv.ContextTag(entryTagFabricIndex), uint64(e.FabricIndex)),
	)
}

func decodeEntry(v tlv.Value) (acl.Entry, bool) {
	if v.Kind != tlv.KindStruct {
		return acl.Entry{}, false
	}
	var e acl.Entry

	if f, ok := v.Field(entryTagPrivilege); ok {
		if u, ok := f.AsUint(); ok {
			e.Privilege = acl.Privilege(u)
		}
	}
	if f, ok := v.Field(entryTagAuthMode); ok {
		if u, ok := f.AsUint(); ok {
			e.AuthMode = acl.AuthMode(u)
		}
	}
	if f, ok := v.Field(entryTagFabricIndex); ok {
		if u, ok := f.AsUint(); ok {
			e.FabricIndex = fabric.Index(u)
		}
	}
	if f, ok := v.Field(entryTagSubjects); ok {
		for _, s := range f.Elems() {
			if u, ok := s.AsUint(); ok {
				e.Subjects = append(e.Subjects, u)
			}
		}
	}
	if f, ok := v.Field(entryTagTargets); ok {
		for _, t := range f.Elems() {
			var target acl.Target
			if cf, ok := t.Field(targetTagCluster); ok {
				if u, ok := cf.AsUint(); ok {
					cl := uint32(u)
					target.Cluster = &cl
				}
			}
			if ef, ok := t.Field(targetTagEndpoint); ok {
				if u, ok := ef.AsUint(); ok {
					ep := uint16(u)
					target.Endpoint = &ep
				}
			}
			e.Targets = append(e.Targets, target)
		}
	}

	return e, true
}
