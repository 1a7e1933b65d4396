package message

import "github.com/mkniffen/matterd/pkg/tlv"

// Type aliases for Matter data model identifiers, kept distinct so a
// raw uint64 from the wire can't be handed to the wrong path field.
type (
	NodeID         uint64
	EndpointID     uint16
	ClusterID      uint32
	AttributeID    uint32
	CommandID      uint32
	EventID        uint32
	ListIndex      uint16
	DataVersion    uint32
	EventNumber    uint64
	SubscriptionID uint32
)

// AttributePathIB identifies an attribute, or a wildcard set of them
// (spec §4.9, attribute path expansion).
type AttributePathIB struct {
	EnableTagCompression bool
	Node                 *NodeID
	Endpoint             *EndpointID
	Cluster              *ClusterID
	Attribute            *AttributeID
	ListIndex            *ListIndex
}

const (
	attrPathTagEnableTagCompression = 0
	attrPathTagNode                 = 1
	attrPathTagEndpoint             = 2
	attrPathTagCluster              = 3
	attrPathTagAttribute            = 4
	attrPathTagListIndex            = 5
)

func (p AttributePathIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if p.EnableTagCompression {
		fields = append(fields, tlv.Bool(tlv.ContextTag(attrPathTagEnableTagCompression), true))
	}
	if p.Node != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(attrPathTagNode), uint64(*p.Node)))
	}
	if p.Endpoint != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(attrPathTagEndpoint), uint64(*p.Endpoint)))
	}
	if p.Cluster != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(attrPathTagCluster), uint64(*p.Cluster)))
	}
	if p.Attribute != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(attrPathTagAttribute), uint64(*p.Attribute)))
	}
	if p.ListIndex != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(attrPathTagListIndex), uint64(*p.ListIndex)))
	}
	return tlv.List(tag, fields...)
}

func decodeAttributePath(v tlv.Value) AttributePathIB {
	var p AttributePathIB
	if f, ok := v.Field(attrPathTagEnableTagCompression); ok {
		p.EnableTagCompression, _ = f.AsBool()
	}
	if f, ok := v.Field(attrPathTagNode); ok {
		u, _ := f.AsUint()
		n := NodeID(u)
		p.Node = &n
	}
	if f, ok := v.Field(attrPathTagEndpoint); ok {
		u, _ := f.AsUint()
		e := EndpointID(u)
		p.Endpoint = &e
	}
	if f, ok := v.Field(attrPathTagCluster); ok {
		u, _ := f.AsUint()
		c := ClusterID(u)
		p.Cluster = &c
	}
	if f, ok := v.Field(attrPathTagAttribute); ok {
		u, _ := f.AsUint()
		a := AttributeID(u)
		p.Attribute = &a
	}
	if f, ok := v.Field(attrPathTagListIndex); ok {
		u, _ := f.AsUint()
		l := ListIndex(u)
		p.ListIndex = &l
	}
	return p
}

// IsWildcard reports whether any path component is left unspecified,
// meaning the path must be expanded against the data model tree rather
// than resolved directly.
func (p AttributePathIB) IsWildcard() bool {
	return p.Endpoint == nil || p.Cluster == nil || p.Attribute == nil
}

// ClusterPathIB identifies one cluster instance, used by data version
// filters to scope a "skip if unchanged" hint.
type ClusterPathIB struct {
	Node     *NodeID
	Endpoint EndpointID
	Cluster  ClusterID
}

const (
	clusterPathTagNode     = 0
	clusterPathTagEndpoint = 1
	clusterPathTagCluster  = 2
)

func (p ClusterPathIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if p.Node != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(clusterPathTagNode), uint64(*p.Node)))
	}
	fields = append(fields,
		tlv.Uint(tlv.ContextTag(clusterPathTagEndpoint), uint64(p.Endpoint)),
		tlv.Uint(tlv.ContextTag(clusterPathTagCluster), uint64(p.Cluster)),
	)
	return tlv.List(tag, fields...)
}

func decodeClusterPath(v tlv.Value) ClusterPathIB {
	var p ClusterPathIB
	if f, ok := v.Field(clusterPathTagNode); ok {
		u, _ := f.AsUint()
		n := NodeID(u)
		p.Node = &n
	}
	if f, ok := v.Field(clusterPathTagEndpoint); ok {
		u, _ := f.AsUint()
		p.Endpoint = EndpointID(u)
	}
	if f, ok := v.Field(clusterPathTagCluster); ok {
		u, _ := f.AsUint()
		p.Cluster = ClusterID(u)
	}
	return p
}

// CommandPathIB identifies a single command on a single cluster instance
// (commands, unlike attributes and events, are never addressed by a
// wildcard path in a request).
type CommandPathIB struct {
	Endpoint EndpointID
	Cluster  ClusterID
	Command  CommandID
}

const (
	cmdPathTagEndpoint = 0
	cmdPathTagCluster  = 1
	cmdPathTagCommand  = 2
)

func (p CommandPathIB) encode(tag tlv.Tag) tlv.Value {
	return tlv.List(tag,
		tlv.Uint(tlv.ContextTag(cmdPathTagEndpoint), uint64(p.Endpoint)),
		tlv.Uint(tlv.ContextTag(cmdPathTagCluster), uint64(p.Cluster)),
		tlv.Uint(tlv.ContextTag(cmdPathTagCommand), uint64(p.Command)),
	)
}

func decodeCommandPath(v tlv.Value) CommandPathIB {
	var p CommandPathIB
	if f, ok := v.Field(cmdPathTagEndpoint); ok {
		u, _ := f.AsUint()
		p.Endpoint = EndpointID(u)
	}
	if f, ok := v.Field(cmdPathTagCluster); ok {
		u, _ := f.AsUint()
		p.Cluster = ClusterID(u)
	}
	if f, ok := v.Field(cmdPathTagCommand); ok {
		u, _ := f.AsUint()
		p.Command = CommandID(u)
	}
	return p
}

// EventPathIB identifies an event, or a wildcard set of them.
type EventPathIB struct {
	Node     *NodeID
	Endpoint *EndpointID
	Cluster  *ClusterID
	Event    *EventID
	IsUrgent bool
}

const (
	eventPathTagNode     = 0
	eventPathTagEndpoint = 1
	eventPathTagCluster  = 2
	eventPathTagEvent    = 3
	eventPathTagIsUrgent = 4
)

func (p EventPathIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if p.Node != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventPathTagNode), uint64(*p.Node)))
	}
	if p.Endpoint != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventPathTagEndpoint), uint64(*p.Endpoint)))
	}
	if p.Cluster != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventPathTagCluster), uint64(*p.Cluster)))
	}
	if p.Event != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventPathTagEvent), uint64(*p.Event)))
	}
	if p.IsUrgent {
		fields = append(fields, tlv.Bool(tlv.ContextTag(eventPathTagIsUrgent), true))
	}
	return tlv.List(tag, fields...)
}

func decodeEventPath(v tlv.Value) EventPathIB {
	var p EventPathIB
	if f, ok := v.Field(eventPathTagNode); ok {
		u, _ := f.AsUint()
		n := NodeID(u)
		p.Node = &n
	}
	if f, ok := v.Field(eventPathTagEndpoint); ok {
		u, _ := f.AsUint()
		e := EndpointID(u)
		p.Endpoint = &e
	}
	if f, ok := v.Field(eventPathTagCluster); ok {
		u, _ := f.AsUint()
		c := ClusterID(u)
		p.Cluster = &c
	}
	if f, ok := v.Field(eventPathTagEvent); ok {
		u, _ := f.AsUint()
		e := EventID(u)
		p.Event = &e
	}
	if f, ok := v.Field(eventPathTagIsUrgent); ok {
		p.IsUrgent, _ = f.AsBool()
	}
	return p
}

// DataVersionFilterIB lets a reader skip reports for clusters whose data
// version it already has cached.
type DataVersionFilterIB struct {
	Path        ClusterPathIB
	DataVersion DataVersion
}

const (
	dvFilterTagPath        = 0
	dvFilterTagDataVersion = 1
)

func (f DataVersionFilterIB) encode(tag tlv.Tag) tlv.Value {
	return tlv.Struct(tag,
		f.Path.encode(tlv.ContextTag(dvFilterTagPath)),
		tlv.Uint(tlv.ContextTag(dvFilterTagDataVersion), uint64(f.DataVersion)),
	)
}

func decodeDataVersionFilter(v tlv.Value) DataVersionFilterIB {
	var f DataVersionFilterIB
	if p, ok := v.Field(dvFilterTagPath); ok {
		f.Path = decodeClusterPath(p)
	}
	if d, ok := v.Field(dvFilterTagDataVersion); ok {
		u, _ := d.AsUint()
		f.DataVersion = DataVersion(u)
	}
	return f
}

// EventFilterIB bounds an event subscription to events numbered at or
// above EventMin for a given node, avoiding re-delivery on resubscribe.
type EventFilterIB struct {
	Node     *NodeID
	EventMin EventNumber
}

const (
	eventFilterTagNode     = 0
	eventFilterTagEventMin = 1
)

func (f EventFilterIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if f.Node != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventFilterTagNode), uint64(*f.Node)))
	}
	fields = append(fields, tlv.Uint(tlv.ContextTag(eventFilterTagEventMin), uint64(f.EventMin)))
	return tlv.Struct(tag, fields...)
}

func decodeEventFilter(v tlv.Value) EventFilterIB {
	var f EventFilterIB
	if n, ok := v.Field(eventFilterTagNode); ok {
		u, _ := n.AsUint()
		id := NodeID(u)
		f.Node = &id
	}
	if e, ok := v.Field(eventFilterTagEventMin); ok {
		u, _ := e.AsUint()
		f.EventMin = EventNumber(u)
	}
	return f
}
