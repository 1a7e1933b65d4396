// Package descriptor implements the Descriptor cluster (0x001D): the
// mandatory-on-every-endpoint cluster that reports an endpoint's device
// type(s) and which server clusters it hosts.
package descriptor

import (
	"context"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

const (
	ClusterID       im.ClusterID = 0x001D
	ClusterRevision uint16       = 3
)

// Attribute IDs (spec cluster definition 9.5.6).
const (
	AttrDeviceTypeList im.AttributeID = 0x0000
	AttrServerList     im.AttributeID = 0x0001
	AttrClientList     im.AttributeID = 0x0002
	AttrPartsList      im.AttributeID = 0x0003
)

// DeviceType names one entry of DeviceTypeList.
type DeviceType struct {
	Type     uint32
	Revision uint16
}

// Config provides the fixed configuration of one Descriptor cluster
// instance.
type Config struct {
	DeviceTypes []DeviceType
	// ServerClusters lists the cluster IDs hosted on this endpoint,
	// including the Descriptor cluster's own ID.
	ServerClusters []im.ClusterID
	// PartsList names child endpoints, for an endpoint composed of
	// sub-endpoints. Left empty for a flat (non-composed) device.
	PartsList []im.EndpointID
}

// Cluster implements im.Cluster for the Descriptor cluster. It has no
// mutable state: everything it reports is fixed at construction.
type Cluster struct {
	cfg Config
}

func New(cfg Config) *Cluster {
	return &Cluster{cfg: cfg}
}

func (c *Cluster) ID() im.ClusterID                 { return ClusterID }
func (c *Cluster) DataVersion() message.DataVersion { return 0 }

func (c *Cluster) Attributes() []im.AttributeMetadata {
	attrs := []im.AttributeMetadata{
		{ID: AttrDeviceTypeList},
		{ID: AttrServerList},
		{ID: AttrClientList},
		{ID: AttrPartsList},
	}
	for _, id := range im.GlobalAttributeIDs() {
		attrs = append(attrs, im.AttributeMetadata{ID: id})
	}
	return attrs
}

func (c *Cluster) Commands() []im.CommandID { return nil }

func (c *Cluster) ReadAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID) (tlv.Value, error) {
	if v, ok := im.ReadGlobalAttribute(attr, ClusterRevision, 0, c.Attributes(), nil, nil); ok {
		return v, nil
	}

	switch attr {
	case AttrDeviceTypeList:
		elems := make([]tlv.Value, len(c.cfg.DeviceTypes))
		for i, dt := range c.cfg.DeviceTypes {
			elems[i] = tlv.Struct(tlv.AnonymousTag(),
				tlv.Uint(tlv.ContextTag(0), uint64(dt.Type)),
				tlv.Uint(tlv.ContextTag(1), uint64(dt.Revision)),
			)
		}
		return tlv.Array(tlv.AnonymousTag(), elems...), nil
	case AttrServerList:
		elems := make([]tlv.Value, len(c.cfg.ServerClusters))
		for i, id := range c.cfg.ServerClusters {
			elems[i] = tlv.Uint(tlv.AnonymousTag(), uint64(id))
		}
		return tlv.Array(tlv.AnonymousTag(), elems...), nil
	case AttrClientList:
		return tlv.Array(tlv.AnonymousTag()), nil
	case AttrPartsList:
		elems := make([]tlv.Value, len(c.cfg.PartsList))
		for i, id := range c.cfg.PartsList {
			elems[i] = tlv.Uint(tlv.AnonymousTag(), uint64(id))
		}
		return tlv.Array(tlv.AnonymousTag(), elems...), nil
	default:
		return tlv.Value{}, im.ErrAttributeNotFound
	}
}

func (c *Cluster) WriteAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID, data tlv.Value) error {
	return im.ErrNotWritable
}

func (c *Cluster) InvokeCommand(ctx context.Context, reqCtx acl.Context, cmd im.CommandID, fields tlv.Value) (*tlv.Value, error) {
	return nil, im.ErrCommandNotFound
}
