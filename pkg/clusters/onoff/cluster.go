// Package onoff implements the On/Off cluster (0x0006): a single boolean
// state with On/Off/Toggle commands, plus the optional Lighting feature's
// OnTime/OffWaitTime/StartUpOnOff attributes.
package onoff

import (
	"context"
	"sync"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

const (
	ClusterID       im.ClusterID = 0x0006
	ClusterRevision uint16       = 6
)

// Attribute IDs.
const (
	AttrOnOff        im.AttributeID = 0x0000
	AttrOnTime       im.AttributeID = 0x4001
	AttrOffWaitTime  im.AttributeID = 0x4002
	AttrStartUpOnOff im.AttributeID = 0x4003
)

// Command IDs.
const (
	CmdOff    im.CommandID = 0x00
	CmdOn     im.CommandID = 0x01
	CmdToggle im.CommandID = 0x02
)

// StartUpOnOff indicates the startup behavior (nullable, 0/1/2/0xFF).
type StartUpOnOff uint8

const (
	StartUpOnOffOff      StartUpOnOff = 0
	StartUpOnOffOn       StartUpOnOff = 1
	StartUpOnOffToggle   StartUpOnOff = 2
	StartUpOnOffPrevious StartUpOnOff = 0xFF
)

// Feature bits (spec cluster definition 1.5.4).
type Feature uint32

const (
	FeatureLighting Feature = 1 << 0
)

// StateChangeFunc is called after the on/off state changes, e.g. to drive
// a physical relay.
type StateChangeFunc func(on bool)

// Config provides the fixed configuration of one On/Off cluster instance.
type Config struct {
	FeatureMap    Feature
	InitialOnOff  bool
	OnStateChange StateChangeFunc
}

// Cluster implements im.Cluster for the On/Off cluster.
type Cluster struct {
	cfg Config

	mu           sync.RWMutex
	onOff        bool
	onTime       uint16
	offWaitTime  uint16
	startUpOnOff *StartUpOnOff
	version      message.DataVersion
}

func New(cfg Config) *Cluster {
	return &Cluster{cfg: cfg, onOff: cfg.InitialOnOff}
}

func (c *Cluster) ID() im.ClusterID                 { return ClusterID }
func (c *Cluster) DataVersion() message.DataVersion { return c.version }

func (c *Cluster) lighting() bool { return c.cfg.FeatureMap&FeatureLighting != 0 }

func (c *Cluster) Attributes() []im.AttributeMetadata {
	attrs := []im.AttributeMetadata{{ID: AttrOnOff}}
	if c.lighting() {
		attrs = append(attrs,
			im.AttributeMetadata{ID: AttrOnTime, Writable: true},
			im.AttributeMetadata{ID: AttrOffWaitTime, Writable: true},
			im.AttributeMetadata{ID: AttrStartUpOnOff, Writable: true},
		)
	}
	for _, id := range im.GlobalAttributeIDs() {
		attrs = append(attrs, im.AttributeMetadata{ID: id})
	}
	return attrs
}

func (c *Cluster) Commands() []im.CommandID {
	return []im.CommandID{CmdOff, CmdOn, CmdToggle}
}

func (c *Cluster) ReadAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID) (tlv.Value, error) {
	if v, ok := im.ReadGlobalAttribute(attr, ClusterRevision, uint32(c.cfg.FeatureMap), c.Attributes(), c.Commands(), nil); ok {
		return v, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch attr {
	case AttrOnOff:
		return tlv.Bool(tlv.AnonymousTag(), c.onOff), nil
	case AttrOnTime:
		if !c.lighting() {
			return tlv.Value{}, im.ErrAttributeNotFound
		}
		return tlv.Uint(tlv.AnonymousTag(), uint64(c.onTime)), nil
	case AttrOffWaitTime:
		if !c.lighting() {
			return tlv.Value{}, im.ErrAttributeNotFound
		}
		return tlv.Uint(tlv.AnonymousTag(), uint64(c.offWaitTime)), nil
	case AttrStartUpOnOff:
		if !c.lighting() {
			return tlv.Value{}, im.ErrAttributeNotFound
		}
		if c.startUpOnOff == nil {
			return tlv.Null(tlv.AnonymousTag()), nil
		}
		return tlv.Uint(tlv.AnonymousTag(), uint64(*c.startUpOnOff)), nil
	default:
		return tlv.Value{}, im.ErrAttributeNotFound
	}
}

func (c *Cluster) WriteAttribute(ctx context.Context, reqCtx acl.Context, attr im.AttributeID, data tlv.Value) error {
	if !c.lighting() {
		return im.ErrNotWritable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch attr {
	case AttrOnTime:
		v, ok := data.AsUint()
		if !ok {
			return im.ErrNotWritable
		}
		c.onTime = uint16(v)
	case AttrOffWaitTime:
		v, ok := data.AsUint()
		if !ok {
			return im.ErrNotWritable
		}
		c.offWaitTime = uint16(v)
	case AttrStartUpOnOff:
		if data.Kind == tlv.KindNull {
			c.startUpOnOff = nil
		} else {
			v, ok := data.AsUint()
			if !ok {
				return im.ErrNotWritable
			}
			s := StartUpOnOff(v)
			c.startUpOnOff = &s
		}
	default:
		return im.ErrNotWritable
	}
	c.version++
	return nil
}

func (c *Cluster) InvokeCommand(ctx context.Context, reqCtx acl.Context, cmd im.CommandID, fields tlv.Value) (*tlv.Value, error) {
	switch cmd {
	case CmdOff:
		c.setOnOff(false)
	case CmdOn:
		c.setOnOff(true)
	case CmdToggle:
		c.mu.RLock()
		on := c.onOff
		c.mu.RUnlock()
		c.setOnOff(!on)
	default:
		return nil, im.ErrCommandNotFound
	}
	return nil, nil
}

func (c *Cluster) setOnOff(v bool) {
	c.mu.Lock()
	changed := c.onOff != v
	c.onOff = v
	if changed {
		c.version++
	}
	c.mu.Unlock()

	if changed && c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(v)
	}
}

// On reports the current on/off state, for callers outside the IM path
// (e.g. a CLI status command).
func (c *Cluster) On() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onOff
}
