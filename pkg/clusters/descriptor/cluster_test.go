package descriptor

import (
	"context"
	"testing"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im"
	"github.com/mkniffen/matterd/pkg/tlv"
)

var testCtx = acl.Context{IsPASE: true}

func TestReadDeviceTypeList(t *testing.T) {
	c := New(Config{DeviceTypes: []DeviceType{{Type: 0x0100, Revision: 2}}})

	v, err := c.ReadAttribute(context.Background(), testCtx, AttrDeviceTypeList)
	if err != nil {
		t.Fatalf("ReadAttribute: %v", err)
	}
	elems := v.Elems()
	if len(elems) != 1 {
		t.Fatalf("got %d device types, want 1", len(elems))
	}
	typeField, _ := elems[0].Field(0)
	got, _ := typeField.AsUint()
	if got != 0x0100 {
		t.Fatalf("got device type %#x, want 0x0100", got)
	}
}

func TestReadServerList(t *testing.T) {
	c := New(Config{ServerClusters: []im.ClusterID{0x001D, 0x0006}})

	v, err := c.ReadAttribute(context.Background(), testCtx, AttrServerList)
	if err != nil {
		t.Fatalf("ReadAttribute: %v", err)
	}
	if len(v.Elems()) != 2 {
		t.Fatalf("got %d servers, want 2", len(v.Elems()))
	}
}

func TestWriteIsUnsupported(t *testing.T) {
	c := New(Config{})
	if err := c.WriteAttribute(context.Background(), testCtx, AttrDeviceTypeList, tlv.Value{}); err == nil {
		t.Fatal("expected the descriptor cluster to reject every write")
	}
}
