package onoff

import (
	"context"
	"testing"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/tlv"
)

var testCtx = acl.Context{IsPASE: true}

func TestReadOnOffDefault(t *testing.T) {
	c := New(Config{})
	v, err := c.ReadAttribute(context.Background(), testCtx, AttrOnOff)
	if err != nil {
		t.Fatalf("ReadAttribute: %v", err)
	}
	on, ok := v.AsBool()
	if !ok || on {
		t.Fatalf("got %v, want false", v)
	}
}

func TestInvokeOnOffToggle(t *testing.T) {
	c := New(Config{})

	if _, err := c.InvokeCommand(context.Background(), testCtx, CmdOn, tlv.Value{}); err != nil {
		t.Fatalf("On: %v", err)
	}
	if !c.On() {
		t.Fatal("expected on after CmdOn")
	}

	if _, err := c.InvokeCommand(context.Background(), testCtx, CmdToggle, tlv.Value{}); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if c.On() {
		t.Fatal("expected off after Toggle")
	}
}

func TestOnWithOffOnlyCommandUnsupported(t *testing.T) {
	c := New(Config{})
	if _, err := c.InvokeCommand(context.Background(), testCtx, 0x99, tlv.Value{}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestLightingAttributesHiddenWithoutFeature(t *testing.T) {
	c := New(Config{})
	if _, err := c.ReadAttribute(context.Background(), testCtx, AttrOnTime); err == nil {
		t.Fatal("expected AttrOnTime to be unsupported without FeatureLighting")
	}
}

func TestWriteStartUpOnOffWithLighting(t *testing.T) {
	c := New(Config{FeatureMap: FeatureLighting})
	if err := c.WriteAttribute(context.Background(), testCtx, AttrStartUpOnOff, tlv.Uint(tlv.AnonymousTag(), uint64(StartUpOnOffOn))); err != nil {
		t.Fatalf("WriteAttribute: %v", err)
	}
	v, err := c.ReadAttribute(context.Background(), testCtx, AttrStartUpOnOff)
	if err != nil {
		t.Fatalf("ReadAttribute: %v", err)
	}
	got, _ := v.AsUint()
	if got != uint64(StartUpOnOffOn) {
		t.Fatalf("got %d, want %d", got, StartUpOnOffOn)
	}
}

func TestStateChangeCallback(t *testing.T) {
	var got *bool
	c := New(Config{OnStateChange: func(on bool) { got = &on }})

	if _, err := c.InvokeCommand(context.Background(), testCtx, CmdOn, tlv.Value{}); err != nil {
		t.Fatalf("On: %v", err)
	}
	if got == nil || !*got {
		t.Fatal("expected the callback to fire with on=true")
	}
}
