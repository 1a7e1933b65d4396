package discovery

import (
	"errors"
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
)

func TestNewAdvertiserDefaults(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{})
	if adv.config.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", adv.config.Port, DefaultPort)
	}

	adv = NewAdvertiser(AdvertiserConfig{Port: -1})
	if adv.config.Port != DefaultPort {
		t.Errorf("invalid port did not fall back to default: got %d", adv.config.Port)
	}

	adv = NewAdvertiser(AdvertiserConfig{Port: 12345})
	if adv.config.Port != 12345 {
		t.Errorf("Port = %d, want 12345", adv.config.Port)
	}
}

func TestAdvertiserStartCommissionable(t *testing.T) {
	factory := &MockAdvertiserFactory{}
	adv := NewAdvertiser(AdvertiserConfig{Port: 5540, ServerFactory: factory})

	txt := CommissionableTXT{
		Discriminator:     840,
		CommissioningMode: CommissioningModeEnhanced,
		VendorID:          123,
		ProductID:         456,
	}

	if err := adv.StartCommissionable(txt); err != nil {
		t.Fatalf("StartCommissionable() error = %v", err)
	}
	if !adv.IsAdvertising(ServiceTypeCommissionable) {
		t.Error("IsAdvertising(Commissionable) = false, want true")
	}
	if len(factory.Registered) != 1 {
		t.Fatalf("got %d registrations, want 1", len(factory.Registered))
	}
	if factory.Registered[0].Port != 5540 {
		t.Errorf("port = %d, want 5540", factory.Registered[0].Port)
	}
	if factory.Registered[0].Domain != DefaultDomain {
		t.Errorf("domain = %q, want %q", factory.Registered[0].Domain, DefaultDomain)
	}

	if err := adv.StartCommissionable(txt); err != ErrAlreadyStarted {
		t.Errorf("second StartCommissionable() error = %v, want %v", err, ErrAlreadyStarted)
	}

	if err := adv.Stop(ServiceTypeCommissionable); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if adv.IsAdvertising(ServiceTypeCommissionable) {
		t.Error("IsAdvertising(Commissionable) = true after stop, want false")
	}
	if err := adv.StartCommissionable(txt); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestAdvertiserStartCommissionableRejectsBadDiscriminator(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: &MockAdvertiserFactory{}})
	err := adv.StartCommissionable(CommissionableTXT{Discriminator: 0x1000})
	if !errors.Is(err, ErrInvalidDiscriminator) {
		t.Errorf("error = %v, want %v", err, ErrInvalidDiscriminator)
	}
}

func TestAdvertiserStartOperational(t *testing.T) {
	factory := &MockAdvertiserFactory{}
	adv := NewAdvertiser(AdvertiserConfig{Port: 5540, ServerFactory: factory})

	compressedFabricID := [8]byte{0x87, 0xE1, 0xB0, 0x04, 0xE2, 0x35, 0xA1, 0x30}
	nodeID := fabric.NodeID(0x8FC7772401CD0696)

	if err := adv.StartOperational(compressedFabricID, nodeID, OperationalTXT{TCPSupported: true}); err != nil {
		t.Fatalf("StartOperational() error = %v", err)
	}
	if !adv.IsAdvertising(ServiceTypeOperational) {
		t.Error("IsAdvertising(Operational) = false, want true")
	}

	want := "87E1B004E235A130-8FC7772401CD0696"
	if got := adv.InstanceName(ServiceTypeOperational); got != want {
		t.Errorf("InstanceName() = %q, want %q", got, want)
	}
	if factory.Registered[0].Instance != want {
		t.Errorf("registered instance = %q, want %q", factory.Registered[0].Instance, want)
	}

	if err := adv.StartOperational(compressedFabricID, nodeID, OperationalTXT{}); err != ErrAlreadyStarted {
		t.Errorf("error = %v, want %v", err, ErrAlreadyStarted)
	}
}

func TestAdvertiserClose(t *testing.T) {
	factory := &MockAdvertiserFactory{}
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: factory})

	adv.StartCommissionable(CommissionableTXT{Discriminator: 840})

	if err := adv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if factory.ShutdownCall != 1 {
		t.Errorf("ShutdownCall = %d, want 1", factory.ShutdownCall)
	}
	if err := adv.Close(); err != ErrClosed {
		t.Errorf("second Close() error = %v, want %v", err, ErrClosed)
	}
	if err := adv.StartCommissionable(CommissionableTXT{}); err != ErrClosed {
		t.Errorf("StartCommissionable() after Close() error = %v, want %v", err, ErrClosed)
	}
}

func TestAdvertiserStopNotStarted(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: &MockAdvertiserFactory{}})
	if err := adv.Stop(ServiceTypeCommissionable); err != ErrNotStarted {
		t.Errorf("Stop() error = %v, want %v", err, ErrNotStarted)
	}
}

func TestAdvertiserInstanceNameEmptyWhenNotStarted(t *testing.T) {
	adv := NewAdvertiser(AdvertiserConfig{ServerFactory: &MockAdvertiserFactory{}})
	if name := adv.InstanceName(ServiceTypeCommissionable); name != "" {
		t.Errorf("InstanceName() = %q, want empty", name)
	}
}
