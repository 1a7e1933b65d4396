package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/mkniffen/matterd/pkg/fabric"
)

func TestNewManagerDefaults(t *testing.T) {
	mgr, err := NewManager(ManagerConfig{ServerFactory: &MockAdvertiserFactory{}, MDNSResolver: NewMockMDNSResolver()})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr.resolver.config.BrowseTimeout != DefaultBrowseTimeout {
		t.Errorf("BrowseTimeout = %v, want %v", mgr.resolver.config.BrowseTimeout, DefaultBrowseTimeout)
	}

	mgr2, err := NewManager(ManagerConfig{
		Port:          12345,
		BrowseTimeout: 5 * time.Second,
		ServerFactory: &MockAdvertiserFactory{},
		MDNSResolver:  NewMockMDNSResolver(),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr2.advertiser.config.Port != 12345 {
		t.Errorf("Port = %d, want 12345", mgr2.advertiser.config.Port)
	}
}

func TestManagerAdvertisingLifecycle(t *testing.T) {
	factory := &MockAdvertiserFactory{}
	mgr, err := NewManager(ManagerConfig{Port: 5540, ServerFactory: factory, MDNSResolver: NewMockMDNSResolver()})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if err := mgr.StartCommissionable(CommissionableTXT{Discriminator: 840, CommissioningMode: CommissioningModeBasic}); err != nil {
		t.Fatalf("StartCommissionable() error = %v", err)
	}
	if !mgr.IsAdvertising(ServiceTypeCommissionable) {
		t.Error("IsAdvertising(Commissionable) = false, want true")
	}

	compressedFabricID := [8]byte{0x87, 0xE1, 0xB0, 0x04, 0xE2, 0x35, 0xA1, 0x30}
	nodeID := fabric.NodeID(0x8FC7772401CD0696)
	if err := mgr.StartOperational(compressedFabricID, nodeID, OperationalTXT{}); err != nil {
		t.Fatalf("StartOperational() error = %v", err)
	}
	if !mgr.IsAdvertising(ServiceTypeOperational) {
		t.Error("IsAdvertising(Operational) = false, want true")
	}

	if err := mgr.StopAdvertising(ServiceTypeCommissionable); err != nil {
		t.Fatalf("StopAdvertising() error = %v", err)
	}
	if mgr.IsAdvertising(ServiceTypeCommissionable) {
		t.Error("IsAdvertising(Commissionable) = true after stop, want false")
	}
}

func TestManagerClose(t *testing.T) {
	mgr, err := NewManager(ManagerConfig{ServerFactory: &MockAdvertiserFactory{}, MDNSResolver: NewMockMDNSResolver()})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	mgr.StartCommissionable(CommissionableTXT{Discriminator: 840})

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := mgr.Close(); err != ErrClosed {
		t.Errorf("second Close() error = %v, want %v", err, ErrClosed)
	}
	if err := mgr.StartCommissionable(CommissionableTXT{}); err != ErrClosed {
		t.Errorf("StartCommissionable() after Close() error = %v, want %v", err, ErrClosed)
	}
	if _, err := mgr.BrowseCommissionable(context.Background()); err != ErrClosed {
		t.Errorf("BrowseCommissionable() after Close() error = %v, want %v", err, ErrClosed)
	}
}

func TestManagerAccessors(t *testing.T) {
	mgr, err := NewManager(ManagerConfig{ServerFactory: &MockAdvertiserFactory{}, MDNSResolver: NewMockMDNSResolver()})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr.Advertiser() == nil {
		t.Error("Advertiser() returned nil")
	}
	if mgr.Resolver() == nil {
		t.Error("Resolver() returned nil")
	}
}
