package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Port          int
	Interfaces    []net.Interface
	BrowseTimeout time.Duration
	LookupTimeout time.Duration
	ServerFactory MDNSServerFactory
	MDNSResolver  MDNSResolver
	LoggerFactory logging.LoggerFactory
}

// Manager combines an Advertiser and a Resolver behind a single façade,
// the shape a node's bootstrap code actually wires up (spec §4.12).
type Manager struct {
	advertiser *Advertiser
	resolver   *Resolver

	mu     sync.RWMutex
	closed bool
}

func NewManager(config ManagerConfig) (*Manager, error) {
	advertiser := NewAdvertiser(AdvertiserConfig{
		Port:          config.Port,
		Interfaces:    config.Interfaces,
		ServerFactory: config.ServerFactory,
		LoggerFactory: config.LoggerFactory,
	})

	resolver, err := NewResolver(ResolverConfig{
		MDNSResolver:  config.MDNSResolver,
		BrowseTimeout: config.BrowseTimeout,
		LookupTimeout: config.LookupTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Manager{advertiser: advertiser, resolver: resolver}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return m.advertiser.Close()
}

// StartCommissionable begins advertising as a commissionable node; call
// when the device opens its commissioning window.
func (m *Manager) StartCommissionable(txt CommissionableTXT) error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.advertiser.StartCommissionable(txt)
}

// StartOperational begins advertising as a commissioned fabric member.
func (m *Manager) StartOperational(compressedFabricID [8]byte, nodeID fabric.NodeID, txt OperationalTXT) error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.advertiser.StartOperational(compressedFabricID, nodeID, txt)
}

// StopAdvertising withdraws a single service advertisement.
func (m *Manager) StopAdvertising(serviceType ServiceType) error {
	if m.isClosed() {
		return ErrClosed
	}
	return m.advertiser.Stop(serviceType)
}

func (m *Manager) IsAdvertising(serviceType ServiceType) bool {
	if m.isClosed() {
		return false
	}
	return m.advertiser.IsAdvertising(serviceType)
}

// BrowseCommissionable discovers commissionable nodes on the network.
func (m *Manager) BrowseCommissionable(ctx context.Context) (<-chan ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.BrowseCommissionable(ctx)
}

// BrowseCommissionableByDiscriminator discovers commissionable nodes
// advertising the given long discriminator.
func (m *Manager) BrowseCommissionableByDiscriminator(ctx context.Context, discriminator uint16) (<-chan ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.BrowseCommissionableWithFilter(ctx, "_L"+itoa(int(discriminator)))
}

// BrowseCommissionableByVendor discovers commissionable nodes from a
// specific vendor.
func (m *Manager) BrowseCommissionableByVendor(ctx context.Context, vendorID fabric.VendorID) (<-chan ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.BrowseCommissionableWithFilter(ctx, "_V"+itoa(int(vendorID)))
}

// BrowseOperational discovers operational nodes on the network.
func (m *Manager) BrowseOperational(ctx context.Context) (<-chan ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.BrowseOperational(ctx)
}

// LookupOperational resolves a known fabric member before opening a CASE
// session with it.
func (m *Manager) LookupOperational(ctx context.Context, compressedFabricID [8]byte, nodeID fabric.NodeID) (*ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.LookupOperational(ctx, compressedFabricID, nodeID)
}

// DiscoverCommissionableNode browses and returns the first commissionable
// node advertising discriminator.
func (m *Manager) DiscoverCommissionableNode(ctx context.Context, discriminator uint16) (*ResolvedService, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.resolver.DiscoverCommissionableNode(ctx, discriminator)
}

func (m *Manager) Advertiser() *Advertiser {
	return m.advertiser
}

func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
