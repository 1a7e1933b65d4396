package discovery

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// MockMDNSResolver is an in-memory MDNSResolver for tests, avoiding real
// network I/O.
type MockMDNSResolver struct {
	mu       sync.RWMutex
	services map[string][]*zeroconf.ServiceEntry
}

func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{services: make(map[string][]*zeroconf.ServiceEntry)}
}

// RegisterService makes entry visible to a Browse/Lookup against service.
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service] = append(m.services[service], entry)
}

func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = make(map[string][]*zeroconf.ServiceEntry)
}

func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := append([]*zeroconf.ServiceEntry(nil), m.services[service]...)
	m.mu.RUnlock()

	for _, entry := range svcEntries {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := append([]*zeroconf.ServiceEntry(nil), m.services[service]...)
	m.mu.RUnlock()

	for _, entry := range svcEntries {
		if entry.Instance != instance {
			continue
		}
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
	return nil
}

// MockAdvertiserFactory is an in-memory MDNSServerFactory for tests.
type MockAdvertiserFactory struct {
	mu           sync.Mutex
	Registered   []MockRegistration
	ShutdownCall int
}

type MockRegistration struct {
	Instance string
	Service  string
	Domain   string
	Port     int
	TXT      []string
}

type mockServer struct{ factory *MockAdvertiserFactory }

func (s *mockServer) Shutdown() {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	s.factory.ShutdownCall++
}

func (f *MockAdvertiserFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Registered = append(f.Registered, MockRegistration{instance, service, domain, port, txt})
	return &mockServer{factory: f}, nil
}

// MockCommissionableService builds a commissionable service entry for
// tests, e.g. to feed into MockMDNSResolver.RegisterService.
func MockCommissionableService(instanceName string, port int, ip net.IP, discriminator uint16) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceCommissionable,
			Domain:   DefaultDomain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text: []string{
			"D=" + itoa(int(discriminator)),
			"CM=1",
			"VP=65521+32769",
		},
	}
}

// MockOperationalService builds an operational service entry for tests.
func MockOperationalService(compressedFabricID [8]byte, nodeID fabric.NodeID, port int, ip net.IP) *zeroconf.ServiceEntry {
	instanceName := OperationalInstanceName(compressedFabricID, nodeID)
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceOperational,
			Domain:   DefaultDomain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
