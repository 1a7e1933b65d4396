package discovery

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// DefaultPort is the default Matter operational port (spec §4.12).
const DefaultPort = 5540

// MDNSServer is satisfied by *zeroconf.Server; narrowed to what this
// package needs so tests can substitute a fake registration.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory registers a new mDNS service advertisement.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

type activeService struct {
	server       MDNSServer
	instanceName string
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	Port          int
	Interfaces    []net.Interface
	ServerFactory MDNSServerFactory
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes the commissionable and operational DNS-SD
// services a Matter node exposes, by delegating record registration to
// zeroconf (spec §4.12).
type Advertiser struct {
	config   AdvertiserConfig
	factory  MDNSServerFactory
	log      logging.LeveledLogger
	mu       sync.RWMutex
	services map[ServiceType]*activeService
	closed   bool
}

func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	if config.Port <= 0 || config.Port > 65535 {
		config.Port = DefaultPort
	}
	factory := config.ServerFactory
	if factory == nil {
		factory = zeroconfServerFactory{}
	}
	a := &Advertiser{
		config:   config,
		factory:  factory,
		services: make(map[ServiceType]*activeService),
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a
}

// StartCommissionable begins advertising _matterc._udp with discovery
// subtypes for discriminator, commissioning mode, and vendor filtering.
func (a *Advertiser) StartCommissionable(txt CommissionableTXT) error {
	if err := txt.Validate(); err != nil {
		return fmt.Errorf("discovery: commissionable txt: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if _, exists := a.services[ServiceTypeCommissionable]; exists {
		return ErrAlreadyStarted
	}

	instanceName, err := randomInstanceName()
	if err != nil {
		return fmt.Errorf("discovery: instance name: %w", err)
	}

	subtypes := []string{
		fmt.Sprintf("_S%d", txt.ShortDiscriminator()),
		fmt.Sprintf("_L%d", txt.Discriminator),
	}
	if txt.CommissioningMode > CommissioningModeDisabled {
		subtypes = append(subtypes, "_CM")
	}
	if txt.VendorID != 0 {
		subtypes = append(subtypes, fmt.Sprintf("_V%d", txt.VendorID))
	}

	service := ServiceCommissionable
	for _, st := range subtypes {
		service += "," + st
	}

	txtRecords := txt.Encode()
	if a.log != nil {
		a.log.Debugf("registering mdns service instance=%s service=%s port=%d", instanceName, service, a.config.Port)
	}

	server, err := a.factory.Register(instanceName, service, DefaultDomain, a.config.Port, txtRecords, a.config.Interfaces)
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", service, err)
	}

	a.services[ServiceTypeCommissionable] = &activeService{server: server, instanceName: instanceName}
	return nil
}

// StartOperational begins advertising _matter._tcp under the instance
// name derived from the node's compressed fabric id and node id.
func (a *Advertiser) StartOperational(compressedFabricID [8]byte, nodeID fabric.NodeID, txt OperationalTXT) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if _, exists := a.services[ServiceTypeOperational]; exists {
		return ErrAlreadyStarted
	}

	instanceName := OperationalInstanceName(compressedFabricID, nodeID)
	server, err := a.factory.Register(instanceName, ServiceOperational, DefaultDomain, a.config.Port, txt.Encode(), a.config.Interfaces)
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", ServiceOperational, err)
	}

	a.services[ServiceTypeOperational] = &activeService{server: server, instanceName: instanceName}
	return nil
}

// Stop withdraws a single service advertisement.
func (a *Advertiser) Stop(serviceType ServiceType) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	svc, exists := a.services[serviceType]
	if !exists {
		return ErrNotStarted
	}
	svc.server.Shutdown()
	delete(a.services, serviceType)
	return nil
}

// Close withdraws every active advertisement and releases the Advertiser.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	for _, svc := range a.services {
		svc.server.Shutdown()
	}
	a.services = nil
	a.closed = true
	return nil
}

func (a *Advertiser) IsAdvertising(serviceType ServiceType) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, exists := a.services[serviceType]
	return exists
}

func (a *Advertiser) InstanceName(serviceType ServiceType) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if svc, exists := a.services[serviceType]; exists {
		return svc.instanceName
	}
	return ""
}

func randomInstanceName() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016X", binary.BigEndian.Uint64(buf[:])), nil
}
