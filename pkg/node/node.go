// Package node assembles the independent protocol-layer packages
// (transport, exchange, session, fabric, securechannel, im, discovery)
// into a single running device: one bootstrap surface with Start/Stop
// and a setup payload.
package node

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/mkniffen/matterd/pkg/clusters/accesscontrol"
	"github.com/mkniffen/matterd/pkg/clusters/descriptor"
	"github.com/mkniffen/matterd/pkg/clusters/onoff"
	"github.com/mkniffen/matterd/pkg/commissioning/payload"
	"github.com/mkniffen/matterd/pkg/credentials"
	"github.com/mkniffen/matterd/pkg/discovery"
	"github.com/mkniffen/matterd/pkg/exchange"
	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/im"
	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/metrics"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/securechannel"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/storage"
	"github.com/mkniffen/matterd/pkg/transport"
)

// State is a small lifecycle label for logging and the onboarding
// printout, not anything the protocol cares about.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Config configures a Node: commissioning parameters (Port/Discriminator/
// Passcode/DeviceName/VendorID/ProductID), plus persistence and
// observability hooks (Store, Sink).
type Config struct {
	Port          int
	Discriminator uint16
	Passcode      uint32
	DeviceName    string
	VendorID      fabric.VendorID
	ProductID     uint16

	// Store persists the fabric table across restarts. Defaults to an
	// in-memory store when nil.
	Store storage.Store

	// Sink receives session/exchange/subscription/IM-error metrics.
	// Defaults to metrics.NopSink{} when nil.
	Sink metrics.Sink

	// OnStateChanged reports lifecycle transitions.
	OnStateChanged func(State)
}

// Node is one running Matter device: every protocol layer wired together
// behind Start/Stop.
type Node struct {
	cfg   Config
	state State

	transport     *transport.Manager
	sessions      *session.Table
	fabrics       *fabric.Table
	exchangeMgr   *exchange.Manager
	secureChannel *securechannel.Manager
	imServer      *im.Server
	imDispatch    *imDispatcher
	aclCluster    *accesscontrol.Cluster
	discoveryMgr  *discovery.Manager
	store         storage.Store

	stopTick chan struct{}
}

// New builds every layer of the stack but does not start listening; call
// Start for that.
func New(cfg Config) (*Node, error) {
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	if cfg.Sink == nil {
		cfg.Sink = metrics.NopSink{}
	}

	n := &Node{cfg: cfg, store: cfg.Store}

	n.sessions = session.NewTable(0)
	n.sessions.SetSink(cfg.Sink)

	n.fabrics = fabric.NewTable(fabric.DefaultMaxFabrics)
	if err := n.loadFabrics(); err != nil {
		return nil, fmt.Errorf("node: loading fabrics: %w", err)
	}

	n.exchangeMgr = exchange.NewManager(exchange.ManagerConfig{
		Sessions:  n.sessions,
		Transport: n,
		Sink:      cfg.Sink,
	})

	n.aclCluster = accesscontrol.New()
	n.imServer = im.NewServer(n.buildRouter(), n.aclCluster.EntriesForFabric)
	n.imServer.SetSink(cfg.Sink)
	n.imDispatch = newIMDispatcher(n.imServer)
	n.imDispatch.subs.SetSink(cfg.Sink)
	n.exchangeMgr.RegisterProtocol(message.ProtocolInteractionModel, n.imDispatch)

	resumption, err := securechannel.NewPersistentResumptionStore(cfg.Store, n.fabrics)
	if err != nil {
		return nil, fmt.Errorf("node: loading resumption records: %w", err)
	}

	n.secureChannel = securechannel.NewManager(securechannel.ManagerConfig{
		Exchange:      n.exchangeMgr,
		Sessions:      n.sessions,
		Fabrics:       n.fabrics,
		Resumption:    resumption,
		CertValidator: validatePeerCertChain,
		Callbacks: securechannel.Callbacks{
			OnSessionEstablished: n.onSessionEstablished,
			OnSessionError:       n.onSessionError,
		},
	})

	return n, nil
}

func (n *Node) buildRouter() *im.Router {
	router := im.NewRouter()
	router.RegisterCluster(0, descriptor.New(descriptor.Config{
		DeviceTypes:    []descriptor.DeviceType{{Type: 0x0016, Revision: 1}}, // root node
		ServerClusters: []im.ClusterID{descriptor.ClusterID, accesscontrol.ClusterID},
	}))
	router.RegisterCluster(0, n.aclCluster)
	router.RegisterCluster(1, descriptor.New(descriptor.Config{
		DeviceTypes:    []descriptor.DeviceType{{Type: 0x0100, Revision: 1}}, // on/off light
		ServerClusters: []im.ClusterID{descriptor.ClusterID, onoff.ClusterID},
	}))
	router.RegisterCluster(1, onoff.New(onoff.Config{}))
	return router
}

// validatePeerCertChain adapts credentials.ValidateChain's *ChainInfo
// onto casesession.ValidatePeerCertChainFunc's *PeerCertInfo: the two
// types are field-for-field identical but distinct named structs, so the
// conversion can't be a direct assignment.
func validatePeerCertChain(noc, icac []byte, trustedRootPubKey [casesession.EphPubKeySize]byte) (*casesession.PeerCertInfo, error) {
	info, err := credentials.ValidateChain(noc, icac, trustedRootPubKey)
	if err != nil {
		return nil, err
	}
	return &casesession.PeerCertInfo{
		NodeID:    info.NodeID,
		FabricID:  info.FabricID,
		PublicKey: info.PublicKey,
	}, nil
}

func (n *Node) onSessionEstablished(localSessionID uint16, kind session.Kind) {
	log.Printf("node: session established (local id %d, kind %s)", localSessionID, kindString(kind))
	n.cfg.Sink.SetActiveSessions(n.sessions.Count())
}

func (n *Node) onSessionError(err error, stage string) {
	log.Printf("node: %s handshake failed: %v", stage, err)
}

func kindString(k session.Kind) string {
	if k == session.KindCASE {
		return "CASE"
	}
	return "PASE"
}

func (n *Node) loadFabrics() error {
	fabrics, err := n.store.LoadFabrics()
	if err != nil {
		return err
	}
	for _, info := range fabrics {
		if err := n.fabrics.Add(info); err != nil {
			return err
		}
	}
	return nil
}

// Start opens the transport, arms the PASE commissioning window, and
// begins advertising over mDNS.
func (n *Node) Start(ctx context.Context) error {
	n.setState(StateStarting)

	transportMgr, err := transport.NewManager(transport.ManagerConfig{
		Port:           n.cfg.Port,
		MessageHandler: n.onTransportMessage,
		Sink:           n.cfg.Sink,
	})
	if err != nil {
		return fmt.Errorf("node: creating transport: %w", err)
	}
	n.transport = transportMgr

	if err := n.transport.Start(); err != nil {
		return fmt.Errorf("node: starting transport: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("node: generating PASE salt: %w", err)
	}
	if err := n.secureChannel.OpenCommissioningWindow(n.cfg.Passcode, salt, 1000); err != nil {
		return fmt.Errorf("node: opening commissioning window: %w", err)
	}

	discoveryMgr, err := discovery.NewManager(discovery.ManagerConfig{Port: n.cfg.Port})
	if err != nil {
		return fmt.Errorf("node: creating discovery manager: %w", err)
	}
	n.discoveryMgr = discoveryMgr
	if err := n.discoveryMgr.StartCommissionable(discovery.CommissionableTXT{
		Discriminator:     n.cfg.Discriminator,
		CommissioningMode: discovery.CommissioningModeBasic,
		VendorID:          n.cfg.VendorID,
		ProductID:         n.cfg.ProductID,
		DeviceName:        n.cfg.DeviceName,
	}); err != nil {
		return fmt.Errorf("node: advertising commissionable: %w", err)
	}

	n.stopTick = make(chan struct{})
	go n.tickLoop(ctx)

	n.setState(StateRunning)
	return nil
}

func (n *Node) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.imDispatch.Tick(ctx, time.Now())
		case <-n.stopTick:
			return
		}
	}
}

func (n *Node) onTransportMessage(msg *transport.ReceivedMessage) {
	if err := n.exchangeMgr.OnMessageReceived(&exchange.ReceivedMessage{Data: msg.Data, Peer: msg.PeerAddr}); err != nil {
		log.Printf("node: dropping inbound message: %v", err)
	}
}

// Stop tears down advertising and the transport layer.
func (n *Node) Stop() error {
	if n.stopTick != nil {
		close(n.stopTick)
	}
	if n.discoveryMgr != nil {
		n.discoveryMgr.Close()
	}
	var err error
	if n.transport != nil {
		err = n.transport.Stop()
	}
	n.setState(StateStopped)
	return err
}

func (n *Node) setState(s State) {
	n.state = s
	if n.cfg.OnStateChanged != nil {
		n.cfg.OnStateChanged(s)
	}
}

// State reports the node's current lifecycle state.
func (n *Node) State() State { return n.state }

// SetupPayload builds the QR code and manual pairing code strings for
// this node's current commissioning parameters (spec §5).
func (n *Node) SetupPayload() (qrCode, manualCode string, err error) {
	p := &payload.SetupPayload{
		VendorID:                 uint16(n.cfg.VendorID),
		ProductID:                n.cfg.ProductID,
		Discriminator:            payload.NewLongDiscriminator(n.cfg.Discriminator),
		Passcode:                 n.cfg.Passcode,
		HasDiscoveryCapabilities: true,
		DiscoveryCapabilities:    payload.DiscoveryCapabilityOnNetwork,
	}
	qrCode, err = payload.EncodeQRCode(p)
	if err != nil {
		return "", "", fmt.Errorf("node: encoding QR code: %w", err)
	}
	manualCode, err = payload.EncodeManualCode(p)
	if err != nil {
		return "", "", fmt.Errorf("node: encoding manual code: %w", err)
	}
	return qrCode, manualCode, nil
}

// ACL exposes the node's access control entries store, so a setup tool
// can grant the commissioner administer privileges once CASE completes.
func (n *Node) ACL() *accesscontrol.Cluster { return n.aclCluster }

// Send implements exchange.Sender by forwarding to the transport layer,
// letting the exchange manager be constructed before Start brings the
// transport up.
func (n *Node) Send(data []byte, peer transport.PeerAddress) error {
	if n.transport == nil {
		return fmt.Errorf("node: transport not started")
	}
	return n.transport.Send(data, peer)
}
