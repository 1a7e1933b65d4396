package session

import (
	"sync"
	"time"

	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/message"
)

// KeySize is the width of I2R/R2I/attestation-challenge keys (AES-128).
const KeySize = 16

// Context is one row of the session table (spec §3 "Session"): the
// symmetric keys, counters, and peer identity a PASE/CASE handshake
// produced. A Context is unusable until Commit has run; a provisional
// Context exists only so the handshake FSM has somewhere to stash partial
// state while it completes.
type Context struct {
	mu sync.RWMutex

	localID uint16
	peerID  uint16

	kind Kind
	role Role

	established bool
	createdAt   time.Time

	localNodeID fabric.NodeID
	peerNodeID  fabric.NodeID
	fabricIndex fabric.Index

	attestationChallenge []byte

	encrypt *message.Codec
	decrypt *message.Codec

	outbound *message.Counter
	replay   *message.ReplayWindow

	caseAuthTags []uint32
	resumptionID [16]byte

	params     Params
	lastActive time.Time

	// transport is an opaque descriptor (set by the transport layer) used
	// to find every session bound to a closing TCP/BLE link (spec §5).
	transport any
}

// LocalID returns the local (our-allocated) session id.
func (c *Context) LocalID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localID
}

// PeerID returns the session id the peer expects in outbound messages.
func (c *Context) PeerID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peerID
}

func (c *Context) Kind() Kind { return c.kind }
func (c *Context) Role() Role { return c.role }

// Established reports whether the handshake has completed successfully;
// an unestablished Context must never be used to encrypt/decrypt traffic.
func (c *Context) Established() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.established
}

func (c *Context) FabricIndex() fabric.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fabricIndex
}

func (c *Context) SetFabricIndex(idx fabric.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fabricIndex = idx
}

func (c *Context) PeerNodeID() fabric.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peerNodeID
}

func (c *Context) LocalNodeID() fabric.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localNodeID
}

func (c *Context) AttestationChallenge() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.attestationChallenge...)
}

func (c *Context) CaseAuthTags() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]uint32(nil), c.caseAuthTags...)
}

func (c *Context) Params() Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

func (c *Context) SetParams(p Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = p.WithDefaults()
}

func (c *Context) Transport() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

func (c *Context) BindTransport(t any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
}

func (c *Context) CreatedAt() time.Time { return c.createdAt }

// MarkActive records traffic on this session, extending the window
// during which the exchange layer uses ActiveInterval instead of
// IdleInterval for MRP backoff (spec §4.4.8 / §9).
func (c *Context) MarkActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
}

// IsPeerActive reports whether the peer was active within the session's
// ActiveThreshold, per the SESSION_ACTIVE_THRESHOLD timing rule.
func (c *Context) IsPeerActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastActive.IsZero() {
		return false
	}
	return time.Since(c.lastActive) < c.params.WithDefaults().ActiveThreshold
}

// BaseInterval returns IdleInterval or ActiveInterval depending on
// current peer activity, for the exchange layer's MRP backoff base.
func (c *Context) BaseInterval() time.Duration {
	if c.IsPeerActive() {
		return c.Params().WithDefaults().ActiveInterval
	}
	return c.Params().WithDefaults().IdleInterval
}

// CommitConfig carries everything a PASE/CASE success derives, handed to
// Context.Commit in one call so the Context is never observable half-set.
type CommitConfig struct {
	PeerSessionID        uint16
	EncryptKey           []byte // 16 bytes
	DecryptKey           []byte // 16 bytes
	AttestationChallenge []byte // 16 bytes
	LocalNodeID          fabric.NodeID
	PeerNodeID           fabric.NodeID
	FabricIndex          fabric.Index
	CaseAuthTags         []uint32
	Params               Params
}

// Commit promotes a provisional Context to usable, deriving the codecs
// that will encrypt/decrypt this session's traffic (spec §4.5/§4.6: "the
// device promotes the provisional session with symmetric keys").
func (c *Context) Commit(cfg CommitConfig) error {
	if len(cfg.EncryptKey) != KeySize || len(cfg.DecryptKey) != KeySize {
		return ErrInvalidKeySize
	}

	// PASE nonces always use node id 0 (spec §4.5); CASE nonces use the
	// real operational node ids (spec §4.6).
	localNonceID, peerNonceID := uint64(cfg.LocalNodeID), uint64(cfg.PeerNodeID)
	if c.kind == KindPASE {
		localNonceID, peerNonceID = 0, 0
	}

	encryptSourceID, decryptSourceID := localNonceID, peerNonceID

	encryptCodec, err := message.NewCodec(cfg.EncryptKey, encryptSourceID)
	if err != nil {
		return err
	}
	decryptCodec, err := message.NewCodec(cfg.DecryptKey, decryptSourceID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerID = cfg.PeerSessionID
	c.encrypt = encryptCodec
	c.decrypt = decryptCodec
	c.attestationChallenge = append([]byte(nil), cfg.AttestationChallenge...)
	c.localNodeID = cfg.LocalNodeID
	c.peerNodeID = cfg.PeerNodeID
	c.fabricIndex = cfg.FabricIndex
	c.caseAuthTags = append([]uint32(nil), cfg.CaseAuthTags...)
	c.params = cfg.Params.WithDefaults()
	c.outbound = message.NewCounter()
	c.replay = message.NewReplayWindow()
	c.established = true
	return nil
}

// Encrypt encrypts one outbound application payload under this session
// (spec §4.3), allocating the next outbound counter and setting the
// header's peer session id.
func (c *Context) Encrypt(header *message.Header, protocol *message.ProtocolHeader, payload []byte, privacy bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.established {
		return nil, ErrNotProvisional
	}
	counter, err := c.outbound.Next()
	if err != nil {
		return nil, err
	}
	header.SessionID = c.peerID
	header.MessageCounter = counter
	c.lastActive = time.Now()
	return c.encrypt.Encode(header, protocol, payload, privacy)
}

// Decrypt decrypts one inbound secure frame and checks it against this
// session's replay window (spec §4.3/§4.7).
func (c *Context) Decrypt(data []byte) (*message.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.established {
		return nil, ErrNotProvisional
	}
	peerNonceID := uint64(c.peerNodeID)
	if c.kind == KindPASE {
		peerNonceID = 0
	}
	frame, err := c.decrypt.Decode(data, peerNonceID)
	if err != nil {
		return nil, err
	}
	if err := c.replay.Accept(frame.Header.MessageCounter); err != nil {
		return nil, err
	}
	c.lastActive = time.Now()
	return frame, nil
}

// ZeroizeKeys wipes key material before the Context is discarded.
func (c *Context) ZeroizeKeys() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.attestationChallenge {
		c.attestationChallenge[i] = 0
	}
	c.encrypt = nil
	c.decrypt = nil
	c.established = false
}
