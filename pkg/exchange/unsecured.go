package exchange

import (
	"time"

	"github.com/mkniffen/matterd/pkg/message"
	"github.com/mkniffen/matterd/pkg/session"
	"github.com/mkniffen/matterd/pkg/transport"
)

// unsecuredSession implements sessionLike for handshake-time traffic
// (PASE/CASE Sigma1, PBKDFParamRequest, ...) that precedes any
// established session and so always carries session id 0 (spec
// §4.5/§4.6). It shares the node's single global unsecured counter
// (session.Table.GlobalCounter) rather than owning one per exchange.
type unsecuredSession struct {
	counter *message.GlobalCounter
	codec   *message.UnsecuredCodec
	params  session.Params
}

func newUnsecuredSession(counter *message.GlobalCounter, params session.Params) *unsecuredSession {
	return &unsecuredSession{counter: counter, codec: message.NewUnsecuredCodec(), params: params.WithDefaults()}
}

// NewUnsecuredExchange opens an initiator-side exchange for handshake
// traffic that precedes any established session (a locally-started PASE
// PBKDFParamRequest or CASE Sigma1): it builds the session-id-0 sessionLike
// itself and calls NewExchange, so SecureChannel never needs a concrete
// type this package keeps private.
func (m *Manager) NewUnsecuredExchange(counter *message.GlobalCounter, peerAddress transport.PeerAddress, protocolID message.ProtocolID, delegate Delegate) (*Context, error) {
	sess := newUnsecuredSession(counter, session.DefaultParams())
	return m.NewExchange(sess, 0, peerAddress, protocolID, delegate)
}

func (u *unsecuredSession) Params() session.Params   { return u.params }
func (u *unsecuredSession) LocalID() uint16          { return 0 }
func (u *unsecuredSession) PeerID() uint16           { return 0 }
func (u *unsecuredSession) IsPeerActive() bool       { return false }
func (u *unsecuredSession) BaseInterval() time.Duration {
	return u.params.IdleInterval
}

func (u *unsecuredSession) Encrypt(header *message.Header, protocol *message.ProtocolHeader, payload []byte, _ bool) ([]byte, error) {
	counter, err := u.counter.Next()
	if err != nil {
		return nil, err
	}
	header.SessionID = 0
	header.MessageCounter = counter
	return u.codec.Encode(header, protocol, payload), nil
}
