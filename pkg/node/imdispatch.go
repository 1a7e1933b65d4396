package node

import (
	"context"
	"fmt"
	"time"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/exchange"
	"github.com/mkniffen/matterd/pkg/im"
	imessage "github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/session"
)

// imDispatcher adapts pkg/im's request/response calls onto the
// exchange manager's Handler interface (exchange.Handler), decoding each
// opcode's TLV payload and re-encoding the reply (spec §4.9's transport
// binding: the Interaction Model itself never touches a wire format).
type imDispatcher struct {
	server *im.Server
	subs   *im.SubscriptionManager
}

func newIMDispatcher(server *im.Server) *imDispatcher {
	d := &imDispatcher{server: server}
	d.subs = im.NewSubscriptionManager(server)
	return d
}

var _ exchange.Handler = (*imDispatcher)(nil)

// OnUnsolicited handles the first message of a new exchange: every IM
// exchange a peer opens starts with exactly one of these request opcodes.
func (d *imDispatcher) OnUnsolicited(ctx *exchange.Context, opcode uint8, payload []byte) ([]byte, error) {
	return d.OnMessage(ctx, opcode, payload)
}

// OnMessage handles both the unsolicited opener and any follow-up chunk
// on an already-open IM exchange (e.g. a later WriteRequest chunk).
func (d *imDispatcher) OnMessage(exCtx *exchange.Context, opcode uint8, payload []byte) ([]byte, error) {
	reqCtx, err := d.requestContext(exCtx)
	if err != nil {
		return nil, err
	}

	switch imessage.Opcode(opcode) {
	case imessage.OpcodeReadRequest:
		req, err := imessage.DecodeReadRequest(payload)
		if err != nil {
			return nil, err
		}
		return d.sendReports(exCtx, d.server.HandleRead(context.Background(), reqCtx, req))

	case imessage.OpcodeWriteRequest:
		req, err := imessage.DecodeWriteRequest(payload)
		if err != nil {
			return nil, err
		}
		resp := d.server.HandleWrite(context.Background(), reqCtx, req)
		return resp.Encode()

	case imessage.OpcodeInvokeRequest:
		req, err := imessage.DecodeInvokeRequest(payload)
		if err != nil {
			return nil, err
		}
		resp := d.server.HandleInvoke(context.Background(), reqCtx, req)
		return resp.Encode()

	case imessage.OpcodeSubscribeRequest:
		req, err := imessage.DecodeSubscribeRequest(payload)
		if err != nil {
			return nil, err
		}
		return d.handleSubscribe(exCtx, reqCtx, req)

	default:
		return nil, fmt.Errorf("node: unhandled interaction model opcode %#x", opcode)
	}
}

// sendReports chunks reports onto the exchange, sending every chunk but
// the last directly and returning the last for the caller's normal
// reliable-send path.
func (d *imDispatcher) sendReports(exCtx *exchange.Context, reports []imessage.ReportDataMessage) ([]byte, error) {
	if len(reports) == 0 {
		reports = []imessage.ReportDataMessage{{}}
	}
	for _, chunk := range reports[:len(reports)-1] {
		encoded, err := chunk.Encode()
		if err != nil {
			return nil, err
		}
		if err := exCtx.SendMessage(uint8(imessage.OpcodeReportData), encoded, true); err != nil {
			return nil, err
		}
	}
	return reports[len(reports)-1].Encode()
}

func (d *imDispatcher) handleSubscribe(exCtx *exchange.Context, reqCtx acl.Context, req imessage.SubscribeRequestMessage) ([]byte, error) {
	send := func(m imessage.ReportDataMessage) error {
		encoded, err := m.Encode()
		if err != nil {
			return err
		}
		return exCtx.SendMessage(uint8(imessage.OpcodeReportData), encoded, true)
	}

	resp, priming, err := d.subs.Subscribe(context.Background(), reqCtx, req, send)
	if err != nil {
		return nil, err
	}
	for _, chunk := range priming {
		if err := send(chunk); err != nil {
			return nil, err
		}
	}
	return resp.Encode()
}

// requestContext derives the access-control identity of the peer that
// opened exCtx from its underlying secure session (spec §4.9: every IM
// request is authorized against the session it arrived on, never the
// message payload itself).
func (d *imDispatcher) requestContext(exCtx *exchange.Context) (acl.Context, error) {
	sess, ok := exCtx.Session().(*session.Context)
	if !ok {
		return acl.Context{}, fmt.Errorf("node: interaction model request on a non-session exchange")
	}

	authMode := acl.AuthModeCASE
	isPASE := sess.Kind() == session.KindPASE
	if isPASE {
		authMode = acl.AuthModePASE
	}

	return acl.Context{
		FabricIndex: sess.FabricIndex(),
		AuthMode:    authMode,
		Subject:     uint64(sess.PeerNodeID()),
		IsPASE:      isPASE,
	}, nil
}

// Tick drives the subscription reporting loop; callers run it on a
// periodic timer (spec §4.10).
func (d *imDispatcher) Tick(ctx context.Context, now time.Time) {
	d.subs.Tick(ctx, now)
}
