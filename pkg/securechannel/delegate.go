package securechannel

import (
	"github.com/mkniffen/matterd/pkg/exchange"
	"github.com/mkniffen/matterd/pkg/message"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/securechannel/pase"
	"github.com/mkniffen/matterd/pkg/session"
)

// paseDelegate drives one PASE handshake's messages after the first one.
// The exchange manager only calls Manager.OnUnsolicited for a brand-new
// exchange (pkg/exchange's Handler/Delegate split); everything after that
// — Pake1..3 for a responder, PBKDFParamResponse..Pake3/StatusReport for an
// initiator — arrives through this Delegate, installed via ctx.SetDelegate
// at the point the handshake was started.
type paseDelegate struct {
	manager     *Manager
	session     *pase.Session
	provisional *session.Context
}

func (d *paseDelegate) OnMessage(ctx *exchange.Context, header *message.ProtocolHeader, payload []byte) ([]byte, error) {
	switch Opcode(header.ProtocolOpcode) {
	case OpcodePBKDFParamResponse:
		pake1, err := d.session.HandlePBKDFParamResponse(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		return nil, d.send(ctx, OpcodePASEPake1, pake1)

	case OpcodePASEPake1:
		pake2, err := d.session.HandlePake1(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		return nil, d.send(ctx, OpcodePASEPake2, pake2)

	case OpcodePASEPake2:
		pake3, err := d.session.HandlePake2(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		return nil, d.send(ctx, OpcodePASEPake3, pake3)

	case OpcodePASEPake3:
		if err := d.session.HandlePake3(payload); err != nil {
			return nil, d.fail(ctx, err)
		}
		if err := d.manager.commitPASE(d.provisional, d.session); err != nil {
			return nil, d.fail(ctx, err)
		}
		d.manager.notifyEstablished(d.provisional.LocalID(), session.KindPASE)
		return nil, d.send(ctx, OpcodeStatusReport, message.SessionEstablishmentSuccess().Encode())

	case OpcodeStatusReport:
		report, err := message.DecodeStatusReport(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		if !report.IsSuccess() {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, ErrPeerReportedFailure
		}
		if err := d.session.HandleStatusReport(true); err != nil {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, err
		}
		if err := d.manager.commitPASE(d.provisional, d.session); err != nil {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, err
		}
		d.manager.notifyEstablished(d.provisional.LocalID(), session.KindPASE)
		return nil, nil

	default:
		return nil, ErrUnexpectedOpcode
	}
}

func (d *paseDelegate) OnClose(ctx *exchange.Context) {
	if d.session.State() != pase.StateComplete {
		d.manager.sessions.Close(d.provisional.LocalID())
	}
}

func (d *paseDelegate) fail(ctx *exchange.Context, cause error) error {
	d.manager.sessions.Close(d.provisional.LocalID())
	d.manager.notifyError(cause, "PASE")
	return d.send(ctx, OpcodeStatusReport, message.Failure().Encode())
}

func (d *paseDelegate) send(ctx *exchange.Context, opcode Opcode, payload []byte) error {
	return ctx.SendMessage(uint8(opcode), payload, true)
}

// caseDelegate is the CASE analogue of paseDelegate.
type caseDelegate struct {
	manager     *Manager
	session     *casesession.Session
	provisional *session.Context
}

func (d *caseDelegate) OnMessage(ctx *exchange.Context, header *message.ProtocolHeader, payload []byte) ([]byte, error) {
	switch Opcode(header.ProtocolOpcode) {
	case OpcodeCASESigma2:
		sigma3, err := d.session.HandleSigma2(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		return nil, d.send(ctx, OpcodeCASESigma3, sigma3)

	case OpcodeCASESigma2Resume:
		if err := d.session.HandleSigma2Resume(payload); err != nil {
			return nil, d.fail(ctx, err)
		}
		if err := d.manager.completeCASE(d.provisional, d.session); err != nil {
			return nil, d.fail(ctx, err)
		}
		d.manager.notifyEstablished(d.provisional.LocalID(), session.KindCASE)
		return nil, nil

	case OpcodeCASESigma3:
		if err := d.session.HandleSigma3(payload); err != nil {
			return nil, d.fail(ctx, err)
		}
		if err := d.manager.completeCASE(d.provisional, d.session); err != nil {
			return nil, d.fail(ctx, err)
		}
		d.manager.notifyEstablished(d.provisional.LocalID(), session.KindCASE)
		return nil, d.send(ctx, OpcodeStatusReport, message.SessionEstablishmentSuccess().Encode())

	case OpcodeStatusReport:
		report, err := message.DecodeStatusReport(payload)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		if !report.IsSuccess() {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, ErrPeerReportedFailure
		}
		if err := d.session.HandleStatusReport(true); err != nil {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, err
		}
		if err := d.manager.completeCASE(d.provisional, d.session); err != nil {
			d.manager.sessions.Close(d.provisional.LocalID())
			return nil, err
		}
		d.manager.notifyEstablished(d.provisional.LocalID(), session.KindCASE)
		return nil, nil

	default:
		return nil, ErrUnexpectedOpcode
	}
}

func (d *caseDelegate) OnClose(ctx *exchange.Context) {
	if d.session.State() != casesession.StateComplete {
		d.manager.sessions.Close(d.provisional.LocalID())
	}
}

func (d *caseDelegate) fail(ctx *exchange.Context, cause error) error {
	d.manager.sessions.Close(d.provisional.LocalID())
	d.manager.notifyError(cause, "CASE")
	return d.send(ctx, OpcodeStatusReport, message.Failure().Encode())
}

func (d *caseDelegate) send(ctx *exchange.Context, opcode Opcode, payload []byte) error {
	return ctx.SendMessage(uint8(opcode), payload, true)
}
