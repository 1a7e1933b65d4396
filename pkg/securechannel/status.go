package securechannel

import "github.com/mkniffen/matterd/pkg/message"

// CloseSession builds the StatusReport a node sends on a secure session to
// tell its peer to drop all state for it (spec §4.11.1.4). It always rides
// an already-established PASE or CASE session, never a handshake exchange.
func CloseSession() message.StatusReport {
	return message.StatusReport{
		GeneralCode:  message.GeneralCodeSuccess,
		ProtocolID:   uint32(message.ProtocolSecureChannel),
		ProtocolCode: uint16(message.ProtocolCodeCloseSession),
	}
}

// Busy builds the StatusReport a responder sends when it cannot service a
// PBKDFParamRequest or Sigma1 right now (spec §4.11.1.5). waitMS is not
// encoded: message.StatusReport has no protocol-data field, so the report
// carries no minimum wait time.
func Busy(waitMS uint16) message.StatusReport {
	return message.StatusReport{
		GeneralCode:  message.GeneralCodeBusy,
		ProtocolID:   uint32(message.ProtocolSecureChannel),
		ProtocolCode: uint16(message.ProtocolCodeBusy),
	}
}

// NoSharedTrustRoots builds the StatusReport a CASE responder sends when
// none of its fabrics' root keys match a Sigma1's destination id.
func NoSharedTrustRoots() message.StatusReport {
	return message.StatusReport{
		GeneralCode:  message.GeneralCodeFailure,
		ProtocolID:   uint32(message.ProtocolSecureChannel),
		ProtocolCode: uint16(message.ProtocolCodeNoSharedTrustRoots),
	}
}
