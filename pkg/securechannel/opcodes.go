// Package securechannel implements the Matter Secure Channel protocol:
// PASE and CASE session establishment, MRP standalone acks, and the
// StatusReport-based close/failure path they share (spec §4.5/§4.6).
package securechannel

import "github.com/mkniffen/matterd/pkg/message"

// Opcode identifies a Secure Channel protocol message (spec Table 18).
// GeneralCode and SecureChannelProtocolCode live in pkg/message since
// message.StatusReport already carries them on the wire.
type Opcode uint8

const (
	OpcodeMsgCounterSyncReq  Opcode = 0x00
	OpcodeMsgCounterSyncResp Opcode = 0x01

	OpcodeStandaloneAck Opcode = 0x10

	OpcodePBKDFParamRequest  Opcode = 0x20
	OpcodePBKDFParamResponse Opcode = 0x21
	OpcodePASEPake1          Opcode = 0x22
	OpcodePASEPake2          Opcode = 0x23
	OpcodePASEPake3          Opcode = 0x24

	OpcodeCASESigma1       Opcode = 0x30
	OpcodeCASESigma2       Opcode = 0x31
	OpcodeCASESigma3       Opcode = 0x32
	OpcodeCASESigma2Resume Opcode = 0x33

	OpcodeStatusReport Opcode = 0x40
	OpcodeICDCheckIn   Opcode = 0x50
)

func (o Opcode) String() string {
	switch o {
	case OpcodeMsgCounterSyncReq:
		return "MsgCounterSyncReq"
	case OpcodeMsgCounterSyncResp:
		return "MsgCounterSyncResp"
	case OpcodeStandaloneAck:
		return "StandaloneAck"
	case OpcodePBKDFParamRequest:
		return "PBKDFParamRequest"
	case OpcodePBKDFParamResponse:
		return "PBKDFParamResponse"
	case OpcodePASEPake1:
		return "PASE_Pake1"
	case OpcodePASEPake2:
		return "PASE_Pake2"
	case OpcodePASEPake3:
		return "PASE_Pake3"
	case OpcodeCASESigma1:
		return "CASE_Sigma1"
	case OpcodeCASESigma2:
		return "CASE_Sigma2"
	case OpcodeCASESigma3:
		return "CASE_Sigma3"
	case OpcodeCASESigma2Resume:
		return "CASE_Sigma2Resume"
	case OpcodeStatusReport:
		return "StatusReport"
	case OpcodeICDCheckIn:
		return "ICD_CheckIn"
	default:
		return "Unknown"
	}
}

// protocolID is the Secure Channel protocol identifier used on every
// exchange this package drives.
const protocolID = message.ProtocolSecureChannel
