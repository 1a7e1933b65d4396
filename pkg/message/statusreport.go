package message

import "encoding/binary"

// StatusReportOpcode is the Secure Channel protocol opcode carrying a
// StatusReport (spec §4.5).
const StatusReportOpcode uint8 = 0x40

// StatusReportSize is the StatusReport's fixed wire size: it is not TLV
// (spec §6).
const StatusReportSize = 8

// StatusReport is the fixed 8-byte wire record Secure Channel and other
// protocols use to report handshake outcomes: general_code(2) ||
// protocol_id(4) || protocol_code(2), all little-endian.
type StatusReport struct {
	GeneralCode GeneralCode
	ProtocolID  uint32
	ProtocolCode uint16
}

// Encode serializes the fixed 8-byte layout.
func (s StatusReport) Encode() []byte {
	buf := make([]byte, StatusReportSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(s.GeneralCode))
	binary.LittleEndian.PutUint32(buf[2:6], s.ProtocolID)
	binary.LittleEndian.PutUint16(buf[6:8], s.ProtocolCode)
	return buf
}

// DecodeStatusReport parses the fixed 8-byte layout.
func DecodeStatusReport(data []byte) (StatusReport, error) {
	if len(data) < StatusReportSize {
		return StatusReport{}, ErrMessageTooShort
	}
	return StatusReport{
		GeneralCode:  GeneralCode(binary.LittleEndian.Uint16(data[0:2])),
		ProtocolID:   binary.LittleEndian.Uint32(data[2:6]),
		ProtocolCode: binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

// IsSuccess reports whether this StatusReport signals success.
func (s StatusReport) IsSuccess() bool { return s.GeneralCode == GeneralCodeSuccess }

// SessionEstablishmentSuccess builds the StatusReport a PASE/CASE responder
// sends once it has verified the peer's confirmation (spec §4.5/§4.6).
func SessionEstablishmentSuccess() StatusReport {
	return StatusReport{
		GeneralCode:  GeneralCodeSuccess,
		ProtocolID:   uint32(ProtocolSecureChannel),
		ProtocolCode: uint16(ProtocolCodeSessionEstablishmentSuccess),
	}
}

// Failure builds a generic failure StatusReport. Per spec §7, crypto and
// signature failures are never distinguished on the wire — every handshake
// failure uses this same shape.
func Failure() StatusReport {
	return StatusReport{
		GeneralCode:  GeneralCodeFailure,
		ProtocolID:   uint32(ProtocolSecureChannel),
		ProtocolCode: uint16(ProtocolCodeInvalidParameter),
	}
}
