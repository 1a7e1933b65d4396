// Package message implements the Interaction Model's wire-level message
// and Information Block (IB) types (spec §4.9): TLV structures carried
// inside protocol ID 0x0001 exchanges, independent of the dispatch and
// ACL logic that interprets them.
package message

import "github.com/mkniffen/matterd/pkg/tlv"

// ProtocolID identifies the Interaction Model protocol.
const ProtocolID uint16 = 0x0001

// Opcode identifies an Interaction Model message's payload shape.
type Opcode uint8

const (
	OpcodeStatusResponse    Opcode = 0x01
	OpcodeReadRequest       Opcode = 0x02
	OpcodeSubscribeRequest  Opcode = 0x03
	OpcodeSubscribeResponse Opcode = 0x04
	OpcodeReportData        Opcode = 0x05
	OpcodeWriteRequest      Opcode = 0x06
	OpcodeWriteResponse     Opcode = 0x07
	OpcodeInvokeRequest     Opcode = 0x08
	OpcodeInvokeResponse    Opcode = 0x09
	OpcodeTimedRequest      Opcode = 0x0a
)

func (o Opcode) String() string {
	switch o {
	case OpcodeStatusResponse:
		return "StatusResponse"
	case OpcodeReadRequest:
		return "ReadRequest"
	case OpcodeSubscribeRequest:
		return "SubscribeRequest"
	case OpcodeSubscribeResponse:
		return "SubscribeResponse"
	case OpcodeReportData:
		return "ReportData"
	case OpcodeWriteRequest:
		return "WriteRequest"
	case OpcodeWriteResponse:
		return "WriteResponse"
	case OpcodeInvokeRequest:
		return "InvokeRequest"
	case OpcodeInvokeResponse:
		return "InvokeResponse"
	case OpcodeTimedRequest:
		return "TimedRequest"
	default:
		return "Unknown"
	}
}

// Status is an Interaction Model status code (spec §4.9, Table: IM Status Codes).
type Status uint8

const (
	StatusSuccess                Status = 0x00
	StatusFailure                Status = 0x01
	StatusInvalidSubscription    Status = 0x7d
	StatusUnsupportedAccess      Status = 0x7e
	StatusUnsupportedEndpoint    Status = 0x7f
	StatusInvalidAction          Status = 0x80
	StatusUnsupportedCommand     Status = 0x81
	StatusInvalidCommand         Status = 0x85
	StatusUnsupportedAttribute   Status = 0x86
	StatusConstraintError        Status = 0x87
	StatusUnsupportedWrite       Status = 0x88
	StatusResourceExhausted      Status = 0x89
	StatusNotFound               Status = 0x8b
	StatusUnreportableAttribute  Status = 0x8c
	StatusInvalidDataType        Status = 0x8d
	StatusUnsupportedRead        Status = 0x8f
	StatusDataVersionMismatch    Status = 0x92
	StatusTimeout                Status = 0x94
	StatusBusy                   Status = 0x9c
	StatusAccessRestricted       Status = 0x9d
	StatusUnsupportedCluster     Status = 0xc3
	StatusNoUpstreamSubscription Status = 0xc5
	StatusNeedsTimedInteraction  Status = 0xc6
	StatusUnsupportedEvent       Status = 0xc7
	StatusPathsExhausted         Status = 0xc8
	StatusTimedRequestMismatch   Status = 0xc9
	StatusFailsafeRequired       Status = 0xca
	StatusInvalidInState         Status = 0xcb
)

func (s Status) IsSuccess() bool { return s == StatusSuccess }

// InteractionModelRevisionTag is the context tag every top-level IM message
// struct carries as its last field (spec §4.9, "IM revision tag 0xFF").
const InteractionModelRevisionTag = 0xFF

// InteractionModelRevision is the revision this stack implements and
// reports in every outgoing IM message.
const InteractionModelRevision uint8 = 11

func revisionField() tlv.Value {
	return tlv.Uint(tlv.ContextTag(InteractionModelRevisionTag), uint64(InteractionModelRevision))
}
