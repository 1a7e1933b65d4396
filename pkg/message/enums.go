package message

// SessionType is carried in the Security Flags field, bits 0-1.
type SessionType uint8

const (
	SessionTypeUnicast SessionType = 0
	SessionTypeGroup   SessionType = 1
)

func (s SessionType) IsValid() bool { return s <= SessionTypeGroup }

func (s SessionType) String() string {
	if s == SessionTypeGroup {
		return "Group"
	}
	return "Unicast"
}

// DestinationType is carried in the Message Flags DSIZ field, bits 0-1.
type DestinationType uint8

const (
	DestinationNone    DestinationType = 0
	DestinationNodeID  DestinationType = 1
	DestinationGroupID DestinationType = 2
)

func (d DestinationType) IsValid() bool { return d <= DestinationGroupID }

func (d DestinationType) Size() int {
	switch d {
	case DestinationNodeID:
		return NodeIDSize
	case DestinationGroupID:
		return GroupIDSize
	default:
		return 0
	}
}

// ProtocolID identifies which protocol defines a message's opcode (spec §4.4.3.4).
type ProtocolID uint16

const (
	ProtocolSecureChannel             ProtocolID = 0x0000
	ProtocolInteractionModel          ProtocolID = 0x0001
	ProtocolBDX                       ProtocolID = 0x0002
	ProtocolUserDirectedCommissioning ProtocolID = 0x0003
)

func (p ProtocolID) String() string {
	switch p {
	case ProtocolSecureChannel:
		return "SecureChannel"
	case ProtocolInteractionModel:
		return "InteractionModel"
	case ProtocolBDX:
		return "BDX"
	case ProtocolUserDirectedCommissioning:
		return "UDC"
	default:
		return "Unknown"
	}
}

const VendorIDMatter uint16 = 0x0000

// GeneralCode is the first field of a StatusReport (spec §6).
type GeneralCode uint16

const (
	GeneralCodeSuccess        GeneralCode = 0
	GeneralCodeFailure        GeneralCode = 1
	GeneralCodeBadPrecondition GeneralCode = 2
	GeneralCodeOutOfRange     GeneralCode = 3
	GeneralCodeBadRequest     GeneralCode = 4
	GeneralCodeUnsupported    GeneralCode = 5
	GeneralCodeUnexpected     GeneralCode = 6
	GeneralCodeResourceExhausted GeneralCode = 7
	GeneralCodeBusy           GeneralCode = 8
	GeneralCodeTimeout        GeneralCode = 9
	GeneralCodeContinue       GeneralCode = 10
	GeneralCodeAborted        GeneralCode = 11
	GeneralCodeInvalidArgument GeneralCode = 12
	GeneralCodeNotFound       GeneralCode = 13
	GeneralCodeAlreadyExists  GeneralCode = 14
	GeneralCodePermissionDenied GeneralCode = 15
	GeneralCodeDataLoss       GeneralCode = 16
)

// SecureChannelProtocolCode is the protocol_code field when protocol_id is
// the Secure Channel protocol (spec §4.5/§4.6).
type SecureChannelProtocolCode uint16

const (
	ProtocolCodeSessionEstablishmentSuccess SecureChannelProtocolCode = 0
	ProtocolCodeNoSharedTrustRoots          SecureChannelProtocolCode = 1
	ProtocolCodeInvalidParameter            SecureChannelProtocolCode = 2
	ProtocolCodeCloseSession                SecureChannelProtocolCode = 3
	ProtocolCodeBusy                        SecureChannelProtocolCode = 4
)
