package message

import "encoding/binary"

// Header is the Matter plaintext message header (spec §3/§4.3). All
// multi-byte fields are little-endian on the wire.
type Header struct {
	SessionID         uint16
	MessageCounter    uint32
	SessionType       SessionType
	SourceNodeID      uint64
	DestinationType   DestinationType
	DestinationNodeID uint64
	DestinationGroupID uint16

	SourcePresent bool
	Privacy       bool
	Control       bool
	Extensions    bool
}

// Size returns the encoded header length in bytes.
func (h *Header) Size() int {
	size := MinHeaderSize
	if h.SourcePresent {
		size += NodeIDSize
	}
	size += h.DestinationType.Size()
	return size
}

// Encode serializes the header. The result doubles as AAD for AES-CCM.
func (h *Header) Encode() []byte {
	buf := make([]byte, h.Size())
	h.EncodeTo(buf)
	return buf
}

func (h *Header) EncodeTo(buf []byte) int {
	offset := 0
	buf[offset] = h.messageFlags()
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], h.SessionID)
	offset += 2
	buf[offset] = h.SecurityFlags()
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], h.MessageCounter)
	offset += 4
	if h.SourcePresent {
		binary.LittleEndian.PutUint64(buf[offset:], h.SourceNodeID)
		offset += NodeIDSize
	}
	switch h.DestinationType {
	case DestinationNodeID:
		binary.LittleEndian.PutUint64(buf[offset:], h.DestinationNodeID)
		offset += NodeIDSize
	case DestinationGroupID:
		binary.LittleEndian.PutUint16(buf[offset:], h.DestinationGroupID)
		offset += GroupIDSize
	}
	return offset
}

func (h *Header) messageFlags() uint8 {
	var flags uint8
	flags |= MessageVersion << flagVersionShift
	if h.SourcePresent {
		flags |= flagSourcePresent
	}
	flags |= uint8(h.DestinationType) & flagDSIZMask
	return flags
}

// SecurityFlags constructs the Security Flags byte. Exported because the
// codec needs it verbatim to build the AEAD nonce.
func (h *Header) SecurityFlags() uint8 {
	var flags uint8
	flags |= uint8(h.SessionType) & secFlagSessionTypeMask
	if h.Extensions {
		flags |= secFlagExtensions
	}
	if h.Control {
		flags |= secFlagControl
	}
	if h.Privacy {
		flags |= secFlagPrivacy
	}
	return flags
}

// Decode parses a header from data, returning bytes consumed.
func (h *Header) Decode(data []byte) (int, error) {
	if len(data) < MinHeaderSize {
		return 0, ErrMessageTooShort
	}
	offset := 0
	msgFlags := data[offset]
	offset++

	version := (msgFlags >> flagVersionShift) & flagVersionMask
	if version != MessageVersion {
		return 0, ErrInvalidVersion
	}
	h.SourcePresent = msgFlags&flagSourcePresent != 0
	h.DestinationType = DestinationType(msgFlags & flagDSIZMask)
	if !h.DestinationType.IsValid() {
		return 0, ErrInvalidDSIZ
	}

	h.SessionID = binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	secFlags := data[offset]
	offset++
	h.SessionType = SessionType(secFlags & secFlagSessionTypeMask)
	if !h.SessionType.IsValid() {
		return 0, ErrInvalidSessionType
	}
	h.Extensions = secFlags&secFlagExtensions != 0
	h.Control = secFlags&secFlagControl != 0
	h.Privacy = secFlags&secFlagPrivacy != 0

	h.MessageCounter = binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	required := offset
	if h.SourcePresent {
		required += NodeIDSize
	}
	required += h.DestinationType.Size()
	if len(data) < required {
		return 0, ErrMessageTooShort
	}

	if h.SourcePresent {
		h.SourceNodeID = binary.LittleEndian.Uint64(data[offset:])
		offset += NodeIDSize
	} else {
		h.SourceNodeID = 0
	}

	switch h.DestinationType {
	case DestinationNodeID:
		h.DestinationNodeID = binary.LittleEndian.Uint64(data[offset:])
		h.DestinationGroupID = 0
		offset += NodeIDSize
	case DestinationGroupID:
		h.DestinationGroupID = binary.LittleEndian.Uint16(data[offset:])
		h.DestinationNodeID = 0
		offset += GroupIDSize
	default:
		h.DestinationNodeID = 0
		h.DestinationGroupID = 0
	}

	return offset, nil
}

// IsSecure reports whether the message belongs to a secure (encrypted) session.
func (h *Header) IsSecure() bool {
	return !(h.SessionType == SessionTypeUnicast && h.SessionID == 0)
}

// Validate checks cross-field constraints spec §3/§4.3 impose.
func (h *Header) Validate() error {
	if h.SessionType == SessionTypeGroup && !h.SourcePresent {
		return ErrMissingSourceNode
	}
	if h.SessionType == SessionTypeGroup && h.DestinationType == DestinationNone {
		return ErrInvalidDSIZ
	}
	if h.SessionType == SessionTypeUnicast && h.DestinationType == DestinationGroupID {
		return ErrInvalidDSIZ
	}
	return nil
}

// PrivacyObfuscatedSize is the length of the privacy-obfuscated portion:
// Message Counter + [Source Node ID] + [Destination].
func (h *Header) PrivacyObfuscatedSize() int {
	size := 4
	if h.SourcePresent {
		size += NodeIDSize
	}
	size += h.DestinationType.Size()
	return size
}

// PrivacyHeaderOffset is the byte offset where privacy obfuscation starts:
// after Message Flags(1) + Session ID(2) + Security Flags(1).
func (h *Header) PrivacyHeaderOffset() int { return 4 }
