package message

import "encoding/binary"

// ProtocolHeader sits at the front of the (possibly encrypted) message
// payload (spec §3/§4.3).
type ProtocolHeader struct {
	ProtocolID          ProtocolID
	ProtocolOpcode      uint8
	ExchangeID          uint16
	ProtocolVendorID    uint16
	AckedMessageCounter uint32

	Initiator         bool
	Acknowledgement   bool
	Reliability       bool
	SecuredExtensions bool
	VendorPresent     bool
}

func (p *ProtocolHeader) Size() int {
	size := MinProtocolHeaderSize
	if p.VendorPresent {
		size += 2
	}
	if p.Acknowledgement {
		size += 4
	}
	return size
}

func (p *ProtocolHeader) Encode() []byte {
	buf := make([]byte, p.Size())
	p.EncodeTo(buf)
	return buf
}

func (p *ProtocolHeader) EncodeTo(buf []byte) int {
	offset := 0
	buf[offset] = p.exchangeFlags()
	offset++
	buf[offset] = p.ProtocolOpcode
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], p.ExchangeID)
	offset += 2
	if p.VendorPresent {
		binary.LittleEndian.PutUint16(buf[offset:], p.ProtocolVendorID)
		offset += 2
	}
	binary.LittleEndian.PutUint16(buf[offset:], uint16(p.ProtocolID))
	offset += 2
	if p.Acknowledgement {
		binary.LittleEndian.PutUint32(buf[offset:], p.AckedMessageCounter)
		offset += 4
	}
	return offset
}

func (p *ProtocolHeader) exchangeFlags() uint8 {
	var flags uint8
	if p.Initiator {
		flags |= exchFlagInitiator
	}
	if p.Acknowledgement {
		flags |= exchFlagAcknowledgement
	}
	if p.Reliability {
		flags |= exchFlagReliability
	}
	if p.SecuredExtensions {
		flags |= exchFlagSecuredExtensions
	}
	if p.VendorPresent {
		flags |= exchFlagVendor
	}
	return flags
}

func (p *ProtocolHeader) Decode(data []byte) (int, error) {
	if len(data) < MinProtocolHeaderSize {
		return 0, ErrPayloadTooShort
	}
	offset := 0
	exchFlags := data[offset]
	offset++
	p.Initiator = exchFlags&exchFlagInitiator != 0
	p.Acknowledgement = exchFlags&exchFlagAcknowledgement != 0
	p.Reliability = exchFlags&exchFlagReliability != 0
	p.SecuredExtensions = exchFlags&exchFlagSecuredExtensions != 0
	p.VendorPresent = exchFlags&exchFlagVendor != 0

	p.ProtocolOpcode = data[offset]
	offset++
	p.ExchangeID = binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	required := offset + 2
	if p.VendorPresent {
		required += 2
	}
	if p.Acknowledgement {
		required += 4
	}
	if len(data) < required {
		return 0, ErrPayloadTooShort
	}

	if p.VendorPresent {
		p.ProtocolVendorID = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	} else {
		p.ProtocolVendorID = VendorIDMatter
	}
	p.ProtocolID = ProtocolID(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if p.Acknowledgement {
		p.AckedMessageCounter = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	} else {
		p.AckedMessageCounter = 0
	}
	return offset, nil
}

func (p *ProtocolHeader) IsSecureChannel() bool {
	return p.ProtocolVendorID == VendorIDMatter && p.ProtocolID == ProtocolSecureChannel
}

func (p *ProtocolHeader) IsInteractionModel() bool {
	return p.ProtocolVendorID == VendorIDMatter && p.ProtocolID == ProtocolInteractionModel
}

func (p *ProtocolHeader) NeedsAck() bool { return p.Reliability }
func (p *ProtocolHeader) IsAck() bool    { return p.Acknowledgement }
