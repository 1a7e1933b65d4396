package btp

import "encoding/binary"

// Flags is the first byte of every BTP packet (spec §4.8/§6).
type Flags byte

const (
	FlagHandshake    Flags = 0x01 // H: management opcode is a handshake
	FlagManagement   Flags = 0x02 // M: opcode byte follows flags
	FlagAck          Flags = 0x04 // A: an ack number follows
	FlagEnd          Flags = 0x08 // E: last fragment of the message
	FlagBeginning    Flags = 0x10 // B: first fragment, carries total length
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// ManagementOpcode identifies the kind of a management (M-flagged)
// packet. Handshake is the only one this implementation sends or
// accepts; others fail closed.
type ManagementOpcode byte

const ManagementOpcodeHandshake ManagementOpcode = 0x6C

// DefaultMTU and DefaultWindowSize are this implementation's proposal
// in a handshake request; the negotiated session uses the minimum of
// both sides' values (spec §4.8).
const (
	DefaultMTU        = 247
	DefaultWindowSize = 6
	MinMTU            = 20
	SupportedVersion  = 4
)

// HandshakeRequest is the central's opening BTP management packet,
// proposing the protocol versions it understands and its preferred
// ATT MTU and flow-control window.
type HandshakeRequest struct {
	SupportedVersions uint32 // bit N set ⇒ version N+1 supported
	MTU               uint16
	WindowSize        byte
}

// Encode serializes a handshake request: flags, opcode, a 4-byte
// version bitmask, MTU (little-endian), and window size.
func (r HandshakeRequest) Encode() []byte {
	buf := make([]byte, 9)
	buf[0] = byte(FlagHandshake | FlagManagement)
	buf[1] = byte(ManagementOpcodeHandshake)
	binary.LittleEndian.PutUint32(buf[2:6], r.SupportedVersions)
	binary.LittleEndian.PutUint16(buf[6:8], r.MTU)
	buf[8] = r.WindowSize
	return buf
}

// DecodeHandshakeRequest parses a handshake request packet.
func DecodeHandshakeRequest(data []byte) (HandshakeRequest, error) {
	if len(data) != 9 {
		return HandshakeRequest{}, ErrShortPacket
	}
	flags := Flags(data[0])
	if !flags.has(FlagHandshake) || !flags.has(FlagManagement) {
		return HandshakeRequest{}, ErrShortPacket
	}
	if ManagementOpcode(data[1]) != ManagementOpcodeHandshake {
		return HandshakeRequest{}, ErrShortPacket
	}
	return HandshakeRequest{
		SupportedVersions: binary.LittleEndian.Uint32(data[2:6]),
		MTU:               binary.LittleEndian.Uint16(data[6:8]),
		WindowSize:        data[8],
	}, nil
}

// HandshakeResponse is the peripheral's reply: the version it selected
// (the highest the two sides share) and the MTU/window it will use,
// each clamped to the minimum of both proposals.
type HandshakeResponse struct {
	SelectedVersion byte
	MTU             uint16
	WindowSize      byte
}

// Encode serializes a handshake response. Three reserved bytes (always
// zero) pad the layout to keep it the same length as the request.
func (r HandshakeResponse) Encode() []byte {
	buf := make([]byte, 9)
	buf[0] = byte(FlagHandshake | FlagManagement)
	buf[1] = byte(ManagementOpcodeHandshake)
	buf[2] = 0
	buf[3] = 0
	buf[4] = r.SelectedVersion
	buf[5] = 0
	binary.LittleEndian.PutUint16(buf[6:8], r.MTU)
	buf[8] = r.WindowSize
	return buf
}

// DecodeHandshakeResponse parses a handshake response packet, e.g.
// `03 6C 00 00 04 00 F7 00 06` → version 4, MTU 247, window 6.
func DecodeHandshakeResponse(data []byte) (HandshakeResponse, error) {
	if len(data) != 9 {
		return HandshakeResponse{}, ErrShortPacket
	}
	flags := Flags(data[0])
	if !flags.has(FlagHandshake) || !flags.has(FlagManagement) {
		return HandshakeResponse{}, ErrShortPacket
	}
	if ManagementOpcode(data[1]) != ManagementOpcodeHandshake {
		return HandshakeResponse{}, ErrShortPacket
	}
	return HandshakeResponse{
		SelectedVersion: data[4],
		MTU:             binary.LittleEndian.Uint16(data[6:8]),
		WindowSize:      data[8],
	}, nil
}

// selectVersion picks the numerically highest version both a request's
// bitmask and this implementation support. Only SupportedVersion is
// ever offered or accepted today.
func selectVersion(proposed uint32) (byte, bool) {
	bit := SupportedVersion - 1
	if proposed&(1<<uint(bit)) == 0 {
		return 0, false
	}
	return SupportedVersion, true
}

func versionBitmask(version byte) uint32 {
	return 1 << uint(version-1)
}

func minUint16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}

func minByte(a, b byte) byte {
	if a < b {
		return a
	}
	return b
}

// dataHeader is the per-fragment header of a non-management packet.
// Ack and sequence numbers are 8-bit wrapping counters (spec §4.8).
type dataHeader struct {
	Flags      Flags
	AckNum     byte // valid iff Flags.has(FlagAck)
	SeqNum     byte
	TotalLen   uint16 // valid iff Flags.has(FlagBeginning)
}

// size returns the header's encoded length in bytes.
func (h dataHeader) size() int {
	n := 2 // flags + seq
	if h.Flags.has(FlagAck) {
		n++
	}
	if h.Flags.has(FlagBeginning) {
		n += 2
	}
	return n
}

func (h dataHeader) encode() []byte {
	buf := make([]byte, h.size())
	buf[0] = byte(h.Flags)
	i := 1
	if h.Flags.has(FlagAck) {
		buf[i] = h.AckNum
		i++
	}
	buf[i] = h.SeqNum
	i++
	if h.Flags.has(FlagBeginning) {
		binary.LittleEndian.PutUint16(buf[i:i+2], h.TotalLen)
	}
	return buf
}

// decodeDataHeader parses a fragment header and returns it along with
// the byte offset where the fragment's payload begins.
func decodeDataHeader(data []byte) (dataHeader, int, error) {
	if len(data) < 2 {
		return dataHeader{}, 0, ErrShortPacket
	}
	h := dataHeader{Flags: Flags(data[0])}
	i := 1
	if h.Flags.has(FlagAck) {
		if len(data) < i+1 {
			return dataHeader{}, 0, ErrShortPacket
		}
		h.AckNum = data[i]
		i++
	}
	if len(data) < i+1 {
		return dataHeader{}, 0, ErrShortPacket
	}
	h.SeqNum = data[i]
	i++
	if h.Flags.has(FlagBeginning) {
		if len(data) < i+2 {
			return dataHeader{}, 0, ErrShortPacket
		}
		h.TotalLen = binary.LittleEndian.Uint16(data[i : i+2])
		i += 2
	}
	return h, i, nil
}
