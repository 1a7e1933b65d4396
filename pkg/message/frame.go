package message

import (
	"encoding/binary"
	"io"
)

// Frame is a fully decoded message: header + protocol header + application
// payload, all in cleartext (post-decryption for secure sessions).
type Frame struct {
	Header   Header
	Protocol ProtocolHeader
	Payload  []byte
}

// EncodeUnsecured serializes a frame for an unsecured session (handshake
// messages before a session key exists).
func (f *Frame) EncodeUnsecured() []byte {
	total := f.Header.Size() + f.Protocol.Size() + len(f.Payload)
	buf := make([]byte, total)
	offset := f.Header.EncodeTo(buf)
	offset += f.Protocol.EncodeTo(buf[offset:])
	copy(buf[offset:], f.Payload)
	return buf
}

// DecodeUnsecured parses an unsecured message frame.
func DecodeUnsecured(data []byte) (*Frame, error) {
	f := &Frame{}
	headerLen, err := f.Header.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen {
		return nil, ErrMessageTooShort
	}
	protocolLen, err := f.Protocol.Decode(data[headerLen:])
	if err != nil {
		return nil, err
	}
	appStart := headerLen + protocolLen
	if len(data) > appStart {
		f.Payload = append([]byte(nil), data[appStart:]...)
	}
	return f, nil
}

// RawFrame is a frame whose payload is still AES-CCM ciphertext, as seen on
// the wire for secure sessions.
type RawFrame struct {
	Header           Header
	EncryptedPayload []byte
	MIC              []byte
}

func (r *RawFrame) EncodeRaw() []byte {
	total := r.Header.Size() + len(r.EncryptedPayload) + len(r.MIC)
	buf := make([]byte, total)
	offset := r.Header.EncodeTo(buf)
	offset += copy(buf[offset:], r.EncryptedPayload)
	copy(buf[offset:], r.MIC)
	return buf
}

// DecodeRaw splits wire bytes into header, encrypted payload, and MIC
// without decrypting. Unsecured messages (session id 0) carry no MIC.
func DecodeRaw(data []byte) (*RawFrame, error) {
	r := &RawFrame{}
	headerLen, err := r.Header.Decode(data)
	if err != nil {
		return nil, err
	}
	if r.Header.IsSecure() {
		if len(data) < headerLen+MICSize {
			return nil, ErrMessageTooShort
		}
		payloadEnd := len(data) - MICSize
		r.EncryptedPayload = append([]byte(nil), data[headerLen:payloadEnd]...)
		r.MIC = append([]byte(nil), data[payloadEnd:]...)
	} else if len(data) > headerLen {
		r.EncryptedPayload = append([]byte(nil), data[headerLen:]...)
	}
	return r, nil
}

func (r *RawFrame) TotalSize() int {
	size := r.Header.Size() + len(r.EncryptedPayload)
	if r.Header.IsSecure() {
		size += MICSize
	}
	return size
}

// ValidateSize rejects frames exceeding the UDP MTU budget (spec §6).
func ValidateSize(data []byte) error {
	if len(data) > MaxUDPMessageSize {
		return ErrMessageTooLong
	}
	return nil
}

// StreamWriter adds TCP's 4-byte little-endian length prefix (spec §6,
// scenario 4: frame("hello") == <<5,0,0,0,"hello">>).
type StreamWriter struct{ w io.Writer }

func NewStreamWriter(w io.Writer) *StreamWriter { return &StreamWriter{w: w} }

func (sw *StreamWriter) Write(frame []byte) (int, error) {
	var lenBuf [TCPLengthPrefixSize]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	n, err := sw.w.Write(lenBuf[:])
	if err != nil {
		return n, err
	}
	m, err := sw.w.Write(frame)
	return n + m, err
}

func (sw *StreamWriter) WriteFrame(frame *RawFrame) error {
	_, err := sw.Write(frame.EncodeRaw())
	return err
}

// StreamReader parses TCP length-prefixed frames.
type StreamReader struct{ r io.Reader }

func NewStreamReader(r io.Reader) *StreamReader { return &StreamReader{r: r} }

func (sr *StreamReader) Read() ([]byte, error) {
	var lenBuf [TCPLengthPrefixSize]byte
	if _, err := io.ReadFull(sr.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, ErrStreamReadFailed
	}
	frameLen := binary.LittleEndian.Uint32(lenBuf[:])
	if frameLen == 0 {
		return nil, ErrInvalidLengthPrefix
	}
	if frameLen > MaxTCPMessageSize {
		return nil, ErrMessageTooLong
	}
	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(sr.r, frame); err != nil {
		return nil, ErrStreamReadFailed
	}
	return frame, nil
}

func (sr *StreamReader) ReadFrame() (*RawFrame, error) {
	data, err := sr.Read()
	if err != nil {
		return nil, err
	}
	return DecodeRaw(data)
}

// EncodeWithLengthPrefix adds the 4-byte TCP length prefix without an
// io.Writer, for callers that just want the bytes.
func EncodeWithLengthPrefix(frame []byte) []byte {
	buf := make([]byte, TCPLengthPrefixSize+len(frame))
	binary.LittleEndian.PutUint32(buf[:TCPLengthPrefixSize], uint32(len(frame)))
	copy(buf[TCPLengthPrefixSize:], frame)
	return buf
}
