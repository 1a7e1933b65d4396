package payload

import (
	"errors"
	"strings"
)

// QRCodePrefix marks a string as a Matter QR code payload.
const QRCodePrefix = "MT:"

// payloadDelimiter separates concatenated payloads in a multi-device QR
// code string.
const payloadDelimiter = '*'

// Field widths of the packed 88-bit/11-byte QR payload (spec §190),
// version through padding, encoded LSB-first.
const (
	versionBits    = 3
	vendorIDBits   = 16
	productIDBits  = 16
	flowBits       = 2
	discoveryBits  = 8
	discLongBits   = 12
	passcodeBits   = 27
	paddingBits    = 4

	qrPayloadBytes = 11 // 3+16+16+2+8+12+27+4 = 88 bits
)

var (
	ErrQRCodeMissingPrefix = errors.New("payload: missing MT: prefix")
	ErrQRCodeTooShort      = errors.New("payload: decoded data shorter than 11 bytes")
	ErrQRCodeBadPadding    = errors.New("payload: trailing padding bits must be zero")
)

// ParseQRCode decodes a single Matter QR code string. Use ParseQRCodes
// for a string that may concatenate several payloads with '*'.
func ParseQRCode(qr string) (*SetupPayload, error) {
	payloads, err := ParseQRCodes(qr)
	if err != nil {
		return nil, err
	}
	if len(payloads) != 1 {
		return nil, errors.New("payload: expected exactly one QR payload")
	}
	return payloads[0], nil
}

// ParseQRCodes decodes every payload chunk in qr, splitting on '*' for
// a QR code produced for multiple devices.
func ParseQRCodes(qr string) ([]*SetupPayload, error) {
	base38 := ExtractQRCodePayload(qr)
	if base38 == "" {
		return nil, ErrQRCodeMissingPrefix
	}

	chunks := strings.Split(base38, string(payloadDelimiter))
	payloads := make([]*SetupPayload, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		p, err := decodeQRChunk(chunk)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// ExtractQRCodePayload strips everything but the base-38 data following
// "MT:" from a scanned QR string, which may carry '%'-delimited
// surrounding segments added by some scanners.
func ExtractQRCodePayload(qr string) string {
	start := 0
	for i := 0; i <= len(qr); i++ {
		if i == len(qr) || qr[i] == '%' {
			segment := qr[start:i]
			if strings.HasPrefix(segment, QRCodePrefix) && len(segment) > len(QRCodePrefix) {
				return segment[len(QRCodePrefix):]
			}
			start = i + 1
		}
	}
	return ""
}

func decodeQRChunk(base38 string) (*SetupPayload, error) {
	data, err := DecodeBase38(base38)
	if err != nil {
		return nil, err
	}
	if len(data) < qrPayloadBytes {
		return nil, ErrQRCodeTooShort
	}

	r := &bitReader{data: data}
	p := &SetupPayload{HasDiscoveryCapabilities: true}

	version, _ := r.read(versionBits)
	p.Version = uint8(version)

	vendor, _ := r.read(vendorIDBits)
	p.VendorID = uint16(vendor)

	product, _ := r.read(productIDBits)
	p.ProductID = uint16(product)

	flow, _ := r.read(flowBits)
	p.CommissioningFlow = CommissioningFlow(flow)

	discovery, _ := r.read(discoveryBits)
	p.DiscoveryCapabilities = DiscoveryCapabilities(discovery)

	disc, _ := r.read(discLongBits)
	p.Discriminator = NewLongDiscriminator(uint16(disc))

	passcode, _ := r.read(passcodeBits)
	p.Passcode = uint32(passcode)

	padding, _ := r.read(paddingBits)
	if padding != 0 {
		return nil, ErrQRCodeBadPadding
	}

	return p, nil
}

// EncodeQRCode packs p into the 88-bit payload and returns "MT:" plus
// its base-38 encoding.
func EncodeQRCode(p *SetupPayload) (string, error) {
	if !p.IsValidQRCodePayload(ValidationModeProduce) {
		return "", errors.New("payload: payload not valid for QR code encoding")
	}

	w := &bitWriter{}
	w.write(uint64(p.Version), versionBits)
	w.write(uint64(p.VendorID), vendorIDBits)
	w.write(uint64(p.ProductID), productIDBits)
	w.write(uint64(p.CommissioningFlow), flowBits)
	w.write(uint64(p.DiscoveryCapabilities), discoveryBits)
	w.write(uint64(p.Discriminator.Long()), discLongBits)
	w.write(uint64(p.Passcode), passcodeBits)
	w.write(0, paddingBits)

	return QRCodePrefix + EncodeBase38(w.bytes()), nil
}

// bitReader unpacks fields from a byte slice least-significant-bit
// first, the order spec §190's packed payload uses.
type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) read(n int) (uint64, error) {
	if r.pos+n > len(r.data)*8 {
		return 0, errors.New("payload: bit reader ran past end of data")
	}
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx, bitIdx := (r.pos+i)/8, (r.pos+i)%8
		if r.data[byteIdx]&(1<<bitIdx) != 0 {
			v |= 1 << i
		}
	}
	r.pos += n
	return v, nil
}

// bitWriter is bitReader's inverse.
type bitWriter struct {
	data []byte
	pos  int
}

func (w *bitWriter) write(v uint64, n int) {
	needed := (w.pos + n + 7) / 8
	for len(w.data) < needed {
		w.data = append(w.data, 0)
	}
	for i := 0; i < n; i++ {
		if v&(1<<i) != 0 {
			byteIdx, bitIdx := (w.pos+i)/8, (w.pos+i)%8
			w.data[byteIdx] |= 1 << bitIdx
		}
	}
	w.pos += n
}

func (w *bitWriter) bytes() []byte { return w.data }
