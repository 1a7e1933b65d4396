package payload

import (
	"errors"
	"strconv"
	"strings"
)

// Manual pairing code lengths, excluding the trailing check digit
// (spec §192): 10 digits for the short form, 20 for the long form that
// also carries vendor/product id.
const (
	manualCodeShortDigits = 10
	manualCodeLongDigits  = 20

	chunk1Digits   = 1
	chunk2Digits   = 5
	chunk3Digits   = 4
	vendorIDDigits = 5
	productIDDigits = 5

	chunk1DiscMSBBits = 2
	chunk2DiscLSBBits = 2
	chunk2PasscodeLSBBits = 14
	chunk3PasscodeMSBBits = 13
)

var (
	ErrManualCodeLength   = errors.New("payload: manual pairing code has invalid length")
	ErrManualCodeChecksum = errors.New("payload: manual pairing code fails its check digit")
	ErrManualCodeDigits   = errors.New("payload: manual pairing code contains non-digit characters")
	ErrManualCodeReserved = errors.New("payload: manual pairing code's first digit uses a reserved value")
	ErrManualCodeVendorID = errors.New("payload: vendor id exceeds 16 bits")
	ErrManualCodeProductID = errors.New("payload: product id exceeds 16 bits")
)

// ParseManualCode decodes an 11- or 21-digit manual pairing code
// (formatting characters such as '-' are ignored) into a SetupPayload.
func ParseManualCode(code string) (*SetupPayload, error) {
	code = StripManualCodeFormatting(code)
	if !VerhoeffValidate(code) {
		return nil, ErrManualCodeChecksum
	}
	code = code[:len(code)-1]

	var isLong bool
	switch len(code) {
	case manualCodeShortDigits:
		isLong = false
	case manualCodeLongDigits:
		isLong = true
	default:
		return nil, ErrManualCodeLength
	}

	pos := 0
	chunk1, err := readManualDigits(code, &pos, chunk1Digits)
	if err != nil {
		return nil, err
	}
	if chunk1 >= 8 {
		return nil, ErrManualCodeReserved
	}
	if ((chunk1>>chunk1DiscMSBBits)&1 == 1) != isLong {
		return nil, ErrManualCodeLength
	}

	chunk2, err := readManualDigits(code, &pos, chunk2Digits)
	if err != nil {
		return nil, err
	}
	chunk3, err := readManualDigits(code, &pos, chunk3Digits)
	if err != nil {
		return nil, err
	}

	discMSB := chunk1 & ((1 << chunk1DiscMSBBits) - 1)
	discLSB := (chunk2 >> chunk2PasscodeLSBBits) & ((1 << chunk2DiscLSBBits) - 1)
	discriminator := (discMSB << chunk2DiscLSBBits) | discLSB

	passcodeLSB := chunk2 & ((1 << chunk2PasscodeLSBBits) - 1)
	passcodeMSB := chunk3 & ((1 << chunk3PasscodeMSBBits) - 1)
	passcode := (passcodeMSB << chunk2PasscodeLSBBits) | passcodeLSB

	if err := ValidatePasscode(passcode); err != nil {
		return nil, err
	}

	p := &SetupPayload{
		Discriminator: NewShortDiscriminator(uint8(discriminator)),
		Passcode:      passcode,
	}

	if isLong {
		vendorID, err := readManualDigits(code, &pos, vendorIDDigits)
		if err != nil {
			return nil, err
		}
		if vendorID > 0xFFFF {
			return nil, ErrManualCodeVendorID
		}
		productID, err := readManualDigits(code, &pos, productIDDigits)
		if err != nil {
			return nil, err
		}
		if productID > 0xFFFF {
			return nil, ErrManualCodeProductID
		}
		p.VendorID = uint16(vendorID)
		p.ProductID = uint16(productID)
		p.CommissioningFlow = CommissioningFlowCustom
	}

	return p, nil
}

// EncodeManualCode renders p as a manual pairing code: 11 digits
// normally, or 21 when CommissioningFlow is Custom (carrying VID/PID).
func EncodeManualCode(p *SetupPayload) (string, error) {
	if !p.IsValidManualCode(ValidationModeProduce) {
		return "", errors.New("payload: payload not valid for manual code encoding")
	}

	discriminator := uint32(p.Discriminator.Short())
	isLong := p.CommissioningFlow == CommissioningFlowCustom

	var vidPidFlag uint32
	if isLong {
		vidPidFlag = 1
	}
	discMSB := (discriminator >> chunk1DiscMSBBits) & ((1 << chunk1DiscMSBBits) - 1)
	chunk1 := discMSB | (vidPidFlag << chunk1DiscMSBBits)

	discLSB := discriminator & ((1 << chunk1DiscMSBBits) - 1)
	chunk2 := (p.Passcode & ((1 << chunk2PasscodeLSBBits) - 1)) | (discLSB << chunk2PasscodeLSBBits)

	chunk3 := (p.Passcode >> chunk2PasscodeLSBBits) & ((1 << chunk3PasscodeMSBBits) - 1)

	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(chunk1), 10))
	sb.WriteString(padManualDigits(chunk2, chunk2Digits))
	sb.WriteString(padManualDigits(chunk3, chunk3Digits))
	if isLong {
		sb.WriteString(padManualDigits(uint32(p.VendorID), vendorIDDigits))
		sb.WriteString(padManualDigits(uint32(p.ProductID), productIDDigits))
	}

	check, err := VerhoeffChecksum(sb.String())
	if err != nil {
		return "", err
	}
	sb.WriteByte(check)
	return sb.String(), nil
}

// StripManualCodeFormatting removes everything but decimal digits, so
// dash- or space-separated codes parse the same as bare digit strings.
func StripManualCodeFormatting(code string) string {
	var sb strings.Builder
	sb.Grow(len(code))
	for _, c := range code {
		if c >= '0' && c <= '9' {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func readManualDigits(code string, pos *int, n int) (uint32, error) {
	if *pos+n > len(code) {
		return 0, ErrManualCodeLength
	}
	substr := code[*pos : *pos+n]
	*pos += n
	v, err := strconv.ParseUint(substr, 10, 32)
	if err != nil {
		return 0, ErrManualCodeDigits
	}
	return uint32(v), nil
}

func padManualDigits(v uint32, width int) string {
	s := strconv.FormatUint(uint64(v), 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
