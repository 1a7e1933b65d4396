// Package payload implements the two onboarding payload codecs spec §190/
// §192 define: the QR setup payload (base-38 over a packed 88-bit field)
// and the manual pairing code (Verhoeff-checked decimal digits).
package payload

import (
	"errors"
	"strings"
)

// base38Alphabet is the character set for base-38 encoding; position in
// the string is the digit's numeric value (spec §190).
const base38Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-."

const base38Radix = 38

// base38GroupChars maps a trailing group's byte count (1, 2, or 3) to the
// number of base-38 characters it encodes to: 1→2, 2→4, 3→5.
var base38GroupChars = [...]int{2, 4, 5}

var base38Value = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(base38Alphabet); i++ {
		t[base38Alphabet[i]] = int8(i)
	}
	return t
}()

var (
	ErrBase38BadChar   = errors.New("payload: invalid base-38 character")
	ErrBase38BadLength = errors.New("payload: base-38 string has invalid length")
	ErrBase38Overflow  = errors.New("payload: base-38 group decodes to more bytes than its size allows")
)

// EncodeBase38 encodes data as base-38, grouping 3 input bytes into 5
// characters (and a final partial group of 1 or 2 bytes into 2 or 4
// characters), least-significant byte/character first (spec §190).
func EncodeBase38(data []byte) string {
	var sb strings.Builder
	sb.Grow(Base38Len(len(data)))

	for len(data) > 0 {
		n := 3
		if len(data) < 3 {
			n = len(data)
		}
		var v uint32
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint32(data[i])
		}
		data = data[n:]

		for i := 0; i < base38GroupChars[n-1]; i++ {
			sb.WriteByte(base38Alphabet[v%base38Radix])
			v /= base38Radix
		}
	}
	return sb.String()
}

// Base38Len returns the encoded string length for n input bytes.
func Base38Len(n int) int {
	length := (n / 3) * 5
	if rem := n % 3; rem > 0 {
		length += base38GroupChars[rem-1]
	}
	return length
}

// DecodeBase38 is EncodeBase38's inverse.
func DecodeBase38(s string) ([]byte, error) {
	s = strings.ToUpper(s)
	var out []byte
	for len(s) > 0 {
		var chars, bytes int
		switch {
		case len(s) >= 5:
			chars, bytes = 5, 3
		case len(s) == 4:
			chars, bytes = 4, 2
		case len(s) == 2:
			chars, bytes = 2, 1
		default:
			return nil, ErrBase38BadLength
		}

		var v uint32
		for i := chars - 1; i >= 0; i-- {
			c := s[i]
			if int(c) >= len(base38Value) || base38Value[c] < 0 {
				return nil, ErrBase38BadChar
			}
			v = v*base38Radix + uint32(base38Value[c])
		}
		s = s[chars:]

		for i := 0; i < bytes; i++ {
			out = append(out, byte(v))
			v >>= 8
		}
		if v != 0 {
			return nil, ErrBase38Overflow
		}
	}
	return out, nil
}
