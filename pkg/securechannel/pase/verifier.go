package pase

import "github.com/mkniffen/matterd/pkg/crypto/spake2p"

// Verifier is the registration record a commissionee stores in place of
// the plaintext passcode (spec §3.10, §4.5): W0 plus L = w1*P. NewResponder
// only needs these two values, never the passcode itself.
type Verifier struct {
	W0 []byte // 32 bytes
	L  []byte // 65 bytes, uncompressed P-256 point
}

// GenerateVerifier derives a Verifier from a passcode, the salt, and the
// iteration count a device will publish in its PBKDF parameters.
func GenerateVerifier(passcode uint32, salt []byte, iterations uint32) (*Verifier, error) {
	if err := ValidatePasscode(passcode); err != nil {
		return nil, err
	}
	if err := validatePBKDFParams(salt, iterations); err != nil {
		return nil, err
	}
	w0, _, l, err := spake2p.ComputeVerifier(passcode, salt, int(iterations))
	if err != nil {
		return nil, err
	}
	return &Verifier{W0: w0, L: l}, nil
}

// Serialize concatenates W0 and L (97 bytes), the form a fabric/NOC store
// persists a commissionee's verifier as.
func (v *Verifier) Serialize() []byte {
	out := make([]byte, spake2p.ScalarSize+spake2p.PointSize)
	copy(out, v.W0)
	copy(out[spake2p.ScalarSize:], v.L)
	return out
}

// DeserializeVerifier parses the Serialize format back out.
func DeserializeVerifier(data []byte) (*Verifier, error) {
	if len(data) != spake2p.ScalarSize+spake2p.PointSize {
		return nil, ErrInvalidMessage
	}
	v := &Verifier{
		W0: append([]byte(nil), data[:spake2p.ScalarSize]...),
		L:  append([]byte(nil), data[spake2p.ScalarSize:]...),
	}
	return v, nil
}
