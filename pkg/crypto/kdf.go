package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 iteration bounds (Matter spec §3.9): devices must reject
// parameters outside this range during PASE.
const (
	PBKDF2IterationsMin = 1000
	PBKDF2IterationsMax = 100000
)

// HKDFSHA256 runs full extract-then-expand HKDF (RFC 5869). A nil salt is
// treated by the underlying library as HashSize zero bytes, matching
// spec §4.2's "zero salt is treated as 32 zero bytes".
func HKDFSHA256(ikm, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PBKDF2SHA256 derives keyLen bytes from password using PBKDF2-HMAC-SHA256.
// Matter caps a single call at 80 output bytes (spec §4.2).
func PBKDF2SHA256(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}
