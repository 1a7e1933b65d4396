// Package crypto provides the cryptographic primitives the Matter secure
// channel and message layers build on: SHA-256, HMAC, HKDF, PBKDF2,
// AES-128-CCM, and raw P-256 point arithmetic (Matter spec Chapter 3).
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HashSize is the SHA-256 digest length in bytes.
const HashSize = 32

// SHA256 hashes message and returns the 32-byte digest.
func SHA256(message []byte) [HashSize]byte {
	return sha256.Sum256(message)
}

// HMACSHA256 computes HMAC-SHA256(key, message).
func HMACSHA256(key, message []byte) [HashSize]byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ConstantTimeEqual compares two MACs without leaking timing information.
func ConstantTimeEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}
