package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// PrivacyKeySize matches the session key width; privacy obfuscation reuses
// AES-128.
const PrivacyKeySize = KeySize

var ErrInvalidMICForPrivacy = errors.New("crypto: MIC must be 16 bytes for privacy nonce")

// DerivePrivacyKey derives the per-session privacy key from the session's
// encryption key (Matter spec §4.9, privacy header obfuscation).
func DerivePrivacyKey(sessionKey []byte) ([]byte, error) {
	if len(sessionKey) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return HKDFSHA256(sessionKey, nil, []byte("PrivacyKey"), PrivacyKeySize)
}

// BuildPrivacyNonce assembles the 13-byte privacy nonce: session id
// (big-endian, 2 bytes) || MIC[5:16] (11 bytes), per Matter spec §4.9.1.
func BuildPrivacyNonce(sessionID uint16, mic []byte) ([]byte, error) {
	if len(mic) != TagSize {
		return nil, ErrInvalidMICForPrivacy
	}
	n := make([]byte, NonceSize)
	n[0] = byte(sessionID >> 8)
	n[1] = byte(sessionID)
	copy(n[2:], mic[5:])
	return n, nil
}

// AESCTREncrypt and AESCTRDecrypt are the same operation (CTR is its own
// inverse); both exist for call-site readability. The 13-byte privacy
// nonce is zero-padded to the 16-byte block size expected by cipher.NewCTR.
func AESCTREncrypt(key, nonce, data []byte) ([]byte, error) {
	return aesCTRXOR(key, nonce, data)
}

func AESCTRDecrypt(key, nonce, data []byte) ([]byte, error) {
	return aesCTRXOR(key, nonce, data)
}

func aesCTRXOR(key, nonce, data []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	var iv [blockSize]byte
	copy(iv[:], nonce)
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}
