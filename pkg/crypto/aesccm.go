package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

// Matter fixes every AEAD parameter (spec §4.2): 128-bit key, 13-byte
// nonce, 128-bit tag. The standard library has no CCM mode (only GCM), so
// this builds CBC-MAC-then-CTR by hand per NIST SP 800-38C, specialized
// to those fixed widths rather than the general parametrized CCM a
// reference implementation would expose.
const (
	KeySize   = 16
	NonceSize = 13
	TagSize   = 16

	blockSize  = 16
	lengthSize = 15 - NonceSize // L = 2
)

var (
	ErrInvalidKeySize   = errors.New("crypto: key must be 16 bytes")
	ErrInvalidNonceSize = errors.New("crypto: nonce must be 13 bytes")
	ErrCiphertextShort  = errors.New("crypto: ciphertext shorter than tag")
	ErrAuthFailed       = errors.New("crypto: AEAD authentication failed")
)

// AEAD wraps one AES-128 block cipher for repeated Seal/Open calls against
// a single session key.
type AEAD struct {
	block cipher.Block
}

// NewAEAD constructs an AES-128-CCM instance for key.
func NewAEAD(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{block: block}, nil
}

// Seal encrypts and authenticates plaintext under nonce and aad, returning
// ciphertext||tag.
func (a *AEAD) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	tag := a.cbcMAC(nonce, plaintext, aad)
	out := make([]byte, len(plaintext)+TagSize)
	s0 := a.counterBlock(nonce, 0)
	for i := 0; i < TagSize; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}
	a.ctrXOR(nonce, out[:len(plaintext)], plaintext)
	return out, nil
}

// Open verifies and decrypts ciphertext (which ends in the tag) under
// nonce and aad. Any corruption — in key, nonce, aad, ciphertext, or tag —
// surfaces identically as ErrAuthFailed (spec §7: never distinguish AEAD
// failures to a peer or a caller).
func (a *AEAD) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < TagSize {
		return nil, ErrCiphertextShort
	}
	enc := ciphertext[:len(ciphertext)-TagSize]
	encTag := ciphertext[len(ciphertext)-TagSize:]

	s0 := a.counterBlock(nonce, 0)
	recvTag := make([]byte, TagSize)
	for i := 0; i < TagSize; i++ {
		recvTag[i] = encTag[i] ^ s0[i]
	}

	plaintext := make([]byte, len(enc))
	a.ctrXOR(nonce, plaintext, enc)

	expectTag := a.cbcMAC(nonce, plaintext, aad)
	if subtle.ConstantTimeCompare(recvTag, expectTag[:TagSize]) != 1 {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// cbcMAC computes the CBC-MAC tag over B_0 || AAD-blocks || message-blocks.
func (a *AEAD) cbcMAC(nonce, plaintext, aad []byte) []byte {
	var b0 [blockSize]byte
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((TagSize - 2) / 2) << 3
	flags |= byte(lengthSize - 1)
	b0[0] = flags
	copy(b0[1:1+NonceSize], nonce)
	binary.BigEndian.PutUint16(b0[1+NonceSize:], uint16(len(plaintext)))

	mac := make([]byte, blockSize)
	a.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(aad)))
		buf := append(append([]byte{}, hdr[:]...), aad...)
		xorBlocksInto(a.block, mac, buf)
	}
	xorBlocksInto(a.block, mac, plaintext)
	return mac
}

// xorBlocksInto XORs data into mac block-by-block (zero-padding the final
// block) and re-encrypts after each block, continuing the CBC-MAC chain.
func xorBlocksInto(block cipher.Block, mac []byte, data []byte) {
	for len(data) > 0 {
		var b [blockSize]byte
		n := copy(b[:], data)
		data = data[n:]
		for i := 0; i < blockSize; i++ {
			mac[i] ^= b[i]
		}
		block.Encrypt(mac, mac)
	}
}

// counterBlock computes S_i = E(Key, A_i) for the CCM counter construction.
func (a *AEAD) counterBlock(nonce []byte, counter uint16) []byte {
	var a0 [blockSize]byte
	a0[0] = byte(lengthSize - 1)
	copy(a0[1:1+NonceSize], nonce)
	binary.BigEndian.PutUint16(a0[1+NonceSize:], counter)
	out := make([]byte, blockSize)
	a.block.Encrypt(out, a0[:])
	return out
}

// ctrXOR encrypts/decrypts src into dst using CCM's counter mode, counters
// starting at 1 (counter 0 is reserved for masking the tag).
func (a *AEAD) ctrXOR(nonce, dst, src []byte) {
	counter := uint16(1)
	for len(src) > 0 {
		ks := a.counterBlock(nonce, counter)
		n := len(src)
		if n > blockSize {
			n = blockSize
		}
		for i := 0; i < n; i++ {
			dst[i] = src[i] ^ ks[i]
		}
		dst, src = dst[n:], src[n:]
		counter++
	}
}

// BuildNonce assembles the 13-byte AEAD nonce per spec §4.3:
// securityFlags(1) || counter_le32(4) || sourceNodeID_le64(8).
func BuildNonce(securityFlags uint8, counter uint32, sourceNodeID uint64) []byte {
	n := make([]byte, NonceSize)
	n[0] = securityFlags
	binary.LittleEndian.PutUint32(n[1:5], counter)
	binary.LittleEndian.PutUint64(n[5:13], sourceNodeID)
	return n
}
