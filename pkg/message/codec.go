package message

import (
	"github.com/mkniffen/matterd/pkg/crypto"
)

// Codec encrypts and decrypts frames for one session's traffic direction.
// A session uses two codecs: one keyed with the encrypt key for outbound
// traffic, one keyed with the decrypt key for inbound.
type Codec struct {
	aead         *crypto.AEAD
	privacyKey   []byte
	sourceNodeID uint64
}

// NewCodec builds a codec around a 16-byte AES-128 session key.
// sourceNodeID is used to build the AEAD nonce: the local node id for
// outbound codecs, the peer's for inbound (spec §4.3). For PASE sessions
// that id is UnspecifiedNodeID.
func NewCodec(key []byte, sourceNodeID uint64) (*Codec, error) {
	aead, err := crypto.NewAEAD(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	privacyKey, err := crypto.DerivePrivacyKey(key)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead, privacyKey: privacyKey, sourceNodeID: sourceNodeID}, nil
}

// Encode encrypts protocol+payload under header, returning the full wire
// message: header || ciphertext || tag (spec §4.3). Setting privacy
// obfuscates the header's counter/source/destination fields (spec §4.9).
func (c *Codec) Encode(header *Header, protocol *ProtocolHeader, payload []byte, privacy bool) ([]byte, error) {
	header.Privacy = privacy

	protocolBytes := protocol.Encode()
	plaintext := make([]byte, len(protocolBytes)+len(payload))
	copy(plaintext, protocolBytes)
	copy(plaintext[len(protocolBytes):], payload)

	aad := header.Encode()
	nonce := crypto.BuildNonce(header.SecurityFlags(), header.MessageCounter, c.sourceNodeID)

	ciphertext, err := c.aead.Seal(nonce, plaintext, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	encryptedPayload := ciphertext[:len(ciphertext)-MICSize]
	mic := ciphertext[len(ciphertext)-MICSize:]

	var headerBytes []byte
	if privacy {
		headerBytes, err = c.applyPrivacy(header, mic)
		if err != nil {
			return nil, err
		}
	} else {
		headerBytes = aad
	}

	result := make([]byte, len(headerBytes)+len(encryptedPayload)+MICSize)
	copy(result, headerBytes)
	copy(result[len(headerBytes):], encryptedPayload)
	copy(result[len(headerBytes)+len(encryptedPayload):], mic)
	return result, nil
}

func (c *Codec) applyPrivacy(header *Header, mic []byte) ([]byte, error) {
	headerBytes := header.Encode()
	nonce, err := crypto.BuildPrivacyNonce(header.SessionID, mic)
	if err != nil {
		return nil, err
	}
	offset := header.PrivacyHeaderOffset()
	length := header.PrivacyObfuscatedSize()
	if length == 0 {
		return headerBytes, nil
	}
	obfuscated, err := crypto.AESCTREncrypt(c.privacyKey, nonce, headerBytes[offset:offset+length])
	if err != nil {
		return nil, err
	}
	copy(headerBytes[offset:], obfuscated)
	return headerBytes, nil
}

// Decode decrypts a received secure message. sourceNodeID is the peer's
// node id, used to rebuild the AEAD nonce.
func (c *Codec) Decode(data []byte, sourceNodeID uint64) (*Frame, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	if !raw.Header.IsSecure() {
		return nil, ErrAuthFailed
	}

	headerBytes := make([]byte, raw.Header.Size())
	if raw.Header.Privacy {
		copy(headerBytes, data[:raw.Header.Size()])
		if err := c.removePrivacy(headerBytes, &raw.Header, raw.MIC); err != nil {
			return nil, err
		}
		if _, err := raw.Header.Decode(headerBytes); err != nil {
			return nil, err
		}
	} else {
		raw.Header.EncodeTo(headerBytes)
	}

	nonce := crypto.BuildNonce(raw.Header.SecurityFlags(), raw.Header.MessageCounter, sourceNodeID)
	ciphertext := make([]byte, len(raw.EncryptedPayload)+MICSize)
	copy(ciphertext, raw.EncryptedPayload)
	copy(ciphertext[len(raw.EncryptedPayload):], raw.MIC)

	plaintext, err := c.aead.Open(nonce, ciphertext, headerBytes)
	if err != nil {
		return nil, ErrAuthFailed
	}

	frame := &Frame{Header: raw.Header}
	protocolLen, err := frame.Protocol.Decode(plaintext)
	if err != nil {
		return nil, err
	}
	if len(plaintext) > protocolLen {
		frame.Payload = append([]byte(nil), plaintext[protocolLen:]...)
	}
	return frame, nil
}

func (c *Codec) removePrivacy(headerBytes []byte, header *Header, mic []byte) error {
	nonce, err := crypto.BuildPrivacyNonce(header.SessionID, mic)
	if err != nil {
		return err
	}
	offset := header.PrivacyHeaderOffset()
	length := header.PrivacyObfuscatedSize()
	if length == 0 {
		return nil
	}
	deobfuscated, err := crypto.AESCTRDecrypt(c.privacyKey, nonce, headerBytes[offset:offset+length])
	if err != nil {
		return err
	}
	copy(headerBytes[offset:], deobfuscated)
	return nil
}

// UnsecuredCodec handles handshake-time messages that carry no session key.
type UnsecuredCodec struct{}

func NewUnsecuredCodec() *UnsecuredCodec { return &UnsecuredCodec{} }

func (u *UnsecuredCodec) Encode(header *Header, protocol *ProtocolHeader, payload []byte) []byte {
	f := &Frame{Header: *header, Protocol: *protocol, Payload: payload}
	return f.EncodeUnsecured()
}

func (u *UnsecuredCodec) Decode(data []byte) (*Frame, error) {
	return DecodeUnsecured(data)
}
