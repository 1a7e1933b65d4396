package casesession

import (
	"github.com/mkniffen/matterd/pkg/crypto"
)

// DeriveS2K derives the key that encrypts TBEData2 (spec §4.14.2.6):
//
//	S2K = HKDF-SHA256(sharedSecret, salt=IPK‖responderRandom‖responderEphPub‖SHA256(sigma1), info="Sigma2", 16)
func DeriveS2K(sharedSecret []byte, ipk [16]byte, responderRandom [RandomSize]byte, responderEphPubKey [EphPubKeySize]byte, sigma1Bytes []byte) ([SessionKeySize]byte, error) {
	var result [SessionKeySize]byte
	transcriptHash := crypto.SHA256(sigma1Bytes)

	salt := make([]byte, 0, 16+RandomSize+EphPubKeySize+crypto.HashSize)
	salt = append(salt, ipk[:]...)
	salt = append(salt, responderRandom[:]...)
	salt = append(salt, responderEphPubKey[:]...)
	salt = append(salt, transcriptHash[:]...)

	key, err := crypto.HKDFSHA256(sharedSecret, salt, S2KInfo, SessionKeySize)
	if err != nil {
		return result, err
	}
	copy(result[:], key)
	return result, nil
}

// DeriveS3K derives the key that encrypts TBEData3:
//
//	S3K = HKDF-SHA256(sharedSecret, salt=IPK‖SHA256(sigma1‖sigma2), info="Sigma3", 16)
func DeriveS3K(sharedSecret []byte, ipk [16]byte, sigma1Bytes, sigma2Bytes []byte) ([SessionKeySize]byte, error) {
	var result [SessionKeySize]byte
	transcript := append(append([]byte(nil), sigma1Bytes...), sigma2Bytes...)
	transcriptHash := crypto.SHA256(transcript)

	salt := make([]byte, 0, 16+crypto.HashSize)
	salt = append(salt, ipk[:]...)
	salt = append(salt, transcriptHash[:]...)

	key, err := crypto.HKDFSHA256(sharedSecret, salt, S3KInfo, SessionKeySize)
	if err != nil {
		return result, err
	}
	copy(result[:], key)
	return result, nil
}

// DeriveS1RK derives the key that verifies InitiatorResumeMIC on a
// resumption Sigma1 (spec §4.14.2.3):
//
//	S1RK = HKDF-SHA256(prevSharedSecret, salt=initiatorRandom‖resumptionID, info="Sigma1_Resume", 16)
func DeriveS1RK(prevSharedSecret []byte, initiatorRandom [RandomSize]byte, resumptionID [ResumptionIDSize]byte) ([SessionKeySize]byte, error) {
	var result [SessionKeySize]byte
	salt := make([]byte, 0, RandomSize+ResumptionIDSize)
	salt = append(salt, initiatorRandom[:]...)
	salt = append(salt, resumptionID[:]...)

	key, err := crypto.HKDFSHA256(prevSharedSecret, salt, S1RKInfo, SessionKeySize)
	if err != nil {
		return result, err
	}
	copy(result[:], key)
	return result, nil
}

// DeriveS2RK derives the key that computes Resume2MIC:
//
//	S2RK = HKDF-SHA256(prevSharedSecret, salt=initiatorRandom‖newResumptionID, info="Sigma2_Resume", 16)
func DeriveS2RK(prevSharedSecret []byte, initiatorRandom [RandomSize]byte, newResumptionID [ResumptionIDSize]byte) ([SessionKeySize]byte, error) {
	var result [SessionKeySize]byte
	salt := make([]byte, 0, RandomSize+ResumptionIDSize)
	salt = append(salt, initiatorRandom[:]...)
	salt = append(salt, newResumptionID[:]...)

	key, err := crypto.HKDFSHA256(prevSharedSecret, salt, S2RKInfo, SessionKeySize)
	if err != nil {
		return result, err
	}
	copy(result[:], key)
	return result, nil
}

func deriveSessionKeysFromTranscript(sharedSecret []byte, ipk [16]byte, transcript []byte) (*SessionKeys, error) {
	transcriptHash := crypto.SHA256(transcript)
	salt := make([]byte, 0, 16+crypto.HashSize)
	salt = append(salt, ipk[:]...)
	salt = append(salt, transcriptHash[:]...)

	keys, err := crypto.HKDFSHA256(sharedSecret, salt, SEKeysInfo, 48)
	if err != nil {
		return nil, err
	}
	result := &SessionKeys{}
	copy(result.I2RKey[:], keys[0:16])
	copy(result.R2IKey[:], keys[16:32])
	copy(result.AttestationChallenge[:], keys[32:48])
	return result, nil
}

// DeriveSessionKeys derives the final I2RKey/R2IKey/AttestationChallenge
// after a full Sigma1/Sigma2/Sigma3 handshake:
//
//	keys = HKDF-SHA256(sharedSecret, salt=IPK‖SHA256(sigma1‖sigma2‖sigma3), info="SessionKeys", 48)
func DeriveSessionKeys(sharedSecret []byte, ipk [16]byte, sigma1, sigma2, sigma3 []byte) (*SessionKeys, error) {
	transcript := append(append(append([]byte(nil), sigma1...), sigma2...), sigma3...)
	return deriveSessionKeysFromTranscript(sharedSecret, ipk, transcript)
}

// DeriveResumptionSessionKeys derives session keys after a Sigma1/
// Sigma2Resume resumption handshake.
func DeriveResumptionSessionKeys(prevSharedSecret []byte, ipk [16]byte, sigma1, sigma2Resume []byte) (*SessionKeys, error) {
	transcript := append(append([]byte(nil), sigma1...), sigma2Resume...)
	return deriveSessionKeysFromTranscript(prevSharedSecret, ipk, transcript)
}

// EncryptTBEData seals TBEData2/TBEData3 under S2K/S3K with the literal
// Sigma2Nonce/Sigma3Nonce (spec §4.14.2.6). Matter uses no AAD here.
func EncryptTBEData(key [SessionKeySize]byte, plaintext, nonce []byte) ([]byte, error) {
	aead, err := crypto.NewAEAD(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, plaintext, nil)
}

// DecryptTBEData opens a TBEData2/TBEData3 ciphertext produced by
// EncryptTBEData.
func DecryptTBEData(key [SessionKeySize]byte, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := crypto.NewAEAD(key[:])
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ComputeResumeMIC produces the resumption MIC: an AES-CCM tag over empty
// plaintext and empty AAD, keyed by S1RK or S2RK (spec §4.14.2.3).
func ComputeResumeMIC(key [SessionKeySize]byte, nonce []byte) ([MICSize]byte, error) {
	var result [MICSize]byte
	aead, err := crypto.NewAEAD(key[:])
	if err != nil {
		return result, err
	}
	ciphertext, err := aead.Seal(nonce, nil, nil)
	if err != nil {
		return result, err
	}
	copy(result[:], ciphertext)
	return result, nil
}

// VerifyResumeMIC reports whether mic matches ComputeResumeMIC(key, nonce).
func VerifyResumeMIC(key [SessionKeySize]byte, nonce []byte, mic [MICSize]byte) bool {
	expected, err := ComputeResumeMIC(key, nonce)
	if err != nil {
		return false
	}
	return crypto.ConstantTimeEqual(expected[:], mic[:])
}
