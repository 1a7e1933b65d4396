package fabric

import (
	"encoding/binary"
	"errors"

	"github.com/mkniffen/matterd/pkg/crypto"
)

// compressedFabricInfo is the fixed HKDF info string "CompressedFabric"
// (spec §6, used by mDNS operational discovery naming).
var compressedFabricInfo = []byte("CompressedFabric")

var (
	ErrInvalidRootPublicKey = errors.New("fabric: invalid root public key length")
	ErrInvalidFabricID      = errors.New("fabric: invalid fabric id")
)

// CompressedID derives the 8-byte compressed fabric identifier used in
// DNS-SD operational service names:
// HKDF(ikm=rootPublicKey[1:], salt=fabricID_be64, info="CompressedFabric", 8).
func CompressedID(rootPublicKey []byte, fabricID ID) ([CompressedIDSize]byte, error) {
	var result [CompressedIDSize]byte
	if !fabricID.IsValid() {
		return result, ErrInvalidFabricID
	}

	var keyBytes []byte
	switch len(rootPublicKey) {
	case 64:
		keyBytes = rootPublicKey
	case RootPublicKeySize:
		if rootPublicKey[0] != 0x04 {
			return result, ErrInvalidRootPublicKey
		}
		keyBytes = rootPublicKey[1:]
	default:
		return result, ErrInvalidRootPublicKey
	}

	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, uint64(fabricID))

	derived, err := crypto.HKDFSHA256(keyBytes, salt, compressedFabricInfo, CompressedIDSize)
	if err != nil {
		return result, err
	}
	copy(result[:], derived)
	return result, nil
}
