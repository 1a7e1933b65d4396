package casesession

import (
	"encoding/binary"

	"github.com/mkniffen/matterd/pkg/crypto"
)

// GenerateDestinationID computes the destination identifier (spec
// §4.14.2.4): a privacy-preserving way for the initiator to name the
// fabric/node it wants to reach without exposing either on the wire.
//
//	message = initiatorRandom || rootPublicKey || fabricID_LE || nodeID_LE
//	destinationID = HMAC-SHA256(key=ipk, message)
func GenerateDestinationID(
	initiatorRandom [RandomSize]byte,
	rootPublicKey [EphPubKeySize]byte,
	fabricID uint64,
	nodeID uint64,
	ipk [16]byte,
) [DestinationIDSize]byte {
	msg := make([]byte, 0, RandomSize+EphPubKeySize+8+8)
	msg = append(msg, initiatorRandom[:]...)
	msg = append(msg, rootPublicKey[:]...)

	var fabricBytes, nodeBytes [8]byte
	binary.LittleEndian.PutUint64(fabricBytes[:], fabricID)
	binary.LittleEndian.PutUint64(nodeBytes[:], nodeID)
	msg = append(msg, fabricBytes[:]...)
	msg = append(msg, nodeBytes[:]...)

	return crypto.HMACSHA256(ipk[:], msg)
}

// MatchDestinationID reports whether an incoming destination ID matches
// the candidate fabric/node/IPK triple. The responder tries this against
// every (fabric, node, IPK) it holds until one matches.
func MatchDestinationID(
	destinationID [DestinationIDSize]byte,
	initiatorRandom [RandomSize]byte,
	rootPublicKey [EphPubKeySize]byte,
	fabricID uint64,
	nodeID uint64,
	ipk [16]byte,
) bool {
	candidate := GenerateDestinationID(initiatorRandom, rootPublicKey, fabricID, nodeID, ipk)
	return destinationID == candidate
}
