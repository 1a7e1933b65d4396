package casesession

import "testing"

func TestGenerateDestinationIDMatch(t *testing.T) {
	var initiatorRandom [RandomSize]byte
	var rootPubKey [EphPubKeySize]byte
	var ipk [16]byte
	initiatorRandom[0] = 1
	rootPubKey[0] = 0x04
	copy(ipk[:], "0123456789abcdef")

	id := GenerateDestinationID(initiatorRandom, rootPubKey, 42, 7, ipk)
	if !MatchDestinationID(id, initiatorRandom, rootPubKey, 42, 7, ipk) {
		t.Fatal("expected matching parameters to verify")
	}
	if MatchDestinationID(id, initiatorRandom, rootPubKey, 42, 8, ipk) {
		t.Fatal("expected different node id to mismatch")
	}
	if MatchDestinationID(id, initiatorRandom, rootPubKey, 43, 7, ipk) {
		t.Fatal("expected different fabric id to mismatch")
	}
}
