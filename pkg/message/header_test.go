package message

import "testing"

func TestHeaderRoundTripUnicastWithSource(t *testing.T) {
	h := &Header{
		SessionID:      7,
		MessageCounter: 42,
		SessionType:    SessionTypeUnicast,
		SourceNodeID:   0x1122334455667788,
		SourcePresent:  true,
	}
	buf := h.Encode()

	var got Header
	n, err := got.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.SessionID != h.SessionID || got.MessageCounter != h.MessageCounter || got.SourceNodeID != h.SourceNodeID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, *h)
	}
}

func TestHeaderGroupRequiresSource(t *testing.T) {
	h := &Header{SessionType: SessionTypeGroup, DestinationType: DestinationGroupID, DestinationGroupID: 1}
	if err := h.Validate(); err != ErrMissingSourceNode {
		t.Fatalf("want ErrMissingSourceNode, got %v", err)
	}
}

func TestUnsecuredSessionDetection(t *testing.T) {
	h := &Header{SessionType: SessionTypeUnicast, SessionID: 0}
	if h.IsSecure() {
		t.Fatal("session id 0 unicast must be unsecured")
	}
	h.SessionID = 1
	if !h.IsSecure() {
		t.Fatal("nonzero session id must be secure")
	}
}
