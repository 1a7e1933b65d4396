package message

import (
	"bytes"
	"testing"

	"github.com/mkniffen/matterd/pkg/crypto"
)

func TestSecureCodecRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, crypto.KeySize)
	codec, err := NewCodec(key, 0xAABBCCDD)
	if err != nil {
		t.Fatal(err)
	}

	header := &Header{SessionID: 5, MessageCounter: 1, SessionType: SessionTypeUnicast}
	protocol := &ProtocolHeader{ProtocolID: ProtocolInteractionModel, ProtocolOpcode: 0x02, ExchangeID: 99, Initiator: true}
	payload := []byte("read request payload")

	wire, err := codec.Encode(header, protocol, payload, false)
	if err != nil {
		t.Fatal(err)
	}

	frame, err := codec.Decode(wire, 0xAABBCCDD)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload mismatch: %q", frame.Payload)
	}
	if frame.Protocol.ExchangeID != 99 || frame.Protocol.ProtocolOpcode != 0x02 {
		t.Fatalf("protocol header mismatch: %+v", frame.Protocol)
	}
}

func TestSecureCodecRoundTripWithPrivacy(t *testing.T) {
	key := bytes.Repeat([]byte{0x22}, crypto.KeySize)
	codec, err := NewCodec(key, 7)
	if err != nil {
		t.Fatal(err)
	}
	header := &Header{SessionID: 3, MessageCounter: 100, SessionType: SessionTypeUnicast, SourcePresent: true, SourceNodeID: 7}
	protocol := &ProtocolHeader{ProtocolID: ProtocolSecureChannel, ProtocolOpcode: StatusReportOpcode}
	payload := SessionEstablishmentSuccess().Encode()

	wire, err := codec.Encode(header, protocol, payload, true)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := codec.Decode(wire, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatal("payload mismatch after privacy round trip")
	}
}

func TestSecureCodecTamperedCiphertextFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x33}, crypto.KeySize)
	codec, _ := NewCodec(key, 1)
	header := &Header{SessionID: 9, MessageCounter: 1, SessionType: SessionTypeUnicast}
	protocol := &ProtocolHeader{ProtocolID: ProtocolInteractionModel, ProtocolOpcode: 0x05}
	wire, err := codec.Encode(header, protocol, []byte("x"), false)
	if err != nil {
		t.Fatal(err)
	}
	wire[len(wire)-1] ^= 0xFF
	if _, err := codec.Decode(wire, 1); err != ErrAuthFailed {
		t.Fatalf("want ErrAuthFailed, got %v", err)
	}
}
