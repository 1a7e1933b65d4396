package session

import (
	"bytes"
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
	"github.com/mkniffen/matterd/pkg/message"
)

func TestCommitRejectsUnestablishedUse(t *testing.T) {
	ctx := &Context{localID: 7, kind: KindCASE, role: RoleInitiator, params: DefaultParams()}
	if _, err := ctx.Encrypt(&message.Header{}, &message.ProtocolHeader{}, nil, false); err != ErrNotProvisional {
		t.Fatalf("expected ErrNotProvisional, got %v", err)
	}
	if _, err := ctx.Decrypt(nil); err != ErrNotProvisional {
		t.Fatalf("expected ErrNotProvisional, got %v", err)
	}
}

func TestCommitRejectsBadKeySize(t *testing.T) {
	ctx := &Context{localID: 7, kind: KindPASE, role: RoleInitiator, params: DefaultParams()}
	err := ctx.Commit(CommitConfig{EncryptKey: []byte{1, 2, 3}, DecryptKey: make([]byte, KeySize)})
	if err != ErrInvalidKeySize {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeySize)

	local := &Context{localID: 1, kind: KindCASE, role: RoleInitiator, params: DefaultParams()}
	remote := &Context{localID: 2, kind: KindCASE, role: RoleResponder, params: DefaultParams()}

	localNode := fabric.NodeID(1)
	remoteNode := fabric.NodeID(2)

	if err := local.Commit(CommitConfig{
		PeerSessionID: remote.localID,
		EncryptKey:    key, // local's I2R
		DecryptKey:    key, // same key both ways for the round trip test
		LocalNodeID:   localNode,
		PeerNodeID:    remoteNode,
	}); err != nil {
		t.Fatal(err)
	}
	if err := remote.Commit(CommitConfig{
		PeerSessionID: local.localID,
		EncryptKey:    key,
		DecryptKey:    key,
		LocalNodeID:   remoteNode,
		PeerNodeID:    localNode,
	}); err != nil {
		t.Fatal(err)
	}

	header := &message.Header{}
	proto := &message.ProtocolHeader{ProtocolID: message.ProtocolInteractionModel, ExchangeID: 5}
	payload := []byte("hello matter")

	encoded, err := local.Encrypt(header, proto, payload, false)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	frame, err := remote.Decrypt(encoded)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload mismatch: got %q", frame.Payload)
	}
}

func TestReplayRejected(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, KeySize)
	local := &Context{localID: 1, kind: KindCASE, role: RoleInitiator, params: DefaultParams()}
	remote := &Context{localID: 2, kind: KindCASE, role: RoleResponder, params: DefaultParams()}

	if err := local.Commit(CommitConfig{PeerSessionID: 2, EncryptKey: key, DecryptKey: key}); err != nil {
		t.Fatal(err)
	}
	if err := remote.Commit(CommitConfig{PeerSessionID: 1, EncryptKey: key, DecryptKey: key}); err != nil {
		t.Fatal(err)
	}

	encoded, err := local.Encrypt(&message.Header{}, &message.ProtocolHeader{}, []byte("x"), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := remote.Decrypt(encoded); err != nil {
		t.Fatalf("first decrypt: %v", err)
	}
	if _, err := remote.Decrypt(encoded); err == nil {
		t.Fatal("expected replay to be rejected")
	}
}

func TestIsPeerActive(t *testing.T) {
	ctx := &Context{params: DefaultParams()}
	if ctx.IsPeerActive() {
		t.Fatal("fresh context should not be active")
	}
	ctx.MarkActive()
	if !ctx.IsPeerActive() {
		t.Fatal("expected active immediately after MarkActive")
	}
	if ctx.BaseInterval() != DefaultActiveInterval {
		t.Fatalf("expected active interval, got %v", ctx.BaseInterval())
	}
}

func TestZeroizeKeys(t *testing.T) {
	ctx := &Context{kind: KindPASE, params: DefaultParams()}
	if err := ctx.Commit(CommitConfig{EncryptKey: make([]byte, KeySize), DecryptKey: make([]byte, KeySize)}); err != nil {
		t.Fatal(err)
	}
	ctx.ZeroizeKeys()
	if ctx.Established() {
		t.Fatal("expected not established after zeroize")
	}
	if _, err := ctx.Encrypt(&message.Header{}, &message.ProtocolHeader{}, nil, false); err != ErrNotProvisional {
		t.Fatalf("expected ErrNotProvisional after zeroize, got %v", err)
	}
}
