package casesession

import (
	"testing"

	"github.com/mkniffen/matterd/pkg/crypto"
	"github.com/mkniffen/matterd/pkg/fabric"
)

func testFabric(t *testing.T, nodeID uint64) (*fabric.Info, *crypto.KeyPair) {
	t.Helper()
	root, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	op, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	info := &fabric.Info{
		Index:         1,
		RootPublicKey: root.PublicKeyBytes(),
		NOC:           append([]byte("noc:"), op.PublicKeyBytes()...),
		FabricID:      fabric.ID(0xFAB1),
		NodeID:        fabric.NodeID(nodeID),
		IPK:           make([]byte, 16),
	}
	return info, op
}

func noopValidator(nodeID uint64, pub []byte) ValidatePeerCertChainFunc {
	return func(noc, icac []byte, trustedRootPubKey [EphPubKeySize]byte) (*PeerCertInfo, error) {
		info := &PeerCertInfo{NodeID: nodeID, FabricID: 0xFAB1}
		copy(info.PublicKey[:], pub)
		return info, nil
	}
}

func runFullHandshake(t *testing.T) (*Session, *Session) {
	t.Helper()
	responderFabric, responderOp := testFabric(t, 2)
	initiatorFabric, initiatorOp := testFabric(t, 1)
	initiatorFabric.RootPublicKey = responderFabric.RootPublicKey
	initiatorFabric.IPK = responderFabric.IPK
	initiatorFabric.FabricID = responderFabric.FabricID

	initiator := NewInitiator(initiatorFabric, initiatorOp, 2).
		WithCertValidator(noopValidator(2, responderOp.PublicKeyBytes()))

	lookup := func(destinationID [DestinationIDSize]byte, initiatorRandom [RandomSize]byte) (*fabric.Info, *crypto.KeyPair, error) {
		var root [EphPubKeySize]byte
		copy(root[:], responderFabric.RootPublicKey)
		var ipk [16]byte
		copy(ipk[:], responderFabric.IPK)
		if !MatchDestinationID(destinationID, initiatorRandom, root, uint64(responderFabric.FabricID), 2, ipk) {
			t.Fatal("destination id did not match")
		}
		return responderFabric, responderOp, nil
	}
	responder := NewResponder(lookup, nil).WithCertValidator(noopValidator(1, initiatorOp.PublicKeyBytes()))

	msg1, err := initiator.Start(10)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	msg2, resumed, err := responder.HandleSigma1(msg1, 20)
	if err != nil {
		t.Fatalf("HandleSigma1: %v", err)
	}
	if resumed {
		t.Fatal("expected full handshake, got resumption")
	}
	msg3, err := initiator.HandleSigma2(msg2)
	if err != nil {
		t.Fatalf("HandleSigma2: %v", err)
	}
	if err := responder.HandleSigma3(msg3); err != nil {
		t.Fatalf("HandleSigma3: %v", err)
	}
	if err := initiator.HandleStatusReport(true); err != nil {
		t.Fatalf("HandleStatusReport: %v", err)
	}
	return initiator, responder
}

func TestCASEHandshakeSuccess(t *testing.T) {
	initiator, responder := runFullHandshake(t)
	if initiator.State() != StateComplete || responder.State() != StateComplete {
		t.Fatalf("expected both complete, got initiator=%v responder=%v", initiator.State(), responder.State())
	}
	ik, err := initiator.SessionKeys()
	if err != nil {
		t.Fatal(err)
	}
	rk, err := responder.SessionKeys()
	if err != nil {
		t.Fatal(err)
	}
	if ik.I2RKey != rk.I2RKey || ik.R2IKey != rk.R2IKey {
		t.Fatal("initiator/responder derived different session keys")
	}
	if ik.AttestationChallenge != rk.AttestationChallenge {
		t.Fatal("attestation challenge mismatch")
	}
}

func TestCASEInvalidStateTransitions(t *testing.T) {
	fabricInfo, op := testFabric(t, 2)
	s := NewInitiator(fabricInfo, op, 2)
	if _, err := s.HandleSigma2(nil); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := s.Start(1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Start(1); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState on double Start, got %v", err)
	}
}

func TestCASESessionKeysNotReadyBeforeComplete(t *testing.T) {
	fabricInfo, op := testFabric(t, 2)
	s := NewInitiator(fabricInfo, op, 2)
	if _, err := s.SessionKeys(); err != ErrSessionNotReady {
		t.Fatalf("expected ErrSessionNotReady, got %v", err)
	}
}
