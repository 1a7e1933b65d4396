package pase

import "testing"

const testPasscode = 20202021

func runHandshake(t *testing.T, passcode uint32, wrongPasscode uint32) (*Session, *Session) {
	t.Helper()
	salt := []byte("0123456789ABCDEF")
	iterations := uint32(1000)

	verifier, err := GenerateVerifier(passcode, salt, iterations)
	if err != nil {
		t.Fatalf("GenerateVerifier: %v", err)
	}

	initiator, err := NewInitiator(wrongPasscode)
	if err != nil {
		t.Fatalf("NewInitiator: %v", err)
	}
	responder, err := NewResponder(verifier.W0, verifier.L, salt, iterations)
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}

	req, err := initiator.Start(1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := responder.HandlePBKDFParamRequest(req, 2)
	if err != nil {
		t.Fatalf("HandlePBKDFParamRequest: %v", err)
	}
	pake1, err := initiator.HandlePBKDFParamResponse(resp)
	if err != nil {
		t.Fatalf("HandlePBKDFParamResponse: %v", err)
	}
	pake2, err := responder.HandlePake1(pake1)
	if err != nil {
		t.Fatalf("HandlePake1: %v", err)
	}
	pake3, err := initiator.HandlePake2(pake2)
	if err != nil {
		t.Fatalf("HandlePake2: %v", err)
	}
	pake3Err := responder.HandlePake3(pake3)
	_ = initiator.HandleStatusReport(pake3Err == nil)
	return initiator, responder
}

func TestPASEHandshakeSuccess(t *testing.T) {
	initiator, responder := runHandshake(t, testPasscode, testPasscode)

	if initiator.State() != StateComplete || responder.State() != StateComplete {
		t.Fatalf("expected both complete, got initiator=%v responder=%v", initiator.State(), responder.State())
	}
	ik, rk := initiator.SessionKeys(), responder.SessionKeys()
	if ik == nil || rk == nil {
		t.Fatal("expected derived session keys on both sides")
	}
	if ik.I2RKey != rk.I2RKey || ik.R2IKey != rk.R2IKey {
		t.Fatal("initiator/responder derived different session keys")
	}
	if ik.AttestationChallenge != rk.AttestationChallenge {
		t.Fatal("attestation challenge mismatch")
	}
}

func TestPASEWrongPasscode(t *testing.T) {
	salt := []byte("0123456789ABCDEF")
	iterations := uint32(1000)
	verifier, err := GenerateVerifier(testPasscode, salt, iterations)
	if err != nil {
		t.Fatal(err)
	}
	initiator, _ := NewInitiator(20202022)
	responder, _ := NewResponder(verifier.W0, verifier.L, salt, iterations)

	req, _ := initiator.Start(1)
	resp, _ := responder.HandlePBKDFParamRequest(req, 2)
	pake1, _ := initiator.HandlePBKDFParamResponse(resp)
	pake2, _ := responder.HandlePake1(pake1)
	pake3, err := initiator.HandlePake2(pake2)
	if err == nil {
		t.Fatal("expected confirmation failure with mismatched passcode")
	}
	_ = pake3
}

func TestPASEInvalidStateTransitions(t *testing.T) {
	initiator, err := NewInitiator(testPasscode)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := initiator.HandlePBKDFParamResponse(nil); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := initiator.Start(1); err != nil {
		t.Fatal(err)
	}
	if _, err := initiator.Start(1); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState on double Start, got %v", err)
	}
}

func TestValidatePasscodeRejectsDenylist(t *testing.T) {
	for _, bad := range []uint32{0, 11111111, 12345678, 87654321, 100_000_000} {
		if err := ValidatePasscode(bad); err == nil {
			t.Errorf("expected %d to be rejected", bad)
		}
	}
	if err := ValidatePasscode(testPasscode); err != nil {
		t.Errorf("expected %d to be accepted: %v", testPasscode, err)
	}
}

func TestVerifierSerializeRoundTrip(t *testing.T) {
	v, err := GenerateVerifier(testPasscode, []byte("0123456789ABCDEF"), 1000)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeVerifier(v.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	if string(got.W0) != string(v.W0) || string(got.L) != string(v.L) {
		t.Fatal("round trip changed verifier bytes")
	}
}
