package casesession

import "testing"

func TestDeriveS2KDeterministic(t *testing.T) {
	shared := []byte("0123456789abcdef0123456789abcdef")
	var ipk [16]byte
	var rr [RandomSize]byte
	var rpk [EphPubKeySize]byte
	copy(ipk[:], "ipkipkipkipkipki")
	rr[0] = 1
	rpk[0] = 0x04

	k1, err := DeriveS2K(shared, ipk, rr, rpk, []byte("msg1"))
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DeriveS2K(shared, ipk, rr, rpk, []byte("msg1"))
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatal("DeriveS2K not deterministic")
	}
	k3, _ := DeriveS2K(shared, ipk, rr, rpk, []byte("different-msg1"))
	if k1 == k3 {
		t.Fatal("DeriveS2K ignored transcript")
	}
}

func TestEncryptDecryptTBEDataRoundTrip(t *testing.T) {
	var key [SessionKeySize]byte
	copy(key[:], "0123456789abcdef")
	plaintext := []byte("sigma2 tbe payload")

	ciphertext, err := EncryptTBEData(key, plaintext, Sigma2Nonce)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecryptTBEData(key, ciphertext, Sigma2Nonce)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(plaintext) {
		t.Fatal("round trip changed plaintext")
	}
}

func TestDecryptTBEDataRejectsTamperedCiphertext(t *testing.T) {
	var key [SessionKeySize]byte
	copy(key[:], "0123456789abcdef")
	ciphertext, err := EncryptTBEData(key, []byte("payload"), Sigma3Nonce)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[0] ^= 0xFF
	if _, err := DecryptTBEData(key, ciphertext, Sigma3Nonce); err == nil {
		t.Fatal("expected decryption failure on tampered ciphertext")
	}
}

func TestComputeVerifyResumeMIC(t *testing.T) {
	var key [SessionKeySize]byte
	copy(key[:], "resumptionkey123")

	mic, err := ComputeResumeMIC(key, Resume1Nonce)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyResumeMIC(key, Resume1Nonce, mic) {
		t.Fatal("expected MIC to verify")
	}
	mic[0] ^= 0xFF
	if VerifyResumeMIC(key, Resume1Nonce, mic) {
		t.Fatal("expected tampered MIC to fail verification")
	}
}
