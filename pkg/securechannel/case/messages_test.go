package casesession

import (
	"testing"

	"github.com/mkniffen/matterd/pkg/tlv"
)

func TestSigma1RoundTrip(t *testing.T) {
	s := &Sigma1{
		InitiatorSessionID: 7,
		MRPParams: &MRPParameters{
			IdleRetransTimeoutMS:   500,
			ActiveRetransTimeoutMS: 300,
			ActiveThresholdMS:      4000,
		},
	}
	for i := range s.InitiatorRandom {
		s.InitiatorRandom[i] = byte(i)
	}
	for i := range s.DestinationID {
		s.DestinationID[i] = byte(i + 1)
	}
	for i := range s.InitiatorEphPubKey {
		s.InitiatorEphPubKey[i] = byte(i + 2)
	}

	data, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeSigma1(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.InitiatorRandom != s.InitiatorRandom || got.DestinationID != s.DestinationID {
		t.Fatal("random/destination mismatch")
	}
	if got.InitiatorEphPubKey != s.InitiatorEphPubKey {
		t.Fatal("eph pub key mismatch")
	}
	if got.MRPParams == nil || got.MRPParams.IdleRetransTimeoutMS != 500 {
		t.Fatal("MRP params not round-tripped")
	}
	if got.HasResumption() {
		t.Fatal("expected no resumption fields")
	}
}

func TestSigma1WithResumptionRoundTrip(t *testing.T) {
	s := &Sigma1{InitiatorSessionID: 1}
	var rid [ResumptionIDSize]byte
	var mic [MICSize]byte
	rid[0], mic[0] = 0xAA, 0xBB
	s.ResumptionID = &rid
	s.InitiatorResumeMIC = &mic

	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSigma1(data)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasResumption() {
		t.Fatal("expected resumption fields present")
	}
	if *got.ResumptionID != rid || *got.InitiatorResumeMIC != mic {
		t.Fatal("resumption fields changed")
	}
}

func TestSigma1MissingDestinationIDRejected(t *testing.T) {
	// Sigma1.Encode always writes field 3, so build the struct by hand
	// with every required field except DestinationID.
	var random [RandomSize]byte
	var ephPubKey [EphPubKeySize]byte
	data, err := tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Bytes(tlv.ContextTag(1), random[:]),
		tlv.Uint(tlv.ContextTag(2), 1),
		tlv.Bytes(tlv.ContextTag(4), ephPubKey[:]),
	))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeSigma1(data); err == nil {
		t.Fatal("expected decode error when DestinationID field is absent")
	}
}

func TestSigma2RoundTrip(t *testing.T) {
	s := &Sigma2{
		ResponderSessionID: 9,
		Encrypted2:         []byte{1, 2, 3, 4},
	}
	for i := range s.ResponderRandom {
		s.ResponderRandom[i] = byte(i)
	}
	for i := range s.ResponderEphPubKey {
		s.ResponderEphPubKey[i] = byte(i + 5)
	}

	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSigma2(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResponderSessionID != 9 || string(got.Encrypted2) != string(s.Encrypted2) {
		t.Fatal("sigma2 round trip mismatch")
	}
}

func TestSigma3RoundTrip(t *testing.T) {
	s := &Sigma3{Encrypted3: []byte{9, 8, 7}}
	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSigma3(data)
	if err != nil || string(got.Encrypted3) != string(s.Encrypted3) {
		t.Fatalf("sigma3 round trip failed: %v", err)
	}
}

func TestTBEData2RoundTrip(t *testing.T) {
	tbe := &TBEData2{ResponderNOC: []byte("noc")}
	tbe.Signature[0] = 0x42
	tbe.ResumptionID[0] = 0x11

	data, err := tbe.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeTBEData2(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.ResponderNOC) != "noc" || got.Signature != tbe.Signature || got.ResumptionID != tbe.ResumptionID {
		t.Fatal("TBEData2 round trip mismatch")
	}
}

func TestSigma2ResumeRoundTrip(t *testing.T) {
	s := &Sigma2Resume{ResponderSessionID: 3}
	s.ResumptionID[0] = 0x01
	s.Resume2MIC[0] = 0x02

	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSigma2Resume(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResumptionID != s.ResumptionID || got.Resume2MIC != s.Resume2MIC || got.ResponderSessionID != 3 {
		t.Fatal("Sigma2Resume round trip mismatch")
	}
}
