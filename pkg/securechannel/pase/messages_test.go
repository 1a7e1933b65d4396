package pase

import (
	"testing"

	"github.com/mkniffen/matterd/pkg/tlv"
)

func TestPBKDFParamRequestRoundTrip(t *testing.T) {
	req := &PBKDFParamRequest{
		InitiatorSessionID: 42,
		PasscodeID:         DefaultPasscodeID,
		HasPBKDFParameters: true,
		MRPParams: &MRPParameters{
			IdleRetransTimeoutMS:   500,
			ActiveRetransTimeoutMS: 300,
			ActiveThresholdMS:      4000,
		},
	}
	for i := range req.InitiatorRandom {
		req.InitiatorRandom[i] = byte(i)
	}

	data, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodePBKDFParamRequest(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.InitiatorRandom != req.InitiatorRandom {
		t.Fatal("random mismatch")
	}
	if got.InitiatorSessionID != req.InitiatorSessionID || got.PasscodeID != req.PasscodeID {
		t.Fatal("scalar field mismatch")
	}
	if !got.HasPBKDFParameters {
		t.Fatal("expected HasPBKDFParameters true")
	}
	if got.MRPParams == nil || got.MRPParams.IdleRetransTimeoutMS != 500 {
		t.Fatal("MRP params not round-tripped")
	}
}

func TestPBKDFParamResponseWithoutMRPOrParams(t *testing.T) {
	resp := &PBKDFParamResponse{ResponderSessionID: 7}
	data, err := resp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodePBKDFParamResponse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResponderSessionID != 7 {
		t.Fatal("session id mismatch")
	}
	if got.MRPParams != nil || got.PBKDFParams != nil {
		t.Fatal("expected absent optional fields to decode as nil")
	}
}

func TestPakeMessagesRoundTrip(t *testing.T) {
	pake1 := &Pake1{PA: []byte{1, 2, 3}}
	data, _ := pake1.Encode()
	got1, err := DecodePake1(data)
	if err != nil || string(got1.PA) != string(pake1.PA) {
		t.Fatalf("Pake1 round trip failed: %v", err)
	}

	pake2 := &Pake2{PB: []byte{4, 5}, CB: []byte{6, 7, 8}}
	data, _ = pake2.Encode()
	got2, err := DecodePake2(data)
	if err != nil || string(got2.PB) != string(pake2.PB) || string(got2.CB) != string(pake2.CB) {
		t.Fatalf("Pake2 round trip failed: %v", err)
	}

	pake3 := &Pake3{CA: []byte{9, 9, 9}}
	data, _ = pake3.Encode()
	got3, err := DecodePake3(data)
	if err != nil || string(got3.CA) != string(pake3.CA) {
		t.Fatalf("Pake3 round trip failed: %v", err)
	}
}

func TestDecodePake1RejectsMissingField(t *testing.T) {
	empty, err := tlv.Encode(tlv.Struct(tlv.AnonymousTag()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodePake1(empty); err == nil {
		t.Fatal("expected decode error for struct with no fields")
	}
}
