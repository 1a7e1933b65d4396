package message

import "testing"

func TestStatusReportRoundTrip(t *testing.T) {
	s := SessionEstablishmentSuccess()
	buf := s.Encode()
	if len(buf) != StatusReportSize {
		t.Fatalf("encoded size = %d, want %d", len(buf), StatusReportSize)
	}
	got, err := DecodeStatusReport(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Fatalf("got %+v, want %+v", got, s)
	}
	if !got.IsSuccess() {
		t.Fatal("expected success")
	}
}

func TestStatusReportFailureIsNotSuccess(t *testing.T) {
	if Failure().IsSuccess() {
		t.Fatal("failure report must not report success")
	}
}
