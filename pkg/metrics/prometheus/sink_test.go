package prometheus

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	InitRegistry(nil)
	if s := New(); s != nil {
		t.Fatalf("New() = %v, want nil when registry not installed", s)
	}
}

func TestNewRecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	InitRegistry(reg)
	defer InitRegistry(nil)

	sink := New()
	if sink == nil {
		t.Fatal("New() = nil, want a Sink once registry is installed")
	}

	sink.SetActiveSessions(3)
	sink.SetActiveExchanges(5)
	sink.RecordRetransmit()
	sink.RecordRetransmit()
	sink.SetActiveSubscriptions(2)
	sink.RecordIMError(0x7E)
	sink.RecordBytesSent("UDP", 100)
	sink.RecordBytesSent("UDP", 50)
	sink.RecordBytesReceived("TCP", 200)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	if got := byName["matterd_active_sessions"].GetMetric()[0].GetGauge().GetValue(); got != 3 {
		t.Errorf("matterd_active_sessions = %v, want 3", got)
	}
	if got := byName["matterd_mrp_retransmits_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("matterd_mrp_retransmits_total = %v, want 2", got)
	}

	imErrors := byName["matterd_im_errors_total"].GetMetric()
	if len(imErrors) != 1 {
		t.Fatalf("got %d matterd_im_errors_total series, want 1", len(imErrors))
	}
	var found bool
	for _, label := range imErrors[0].GetLabel() {
		if label.GetName() == "status_code" && label.GetValue() == "0x7E" {
			found = true
		}
	}
	if !found {
		t.Errorf("matterd_im_errors_total labels = %v, want status_code=0x7E", imErrors[0].GetLabel())
	}

	bytesSent := byName["matterd_transport_bytes_sent_total"].GetMetric()
	if len(bytesSent) != 1 {
		t.Fatalf("got %d matterd_transport_bytes_sent_total series, want 1", len(bytesSent))
	}
	if got := bytesSent[0].GetCounter().GetValue(); got != 150 {
		t.Errorf("matterd_transport_bytes_sent_total = %v, want 150", got)
	}
	if got := byName["matterd_transport_bytes_received_total"].GetMetric()[0].GetCounter().GetValue(); got != 200 {
		t.Errorf("matterd_transport_bytes_received_total = %v, want 200", got)
	}
}

func TestStatusCodeLabel(t *testing.T) {
	cases := map[uint8]string{
		0x00: "0x00",
		0x7E: "0x7E",
		0xFF: "0xFF",
	}
	for code, want := range cases {
		if got := statusCodeLabel(code); got != want {
			t.Errorf("statusCodeLabel(%#x) = %q, want %q", code, got, want)
		}
	}
}
