package node

import (
	"strings"
	"testing"

	"github.com/mkniffen/matterd/pkg/storage"
	"github.com/mkniffen/matterd/pkg/transport"
)

func testConfig() Config {
	return Config{
		Port:          5540,
		Discriminator: 3840,
		Passcode:      20202021,
		DeviceName:    "Test Light",
		VendorID:      0xFFF1,
		ProductID:     0x8001,
		Store:         storage.NewMemoryStore(),
	}
}

func TestNewBuildsEveryLayer(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if n.sessions == nil || n.fabrics == nil || n.exchangeMgr == nil || n.secureChannel == nil || n.imServer == nil {
		t.Fatal("New() left a core layer nil")
	}
	if n.State() != StateStopped {
		t.Errorf("State() = %v, want %v before Start", n.State(), StateStopped)
	}
}

func TestSetupPayloadBeforeStart(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	qrCode, manualCode, err := n.SetupPayload()
	if err != nil {
		t.Fatalf("SetupPayload() error = %v", err)
	}
	if !strings.HasPrefix(qrCode, "MT:") {
		t.Errorf("qrCode = %q, want MT: prefix", qrCode)
	}
	if manualCode == "" {
		t.Error("manualCode is empty")
	}
}

func TestSendBeforeStartErrors(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := n.Send(nil, transport.PeerAddress{}); err == nil {
		t.Error("Send() before Start: want error, got nil")
	}
}

func TestACLReturnsSameCluster(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if n.ACL() != n.aclCluster {
		t.Error("ACL() did not return the node's access control cluster")
	}
}
