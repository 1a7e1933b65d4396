package discovery

import (
	"net"
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
)

func TestOperationalInstanceNameRoundTrip(t *testing.T) {
	compressedFabricID := [8]byte{0x87, 0xE1, 0xB0, 0x04, 0xE2, 0x35, 0xA1, 0x30}
	nodeID := fabric.NodeID(0x8FC7772401CD0696)

	name := OperationalInstanceName(compressedFabricID, nodeID)
	want := "87E1B004E235A130-8FC7772401CD0696"
	if name != want {
		t.Fatalf("OperationalInstanceName() = %q, want %q", name, want)
	}

	gotFabric, gotNode, err := ParseOperationalInstanceName(name)
	if err != nil {
		t.Fatalf("ParseOperationalInstanceName() error = %v", err)
	}
	if gotFabric != compressedFabricID {
		t.Errorf("fabric id = %x, want %x", gotFabric, compressedFabricID)
	}
	if gotNode != nodeID {
		t.Errorf("node id = %x, want %x", gotNode, nodeID)
	}
}

func TestParseOperationalInstanceNameRejectsBadFormat(t *testing.T) {
	cases := []string{
		"",
		"too-short",
		"87E1B004E235A130_8FC7772401CD0696",
		"87E1B004E235A130-8FC7772401CD069G",
	}
	for _, c := range cases {
		if _, _, err := ParseOperationalInstanceName(c); err != ErrInvalidInstanceName {
			t.Errorf("ParseOperationalInstanceName(%q) error = %v, want %v", c, err, ErrInvalidInstanceName)
		}
	}
}

func TestSortIPsByPreference(t *testing.T) {
	linkLocal := net.ParseIP("fe80::1")
	uniqueLocal := net.ParseIP("fd00::1")
	global := net.ParseIP("2001:db8::1")

	sorted := SortIPsByPreference([]net.IP{linkLocal, uniqueLocal, global})
	if !sorted[0].Equal(global) {
		t.Errorf("sorted[0] = %v, want global %v", sorted[0], global)
	}
	if !sorted[1].Equal(uniqueLocal) {
		t.Errorf("sorted[1] = %v, want unique-local %v", sorted[1], uniqueLocal)
	}
	if !sorted[2].Equal(linkLocal) {
		t.Errorf("sorted[2] = %v, want link-local %v", sorted[2], linkLocal)
	}
}

func TestFilterIPv4IPv6(t *testing.T) {
	v4 := net.ParseIP("192.168.1.1")
	v6 := net.ParseIP("2001:db8::1")
	ips := []net.IP{v4, v6}

	if got := FilterIPv4(ips); len(got) != 1 || !got[0].Equal(v4) {
		t.Errorf("FilterIPv4() = %v, want [%v]", got, v4)
	}
	if got := FilterIPv6(ips); len(got) != 1 || !got[0].Equal(v6) {
		t.Errorf("FilterIPv6() = %v, want [%v]", got, v6)
	}
}
