package discovery

import (
	"reflect"
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// Matter spec §4.3.2.1: a node with compressed fabric id 2906-C908-D115-D362
// and node id 8FC7-7724-01CD-0696 has operational DNS-SD instance name
// 2906C908D115D362-8FC7772401CD0696.
func TestSpecVectorOperationalInstanceName(t *testing.T) {
	tests := []struct {
		name               string
		compressedFabricID [8]byte
		nodeID             fabric.NodeID
		want               string
	}{
		{
			name:               "spec §4.3.2.1 example",
			compressedFabricID: [8]byte{0x29, 0x06, 0xC9, 0x08, 0xD1, 0x15, 0xD3, 0x62},
			nodeID:             fabric.NodeID(0x8FC7772401CD0696),
			want:               "2906C908D115D362-8FC7772401CD0696",
		},
		{
			name:               "spec §4.3.2.7 example",
			compressedFabricID: [8]byte{0x87, 0xE1, 0xB0, 0x04, 0xE2, 0x35, 0xA1, 0x30},
			nodeID:             fabric.NodeID(0x8FC7772401CD0696),
			want:               "87E1B004E235A130-8FC7772401CD0696",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OperationalInstanceName(tt.compressedFabricID, tt.nodeID)
			if got != tt.want {
				t.Errorf("OperationalInstanceName() = %q, want %q", got, tt.want)
			}
			cfid, nodeID, err := ParseOperationalInstanceName(got)
			if err != nil {
				t.Fatalf("ParseOperationalInstanceName() error = %v", err)
			}
			if cfid != tt.compressedFabricID || nodeID != tt.nodeID {
				t.Errorf("round trip = %x/%x, want %x/%x", cfid, nodeID, tt.compressedFabricID, tt.nodeID)
			}
		})
	}
}

// Matter spec §4.3.1.4/4.3.1.5: discriminator 840 (0x348) filters through
// the "_S3" short-discriminator subtype.
func TestSpecVectorShortDiscriminator(t *testing.T) {
	tests := []struct {
		discriminator uint16
		want          uint8
	}{
		{0, 0},
		{840, 3},
		{0x100, 1},
		{0x200, 2},
		{4095, 15},
	}
	for _, tt := range tests {
		txt := CommissionableTXT{Discriminator: tt.discriminator}
		if got := txt.ShortDiscriminator(); got != tt.want {
			t.Errorf("ShortDiscriminator(%d) = %d, want %d", tt.discriminator, got, tt.want)
		}
	}
}

// Matter spec §4.3.1.4 example 1: "dns-sd -R DD200C20D25AE5F7
// _matterc._udp,_S3,_L840,_CM . 11111 D=840 CM=2" encodes TXT "D=840" "CM=2".
func TestSpecVectorCommissionableTXTMinimalExample(t *testing.T) {
	txt := CommissionableTXT{Discriminator: 840, CommissioningMode: CommissioningModeEnhanced}
	want := []string{"D=840", "CM=2"}
	if got := txt.Encode(); !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %v, want %v", got, want)
	}
}

func TestSpecVectorServiceTypes(t *testing.T) {
	if ServiceCommissionable != "_matterc._udp" {
		t.Errorf("ServiceCommissionable = %q", ServiceCommissionable)
	}
	if ServiceOperational != "_matter._tcp" {
		t.Errorf("ServiceOperational = %q", ServiceOperational)
	}
	if ServiceTypeCommissionable.ServiceString() != ServiceCommissionable {
		t.Errorf("ServiceString() = %q", ServiceTypeCommissionable.ServiceString())
	}
	if ServiceTypeOperational.ServiceString() != ServiceOperational {
		t.Errorf("ServiceString() = %q", ServiceTypeOperational.ServiceString())
	}
}

// Matter spec §4.3.1.5: discriminator is a 12-bit value (0-4095).
func TestSpecVectorMaxDiscriminator(t *testing.T) {
	if MaxDiscriminator != 4095 {
		t.Fatalf("MaxDiscriminator = %d, want 4095", MaxDiscriminator)
	}
	if err := (&CommissionableTXT{Discriminator: 4095}).Validate(); err != nil {
		t.Errorf("Validate() at max error = %v", err)
	}
	if err := (&CommissionableTXT{Discriminator: 4096}).Validate(); err != ErrInvalidDiscriminator {
		t.Errorf("Validate() above max error = %v, want %v", err, ErrInvalidDiscriminator)
	}
}

// Matter spec §4.3.1.9: device name is limited to 32 characters.
func TestSpecVectorMaxDeviceName(t *testing.T) {
	if MaxDeviceNameLength != 32 {
		t.Fatalf("MaxDeviceNameLength = %d, want 32", MaxDeviceNameLength)
	}
	ok := &CommissionableTXT{DeviceName: "12345678901234567890123456789012"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() at max length error = %v", err)
	}
	tooLong := &CommissionableTXT{DeviceName: "123456789012345678901234567890123"}
	if err := tooLong.Validate(); err != ErrInvalidDeviceName {
		t.Errorf("Validate() over max length error = %v, want %v", err, ErrInvalidDeviceName)
	}
}

// Matter spec §4.3.1.3: CM values 0 (not commissioning), 1 (basic), 2
// (enhanced, administrator-opened window).
func TestSpecVectorCommissioningModes(t *testing.T) {
	tests := []struct {
		mode  CommissioningMode
		value int
		str   string
	}{
		{CommissioningModeDisabled, 0, "Disabled"},
		{CommissioningModeBasic, 1, "Basic"},
		{CommissioningModeEnhanced, 2, "Enhanced"},
	}
	for _, tt := range tests {
		if int(tt.mode) != tt.value {
			t.Errorf("%s = %d, want %d", tt.str, tt.mode, tt.value)
		}
		if tt.mode.String() != tt.str {
			t.Errorf("String() = %q, want %q", tt.mode.String(), tt.str)
		}
	}
}
