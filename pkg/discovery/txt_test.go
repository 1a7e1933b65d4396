package discovery

import (
	"testing"
	"time"

	"github.com/mkniffen/matterd/pkg/fabric"
)

func TestCommissionableTXTEncodeParseRoundTrip(t *testing.T) {
	txt := CommissionableTXT{
		Discriminator:     3840,
		CommissioningMode: CommissioningModeEnhanced,
		VendorID:          fabric.VendorID(0xFFF1),
		ProductID:         0x8000,
		DeviceName:        "Light",
		IdleInterval:      500 * time.Millisecond,
		ActiveInterval:    300 * time.Millisecond,
		TCPSupported:      true,
	}

	encoded := txt.Encode()
	parsed, err := ParseCommissionableTXT(encoded)
	if err != nil {
		t.Fatalf("ParseCommissionableTXT() error = %v", err)
	}
	if parsed.Discriminator != txt.Discriminator {
		t.Errorf("Discriminator = %d, want %d", parsed.Discriminator, txt.Discriminator)
	}
	if parsed.VendorID != txt.VendorID || parsed.ProductID != txt.ProductID {
		t.Errorf("VendorID/ProductID = %d/%d, want %d/%d", parsed.VendorID, parsed.ProductID, txt.VendorID, txt.ProductID)
	}
	if parsed.DeviceName != txt.DeviceName {
		t.Errorf("DeviceName = %q, want %q", parsed.DeviceName, txt.DeviceName)
	}
	if parsed.IdleInterval != txt.IdleInterval || parsed.ActiveInterval != txt.ActiveInterval {
		t.Errorf("intervals = %v/%v, want %v/%v", parsed.IdleInterval, parsed.ActiveInterval, txt.IdleInterval, txt.ActiveInterval)
	}
	if !parsed.TCPSupported {
		t.Error("TCPSupported = false, want true")
	}
}

func TestCommissionableTXTValidateRejectsOversizedDiscriminator(t *testing.T) {
	txt := CommissionableTXT{Discriminator: MaxDiscriminator + 1}
	if err := txt.Validate(); err != ErrInvalidDiscriminator {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidDiscriminator)
	}
}

func TestCommissionableTXTValidateRejectsOversizedDeviceName(t *testing.T) {
	txt := CommissionableTXT{DeviceName: "this device name is far too long to fit in the txt record"}
	if err := txt.Validate(); err != ErrInvalidDeviceName {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidDeviceName)
	}
}

func TestCommissionableTXTShortDiscriminator(t *testing.T) {
	txt := CommissionableTXT{Discriminator: 3840}
	if got := txt.ShortDiscriminator(); got != 15 {
		t.Errorf("ShortDiscriminator() = %d, want 15", got)
	}
}

func TestOperationalTXTEncodeParseRoundTrip(t *testing.T) {
	txt := OperationalTXT{IdleInterval: time.Second, ActiveInterval: 200 * time.Millisecond, TCPSupported: true}
	parsed, err := ParseOperationalTXT(txt.Encode())
	if err != nil {
		t.Fatalf("ParseOperationalTXT() error = %v", err)
	}
	if parsed.IdleInterval != txt.IdleInterval || parsed.ActiveInterval != txt.ActiveInterval || !parsed.TCPSupported {
		t.Errorf("got %+v, want %+v", parsed, txt)
	}
}

func TestParseCommissionableTXTRejectsMalformedVendorProduct(t *testing.T) {
	_, err := ParseCommissionableTXT([]string{"VP=not-a-number"})
	if err != ErrInvalidTXTRecord {
		t.Errorf("error = %v, want %v", err, ErrInvalidTXTRecord)
	}
}
