package payload

import "testing"

func TestParseQRCodeRejectsMissingPrefix(t *testing.T) {
	if _, err := ParseQRCode("Y.K9042C00KA0648G00"); err != ErrQRCodeMissingPrefix {
		t.Fatalf("got %v, want ErrQRCodeMissingPrefix", err)
	}
}

func TestParseQRCodesSplitsConcatenatedPayloads(t *testing.T) {
	one, err := EncodeQRCode(&SetupPayload{
		VendorID:                 1,
		ProductID:                2,
		HasDiscoveryCapabilities: true,
		DiscoveryCapabilities:    DiscoveryCapabilityOnNetwork,
		Discriminator:            NewLongDiscriminator(100),
		Passcode:                 20202021,
	})
	if err != nil {
		t.Fatalf("EncodeQRCode: %v", err)
	}
	two, err := EncodeQRCode(&SetupPayload{
		VendorID:                 3,
		ProductID:                4,
		HasDiscoveryCapabilities: true,
		DiscoveryCapabilities:    DiscoveryCapabilityBLE,
		Discriminator:            NewLongDiscriminator(200),
		Passcode:                 20202022,
	})
	if err != nil {
		t.Fatalf("EncodeQRCode: %v", err)
	}

	combined := one[len(QRCodePrefix):] + "*" + two[len(QRCodePrefix):]
	payloads, err := ParseQRCodes(QRCodePrefix + combined)
	if err != nil {
		t.Fatalf("ParseQRCodes: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads))
	}
	if payloads[0].VendorID != 1 || payloads[1].VendorID != 3 {
		t.Fatalf("got vendor ids %d, %d, want 1, 3", payloads[0].VendorID, payloads[1].VendorID)
	}
}

func TestEncodeQRCodeRejectsShortDiscriminator(t *testing.T) {
	p := &SetupPayload{
		VendorID:                 1,
		ProductID:                1,
		HasDiscoveryCapabilities: true,
		DiscoveryCapabilities:    DiscoveryCapabilityOnNetwork,
		Discriminator:            NewShortDiscriminator(5),
		Passcode:                 20202021,
	}
	if _, err := EncodeQRCode(p); err == nil {
		t.Fatal("expected error encoding a QR payload with a short discriminator")
	}
}
