package payload

import "testing"

// Test vectors from spec §224/§225.
func TestEncodeQRCodeSpecVectors(t *testing.T) {
	base := &SetupPayload{
		VendorID:                 0xFFF1,
		CommissioningFlow:        CommissioningFlowStandard,
		DiscoveryCapabilities:    DiscoveryCapabilityBLE,
		HasDiscoveryCapabilities: true,
		Discriminator:            NewLongDiscriminator(3840),
		Passcode:                 20202021,
	}

	cases := []struct {
		productID uint16
		want      string
	}{
		{0x8000, "MT:Y.K9042C00KA0648G00"},
		{0x8001, "MT:-24J042C00KA0648G00"},
	}

	for _, c := range cases {
		p := *base
		p.ProductID = c.productID
		got, err := EncodeQRCode(&p)
		if err != nil {
			t.Fatalf("EncodeQRCode(product=%#x): %v", c.productID, err)
		}
		if got != c.want {
			t.Fatalf("EncodeQRCode(product=%#x) = %q, want %q", c.productID, got, c.want)
		}

		decoded, err := ParseQRCode(got)
		if err != nil {
			t.Fatalf("ParseQRCode(%q): %v", got, err)
		}
		if decoded.VendorID != p.VendorID || decoded.ProductID != p.ProductID ||
			decoded.Passcode != p.Passcode || decoded.Discriminator.Long() != p.Discriminator.Long() {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, p)
		}
	}
}

func TestEncodeManualCodeSpecVector(t *testing.T) {
	p := &SetupPayload{
		Discriminator: NewLongDiscriminator(3840),
		Passcode:      20202021,
	}
	got, err := EncodeManualCode(p)
	if err != nil {
		t.Fatalf("EncodeManualCode: %v", err)
	}
	const want = "34970112332"
	if got != want {
		t.Fatalf("EncodeManualCode = %q, want %q", got, want)
	}

	decoded, err := ParseManualCode(want)
	if err != nil {
		t.Fatalf("ParseManualCode(%q): %v", want, err)
	}
	if decoded.Passcode != 20202021 {
		t.Fatalf("got passcode %d, want 20202021", decoded.Passcode)
	}
	if decoded.Discriminator.Short() != NewLongDiscriminator(3840).Short() {
		t.Fatalf("got short discriminator %d, want %d", decoded.Discriminator.Short(), NewLongDiscriminator(3840).Short())
	}
}

func TestParseManualCodeRejectsBadChecksum(t *testing.T) {
	if _, err := ParseManualCode("34970112333"); err != ErrManualCodeChecksum {
		t.Fatalf("got %v, want ErrManualCodeChecksum", err)
	}
}

func TestManualCodeWithVendorProduct(t *testing.T) {
	p := &SetupPayload{
		Discriminator:     NewLongDiscriminator(3840),
		Passcode:          20202021,
		VendorID:          0xFFF1,
		ProductID:         0x8000,
		CommissioningFlow: CommissioningFlowCustom,
	}
	code, err := EncodeManualCode(p)
	if err != nil {
		t.Fatalf("EncodeManualCode: %v", err)
	}
	if len(code) != 21 {
		t.Fatalf("got length %d, want 21", len(code))
	}

	decoded, err := ParseManualCode(code)
	if err != nil {
		t.Fatalf("ParseManualCode(%q): %v", code, err)
	}
	if decoded.VendorID != p.VendorID || decoded.ProductID != p.ProductID {
		t.Fatalf("got vendor/product %d/%d, want %d/%d", decoded.VendorID, decoded.ProductID, p.VendorID, p.ProductID)
	}
	if decoded.CommissioningFlow != CommissioningFlowCustom {
		t.Fatalf("got flow %v, want Custom", decoded.CommissioningFlow)
	}
}

func TestParseManualCodeFormattingStripped(t *testing.T) {
	p, err := ParseManualCode("3497-0112-332")
	if err != nil {
		t.Fatalf("ParseManualCode with dashes: %v", err)
	}
	if p.Passcode != 20202021 {
		t.Fatalf("got passcode %d, want 20202021", p.Passcode)
	}
}

func TestValidatePasscodeRejectsBlockedValues(t *testing.T) {
	for _, bad := range []uint32{0, 11111111, 12345678, 99999999} {
		if err := ValidatePasscode(bad); err == nil {
			t.Fatalf("ValidatePasscode(%d): expected error", bad)
		}
	}
	if err := ValidatePasscode(20202021); err != nil {
		t.Fatalf("ValidatePasscode(20202021): %v", err)
	}
}

func TestDiscriminatorMatches(t *testing.T) {
	long := NewLongDiscriminator(3840)
	short := NewShortDiscriminator(long.Short())
	if !short.Matches(3840) {
		t.Fatal("short discriminator derived from 3840 should match 3840")
	}
	if short.Matches(16) {
		t.Fatal("short discriminator derived from 3840 should not match a long value with a different top nibble")
	}
}

func TestExtractQRCodePayloadHandlesPercentDelimiters(t *testing.T) {
	qr := "Z%MT:Y.K9042C00KA0648G00%DDD"
	got := ExtractQRCodePayload(qr)
	const want = "Y.K9042C00KA0648G00"
	if got != want {
		t.Fatalf("ExtractQRCodePayload = %q, want %q", got, want)
	}
}
