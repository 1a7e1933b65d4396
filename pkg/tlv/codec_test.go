package tlv

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	enc, err := Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, n, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(enc) {
		t.Fatalf("decode consumed %d of %d bytes", n, len(enc))
	}
	enc2, err := Encode(dec)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(enc, enc2) {
		t.Fatalf("re-encode mismatch: %x vs %x", enc, enc2)
	}
	return dec
}

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Int(AnonymousTag(), 0),
		Int(AnonymousTag(), -1),
		Int(ContextTag(1), 300),
		Uint(ContextTag(2), 70000),
		Bool(ContextTag(3), true),
		Bool(ContextTag(4), false),
		Float32Val(ContextTag(5), 3.5),
		Float64Val(ContextTag(6), -2.25),
		String(ContextTag(7), "hello matter"),
		Bytes(ContextTag(8), []byte{1, 2, 3}),
		Null(ContextTag(9)),
	}
	for _, c := range cases {
		roundTrip(t, c)
	}
}

func TestRoundTripStructCanonicalOrder(t *testing.T) {
	s := Struct(AnonymousTag(),
		Uint(ContextTag(5), 1),
		Uint(ContextTag(1), 2),
		Uint(ContextTag(3), 3),
	)
	dec := roundTrip(t, s)
	var order []uint8
	for _, f := range dec.Elems() {
		n, _ := f.Tag.IsContext()
		order = append(order, n)
	}
	want := []uint8{1, 3, 5}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("struct field order = %v, want ascending %v", order, want)
		}
	}
}

func TestRoundTripNestedArrayAndList(t *testing.T) {
	v := Struct(AnonymousTag(),
		Array(ContextTag(1), Uint(AnonymousTag(), 1), Uint(AnonymousTag(), 2)),
		List(ContextTag(2), Uint(ContextTag(0), 9), Uint(AnonymousTag(), 10)),
	)
	roundTrip(t, v)
}

func TestMinimalWidthSelection(t *testing.T) {
	enc, _ := Encode(Uint(AnonymousTag(), 5))
	if ElementType(enc[0]&elementTypeMask) != ElementTypeUInt8 {
		t.Fatalf("expected UInt8 width for small value")
	}
	enc, _ = Encode(Int(AnonymousTag(), -200))
	if ElementType(enc[0]&elementTypeMask) != ElementTypeInt16 {
		t.Fatalf("expected Int16 width for -200")
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, _, err := Decode(nil); err != ErrTruncated {
		t.Fatalf("want ErrTruncated, got %v", err)
	}
	// UInt32 control octet with no value bytes.
	if _, _, err := Decode([]byte{byte(ElementTypeUInt32)}); err != ErrTruncated {
		t.Fatalf("want ErrTruncated, got %v", err)
	}
}

func TestDecodeMissingEndOfContainer(t *testing.T) {
	data := []byte{byte(ElementTypeStruct)}
	if _, _, err := Decode(data); err != ErrContainerMissing {
		t.Fatalf("want ErrContainerMissing, got %v", err)
	}
}
