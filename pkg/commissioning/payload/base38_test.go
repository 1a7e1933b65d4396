package payload

import "testing"

func TestBase38RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xFF},
		{0x01, 0x02},
		{0x01, 0x02, 0x03},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B},
	}
	for _, data := range cases {
		encoded := EncodeBase38(data)
		if len(encoded) != Base38Len(len(data)) {
			t.Fatalf("Base38Len(%d) = %d, encoded length = %d", len(data), Base38Len(len(data)), len(encoded))
		}
		decoded, err := DecodeBase38(encoded)
		if err != nil {
			t.Fatalf("DecodeBase38(%q): %v", encoded, err)
		}
		if len(decoded) != len(data) {
			t.Fatalf("round trip length mismatch: got %d, want %d", len(decoded), len(data))
		}
		for i := range data {
			if decoded[i] != data[i] {
				t.Fatalf("round trip mismatch at byte %d: got %#x, want %#x", i, decoded[i], data[i])
			}
		}
	}
}

func TestDecodeBase38RejectsBadChar(t *testing.T) {
	if _, err := DecodeBase38("a!"); err != ErrBase38BadChar {
		t.Fatalf("got %v, want ErrBase38BadChar", err)
	}
}

func TestDecodeBase38RejectsBadLength(t *testing.T) {
	if _, err := DecodeBase38("A"); err != ErrBase38BadLength {
		t.Fatalf("got %v, want ErrBase38BadLength", err)
	}
}

func TestDecodeBase38IsCaseInsensitive(t *testing.T) {
	upper := EncodeBase38([]byte{0x12, 0x34, 0x56})
	lower := ""
	for _, c := range upper {
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		lower += string(c)
	}
	got, err := DecodeBase38(lower)
	if err != nil {
		t.Fatalf("DecodeBase38(%q): %v", lower, err)
	}
	want, _ := DecodeBase38(upper)
	if string(got) != string(want) {
		t.Fatalf("case-insensitive decode mismatch: %v vs %v", got, want)
	}
}
