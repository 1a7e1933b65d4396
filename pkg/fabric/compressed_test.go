package fabric

import "testing"

func TestCompressedIDDeterministic(t *testing.T) {
	key := make([]byte, RootPublicKeySize)
	key[0] = 0x04
	for i := 1; i < len(key); i++ {
		key[i] = byte(i)
	}

	a, err := CompressedID(key, ID(1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := CompressedID(key, ID(1))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("compressed id must be deterministic")
	}

	c, err := CompressedID(key, ID(2))
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatal("different fabric ids must yield different compressed ids")
	}
}

func TestCompressedIDRejectsInvalidKeyLength(t *testing.T) {
	if _, err := CompressedID(make([]byte, 10), ID(1)); err != ErrInvalidRootPublicKey {
		t.Fatalf("want ErrInvalidRootPublicKey, got %v", err)
	}
}

func TestTableAddAndNextIndex(t *testing.T) {
	table := NewTable(2)
	idx, err := table.NextIndex()
	if err != nil || idx != IndexMin {
		t.Fatalf("got %v, %v", idx, err)
	}
	if err := table.Add(&Info{Index: idx}); err != nil {
		t.Fatal(err)
	}
	if err := table.Add(&Info{Index: idx}); err != ErrFabricExists {
		t.Fatalf("want ErrFabricExists, got %v", err)
	}
	if _, err := table.Get(idx); err != nil {
		t.Fatal(err)
	}
	table.Remove(idx)
	if _, err := table.Get(idx); err != ErrFabricNotFound {
		t.Fatalf("want ErrFabricNotFound, got %v", err)
	}
}
