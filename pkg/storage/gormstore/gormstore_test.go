package gormstore

import (
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestStoreFabricRoundTrip(t *testing.T) {
	s := newTestStore(t)

	info := &fabric.Info{
		Index:          2,
		RootPublicKey:  []byte{0x04, 0xAA, 0xBB},
		NOC:            []byte{0x15, 0x30, 0x01},
		ICAC:           []byte{0x15, 0x30, 0x02},
		NodeID:         fabric.NodeID(0x1122334455667788),
		FabricID:       fabric.ID(0x99AABBCCDDEEFF00),
		IPK:            make([]byte, 16),
		OperationalKey: make([]byte, 32),
		Label:          "Living Room",
	}

	if err := s.SaveFabric(info); err != nil {
		t.Fatalf("SaveFabric() error = %v", err)
	}

	loaded, err := s.LoadFabrics()
	if err != nil {
		t.Fatalf("LoadFabrics() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d fabrics, want 1", len(loaded))
	}
	got := loaded[0]
	if got.Index != info.Index || got.NodeID != info.NodeID || got.FabricID != info.FabricID || got.Label != info.Label {
		t.Errorf("round-tripped fabric = %+v, want %+v", got, info)
	}

	if err := s.DeleteFabric(info.Index); err != nil {
		t.Fatalf("DeleteFabric() error = %v", err)
	}
	loaded, _ = s.LoadFabrics()
	if len(loaded) != 0 {
		t.Errorf("LoadFabrics() after delete = %v, want empty", loaded)
	}
}

func TestStoreResumptionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	var id [casesession.ResumptionIDSize]byte
	id[0], id[1] = 0xCA, 0xFE

	rec := storage.ResumptionRecord{
		ID:             id,
		SharedSecret:   []byte{1, 2, 3, 4},
		FabricIndex:    5,
		PeerNodeID:     0xDEADBEEF,
		OperationalKey: make([]byte, 32),
	}

	if err := s.SaveResumptionRecord(rec); err != nil {
		t.Fatalf("SaveResumptionRecord() error = %v", err)
	}

	loaded, err := s.LoadResumptionRecords()
	if err != nil {
		t.Fatalf("LoadResumptionRecords() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].PeerNodeID != rec.PeerNodeID || loaded[0].ID != rec.ID {
		t.Fatalf("round-tripped record = %+v, want %+v", loaded, rec)
	}

	if err := s.DeleteResumptionRecord(id); err != nil {
		t.Fatalf("DeleteResumptionRecord() error = %v", err)
	}
	loaded, _ = s.LoadResumptionRecords()
	if len(loaded) != 0 {
		t.Errorf("LoadResumptionRecords() after delete = %v, want empty", loaded)
	}
}

func TestStoreDeleteFabricCascadesResumptions(t *testing.T) {
	s := newTestStore(t)

	var id [casesession.ResumptionIDSize]byte
	id[0] = 7
	s.SaveResumptionRecord(storage.ResumptionRecord{ID: id, FabricIndex: 9})
	s.SaveFabric(&fabric.Info{Index: 9})

	if err := s.DeleteFabric(9); err != nil {
		t.Fatalf("DeleteFabric() error = %v", err)
	}

	loaded, _ := s.LoadResumptionRecords()
	if len(loaded) != 0 {
		t.Errorf("resumption records for deleted fabric survived: %v", loaded)
	}
}

// TestStoreConformsToMemoryStore exercises the interface-conformance
// property named in spec §8: a GORM-backed store round-trips a fabric
// table entry the same way the in-memory store does.
func TestStoreConformsToMemoryStore(t *testing.T) {
	info := &fabric.Info{
		Index:         3,
		RootPublicKey: []byte{0x04, 0x01},
		NodeID:        fabric.NodeID(7),
		FabricID:      fabric.ID(8),
		IPK:           make([]byte, 16),
		Label:         "conformance",
	}

	stores := map[string]storage.Store{
		"memory": storage.NewMemoryStore(),
		"gorm":   newTestStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveFabric(info); err != nil {
				t.Fatalf("SaveFabric() error = %v", err)
			}
			loaded, err := store.LoadFabrics()
			if err != nil {
				t.Fatalf("LoadFabrics() error = %v", err)
			}
			if len(loaded) != 1 || loaded[0].NodeID != info.NodeID || loaded[0].Label != info.Label {
				t.Errorf("LoadFabrics() = %+v, want entry matching %+v", loaded, info)
			}
		})
	}
}
