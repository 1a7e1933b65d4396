package storage

import (
	"testing"

	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
)

func TestMemoryStoreFabricLifecycle(t *testing.T) {
	s := NewMemoryStore()
	info := &fabric.Info{
		Index:         1,
		RootPublicKey: []byte{0x04, 0x01, 0x02},
		NodeID:        fabric.NodeID(42),
		FabricID:      fabric.ID(7),
		IPK:           make([]byte, 16),
		Label:         "test",
	}

	if err := s.SaveFabric(info); err != nil {
		t.Fatalf("SaveFabric() error = %v", err)
	}

	loaded, err := s.LoadFabrics()
	if err != nil {
		t.Fatalf("LoadFabrics() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].NodeID != info.NodeID {
		t.Fatalf("LoadFabrics() = %+v, want one entry matching %+v", loaded, info)
	}

	// Mutating the loaded copy must not affect the store's copy.
	loaded[0].Label = "mutated"
	again, _ := s.LoadFabrics()
	if again[0].Label != "test" {
		t.Errorf("store was mutated through a loaded copy: Label = %q", again[0].Label)
	}

	if err := s.DeleteFabric(1); err != nil {
		t.Fatalf("DeleteFabric() error = %v", err)
	}
	loaded, _ = s.LoadFabrics()
	if len(loaded) != 0 {
		t.Errorf("LoadFabrics() after delete = %v, want empty", loaded)
	}
}

func TestMemoryStoreResumptionLifecycle(t *testing.T) {
	s := NewMemoryStore()
	var id [casesession.ResumptionIDSize]byte
	id[0] = 0xAB

	rec := ResumptionRecord{
		ID:             id,
		SharedSecret:   []byte{1, 2, 3},
		FabricIndex:    1,
		PeerNodeID:     99,
		OperationalKey: make([]byte, 32),
	}
	if err := s.SaveResumptionRecord(rec); err != nil {
		t.Fatalf("SaveResumptionRecord() error = %v", err)
	}

	loaded, err := s.LoadResumptionRecords()
	if err != nil {
		t.Fatalf("LoadResumptionRecords() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].PeerNodeID != 99 {
		t.Fatalf("LoadResumptionRecords() = %+v", loaded)
	}

	if err := s.DeleteResumptionRecord(id); err != nil {
		t.Fatalf("DeleteResumptionRecord() error = %v", err)
	}
	loaded, _ = s.LoadResumptionRecords()
	if len(loaded) != 0 {
		t.Errorf("LoadResumptionRecords() after delete = %v, want empty", loaded)
	}
}

func TestMemoryStoreDeleteFabricCascadesResumptions(t *testing.T) {
	s := NewMemoryStore()
	var id [casesession.ResumptionIDSize]byte
	id[0] = 1
	s.SaveResumptionRecord(ResumptionRecord{ID: id, FabricIndex: 3})

	s.DeleteFabric(3)

	loaded, _ := s.LoadResumptionRecords()
	if len(loaded) != 0 {
		t.Errorf("resumption records for deleted fabric survived: %v", loaded)
	}
}
