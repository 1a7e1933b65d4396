package storage

import (
	"sync"

	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
)

// MemoryStore is an in-memory Store. Data does not survive process exit;
// it exists for tests and as the default when no DSN is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	fabrics     map[fabric.Index]*fabric.Info
	resumptions map[[casesession.ResumptionIDSize]byte]ResumptionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fabrics:     make(map[fabric.Index]*fabric.Info),
		resumptions: make(map[[casesession.ResumptionIDSize]byte]ResumptionRecord),
	}
}

func (m *MemoryStore) LoadFabrics() ([]*fabric.Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*fabric.Info, 0, len(m.fabrics))
	for _, info := range m.fabrics {
		out = append(out, info.Clone())
	}
	return out, nil
}

func (m *MemoryStore) SaveFabric(info *fabric.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fabrics[info.Index] = info.Clone()
	return nil
}

func (m *MemoryStore) DeleteFabric(index fabric.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fabrics, index)
	for id, rec := range m.resumptions {
		if rec.FabricIndex == index {
			delete(m.resumptions, id)
		}
	}
	return nil
}

func (m *MemoryStore) LoadResumptionRecords() ([]ResumptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ResumptionRecord, 0, len(m.resumptions))
	for _, rec := range m.resumptions {
		out = append(out, rec.clone())
	}
	return out, nil
}

func (m *MemoryStore) SaveResumptionRecord(rec ResumptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumptions[rec.ID] = rec.clone()
	return nil
}

func (m *MemoryStore) DeleteResumptionRecord(id [casesession.ResumptionIDSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resumptions, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
