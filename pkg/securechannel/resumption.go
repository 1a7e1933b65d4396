package securechannel

import (
	"fmt"
	"sync"

	"github.com/mkniffen/matterd/pkg/crypto"
	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/storage"
)

// resumptionRecord is what a completed CASE handshake leaves behind for a
// future Sigma1-Resume to pick up (spec §4.14.3): the raw ECDH shared
// secret and enough fabric context to rebuild the resumption keys without
// rerunning certificate exchange.
type resumptionRecord struct {
	sharedSecret   []byte
	fabricInfo     *fabric.Info
	operationalKey *crypto.KeyPair
	peerNodeID     uint64
}

// ResumptionStore holds the records CASE session resumption needs,
// keeping every fabric's operational key reconstructable by scalar so a
// resumed handshake never has to touch the NOC/ICAC chain again. A
// responder looks a record up by the resumption id a Sigma1 presents;
// an initiator instead needs the latest record for the peer it's about
// to dial, hence peerIndex.
type ResumptionStore struct {
	mu        sync.Mutex
	records   map[[casesession.ResumptionIDSize]byte]resumptionRecord
	peerIndex map[uint64][casesession.ResumptionIDSize]byte

	// backing persists every Save/Remove through to storage.Store, so a
	// restarted node can still answer a Sigma1-Resume it never dropped
	// from the peer's point of view. Nil means in-memory only.
	backing storage.Store
}

// NewResumptionStore builds an empty in-memory resumption store.
func NewResumptionStore() *ResumptionStore {
	return &ResumptionStore{
		records:   make(map[[casesession.ResumptionIDSize]byte]resumptionRecord),
		peerIndex: make(map[uint64][casesession.ResumptionIDSize]byte),
	}
}

// NewPersistentResumptionStore builds a ResumptionStore that loads its
// initial contents from backing and persists every later Save/Remove
// back to it. fabrics resolves a loaded record's fabric.Index back to
// the fabric.Info a resumed handshake needs; records naming a fabric no
// longer in fabrics are dropped (the fabric was removed since).
func NewPersistentResumptionStore(backing storage.Store, fabrics *fabric.Table) (*ResumptionStore, error) {
	s := &ResumptionStore{
		records:   make(map[[casesession.ResumptionIDSize]byte]resumptionRecord),
		peerIndex: make(map[uint64][casesession.ResumptionIDSize]byte),
		backing:   backing,
	}

	recs, err := backing.LoadResumptionRecords()
	if err != nil {
		return nil, fmt.Errorf("securechannel: loading resumption records: %w", err)
	}
	for _, rec := range recs {
		info, err := fabrics.Get(rec.FabricIndex)
		if err != nil {
			continue
		}
		key, err := crypto.KeyPairFromScalar(rec.OperationalKey)
		if err != nil {
			continue
		}
		s.records[rec.ID] = resumptionRecord{
			sharedSecret:   rec.SharedSecret,
			fabricInfo:     info,
			operationalKey: key,
			peerNodeID:     rec.PeerNodeID,
		}
		s.peerIndex[rec.PeerNodeID] = rec.ID
	}
	return s, nil
}

// Save records the state a completed handshake offers for next time,
// superseding any earlier record this store held for the same peer.
func (s *ResumptionStore) Save(id [casesession.ResumptionIDSize]byte, sharedSecret []byte, info *fabric.Info, operationalKey *crypto.KeyPair, peerNodeID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.peerIndex[peerNodeID]; ok {
		delete(s.records, prev)
		if s.backing != nil {
			s.backing.DeleteResumptionRecord(prev)
		}
	}
	s.records[id] = resumptionRecord{
		sharedSecret:   append([]byte(nil), sharedSecret...),
		fabricInfo:     info,
		operationalKey: operationalKey,
		peerNodeID:     peerNodeID,
	}
	s.peerIndex[peerNodeID] = id

	if s.backing != nil {
		s.backing.SaveResumptionRecord(storage.ResumptionRecord{
			ID:             id,
			SharedSecret:   sharedSecret,
			FabricIndex:    info.Index,
			PeerNodeID:     peerNodeID,
			OperationalKey: operationalKey.PrivateKeyBytes(),
		})
	}
}

// Remove discards a resumption record, e.g. once its handshake fails or
// the fabric is removed.
func (s *ResumptionStore) Remove(id [casesession.ResumptionIDSize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		if s.peerIndex[rec.peerNodeID] == id {
			delete(s.peerIndex, rec.peerNodeID)
		}
		delete(s.records, id)
		if s.backing != nil {
			s.backing.DeleteResumptionRecord(id)
		}
	}
}

// FindByPeer returns the most recent resumption record saved for
// peerNodeID, for an initiator about to dial that peer again.
func (s *ResumptionStore) FindByPeer(peerNodeID uint64) (id [casesession.ResumptionIDSize]byte, sharedSecret []byte, info *fabric.Info, operationalKey *crypto.KeyPair, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid, ok := s.peerIndex[peerNodeID]
	if !ok {
		return id, nil, nil, nil, false
	}
	rec := s.records[rid]
	return rid, rec.sharedSecret, rec.fabricInfo, rec.operationalKey, true
}

// lookupFunc adapts the store to casesession.ResumptionLookupFunc.
func (s *ResumptionStore) lookupFunc() casesession.ResumptionLookupFunc {
	return func(id [casesession.ResumptionIDSize]byte) ([]byte, *fabric.Info, *crypto.KeyPair, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.records[id]
		if !ok {
			return nil, nil, nil, false
		}
		return rec.sharedSecret, rec.fabricInfo, rec.operationalKey, true
	}
}
