// Package storage defines the persistence boundary for a node's fabric
// table and CASE resumption cache (spec §3, §4.7), plus an in-memory
// reference implementation. A SQLite-backed implementation lives in
// pkg/storage/gormstore.
package storage

import (
	"errors"

	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
)

var ErrNotFound = errors.New("storage: record not found")

// ResumptionRecord is a persisted CASE resumption record: enough state to
// answer a future Sigma1-Resume without rerunning certificate exchange.
type ResumptionRecord struct {
	ID             [casesession.ResumptionIDSize]byte
	SharedSecret   []byte
	FabricIndex    fabric.Index
	PeerNodeID     uint64
	OperationalKey []byte // raw 32-byte P-256 private scalar
}

func (r ResumptionRecord) clone() ResumptionRecord {
	r.SharedSecret = append([]byte(nil), r.SharedSecret...)
	r.OperationalKey = append([]byte(nil), r.OperationalKey...)
	return r
}

// Store persists everything a node needs to survive a restart without
// recommissioning. Implementations must be safe for concurrent use.
type Store interface {
	LoadFabrics() ([]*fabric.Info, error)
	SaveFabric(info *fabric.Info) error
	DeleteFabric(index fabric.Index) error

	LoadResumptionRecords() ([]ResumptionRecord, error)
	SaveResumptionRecord(rec ResumptionRecord) error
	DeleteResumptionRecord(id [casesession.ResumptionIDSize]byte) error
}
