// Package gormstore is a SQLite-backed implementation of storage.Store,
// built on GORM (spec §3 persistence), for nodes that need their fabric
// table and CASE resumption cache to survive a restart.
package gormstore

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkniffen/matterd/pkg/fabric"
	casesession "github.com/mkniffen/matterd/pkg/securechannel/case"
	"github.com/mkniffen/matterd/pkg/storage"
)

// Store implements storage.Store against a SQLite database opened via
// GORM. Every call runs its own statement; callers needing atomic
// multi-record updates should use DB() directly.
type Store struct {
	db *gorm.DB
}

// New opens (creating if necessary) the SQLite database at dsn and runs
// GORM's AutoMigrate against the fabric/resumption schema. dsn is passed
// straight to the sqlite driver, so a bare file path or a DSN carrying
// query-string pragmas (e.g. "node.db?_pragma=journal_mode(WAL)") both
// work.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying GORM connection for callers that need
// transactional control beyond the Store interface.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) LoadFabrics() ([]*fabric.Info, error) {
	var rows []fabricModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: load fabrics: %w", err)
	}
	out := make([]*fabric.Info, len(rows))
	for i, row := range rows {
		out[i] = row.toInfo()
	}
	return out, nil
}

func (s *Store) SaveFabric(info *fabric.Info) error {
	row := fabricModelFromInfo(info)
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("gormstore: save fabric %d: %w", info.Index, err)
	}
	return nil
}

func (s *Store) DeleteFabric(index fabric.Index) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&fabricModel{}, "\"index\" = ?", uint8(index)).Error; err != nil {
			return err
		}
		return tx.Delete(&resumptionModel{}, "fabric_index = ?", uint8(index)).Error
	})
}

func (s *Store) LoadResumptionRecords() ([]storage.ResumptionRecord, error) {
	var rows []resumptionModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: load resumption records: %w", err)
	}
	out := make([]storage.ResumptionRecord, len(rows))
	for i, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func (s *Store) SaveResumptionRecord(rec storage.ResumptionRecord) error {
	row := resumptionModelFromRecord(rec)
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("gormstore: save resumption record: %w", err)
	}
	return nil
}

func (s *Store) DeleteResumptionRecord(id [casesession.ResumptionIDSize]byte) error {
	if err := s.db.Delete(&resumptionModel{}, "id = ?", id[:]).Error; err != nil {
		return fmt.Errorf("gormstore: delete resumption record: %w", err)
	}
	return nil
}

func fabricModelFromInfo(info *fabric.Info) fabricModel {
	return fabricModel{
		Index:          uint8(info.Index),
		RootPublicKey:  info.RootPublicKey,
		NOC:            info.NOC,
		ICAC:           info.ICAC,
		NodeID:         uint64(info.NodeID),
		FabricID:       uint64(info.FabricID),
		IPK:            info.IPK,
		OperationalKey: info.OperationalKey,
		Label:          info.Label,
	}
}

func (row fabricModel) toInfo() *fabric.Info {
	return &fabric.Info{
		Index:          fabric.Index(row.Index),
		RootPublicKey:  row.RootPublicKey,
		NOC:            row.NOC,
		ICAC:           row.ICAC,
		NodeID:         fabric.NodeID(row.NodeID),
		FabricID:       fabric.ID(row.FabricID),
		IPK:            row.IPK,
		OperationalKey: row.OperationalKey,
		Label:          row.Label,
	}
}

func resumptionModelFromRecord(rec storage.ResumptionRecord) resumptionModel {
	return resumptionModel{
		ID:             append([]byte(nil), rec.ID[:]...),
		SharedSecret:   rec.SharedSecret,
		FabricIndex:    uint8(rec.FabricIndex),
		PeerNodeID:     rec.PeerNodeID,
		OperationalKey: rec.OperationalKey,
	}
}

func (row resumptionModel) toRecord() (storage.ResumptionRecord, error) {
	if len(row.ID) != casesession.ResumptionIDSize {
		return storage.ResumptionRecord{}, errors.New("gormstore: stored resumption id has wrong length")
	}
	var rec storage.ResumptionRecord
	copy(rec.ID[:], row.ID)
	rec.SharedSecret = row.SharedSecret
	rec.FabricIndex = fabric.Index(row.FabricIndex)
	rec.PeerNodeID = row.PeerNodeID
	rec.OperationalKey = row.OperationalKey
	return rec, nil
}

var _ storage.Store = (*Store)(nil)
