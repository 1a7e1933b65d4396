package gormstore

// fabricModel is the GORM row backing one commissioned fabric
// (storage.Store's fabric.Info, spec §3).
type fabricModel struct {
	Index uint8 `gorm:"primaryKey"`

	RootPublicKey  []byte
	NOC            []byte
	ICAC           []byte
	NodeID         uint64 `gorm:"index"`
	FabricID       uint64
	IPK            []byte
	OperationalKey []byte

	Label string
}

func (fabricModel) TableName() string { return "fabrics" }

// resumptionModel is the GORM row backing one CASE resumption record
// (spec §4.7/§4.14.3).
type resumptionModel struct {
	ID []byte `gorm:"primaryKey"`

	SharedSecret   []byte
	FabricIndex    uint8 `gorm:"index"`
	PeerNodeID     uint64
	OperationalKey []byte
}

func (resumptionModel) TableName() string { return "case_resumptions" }

func allModels() []any {
	return []any{&fabricModel{}, &resumptionModel{}}
}
