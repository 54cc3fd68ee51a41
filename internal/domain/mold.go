package domain

import (
	"time"

	"gorm.io/datatypes"
)

type MoldRecord struct {
	ID           uint                           `gorm:"primaryKey;autoIncrement" json:"id"`
	PartNumber   string                         `gorm:"column:part_number;size:50;not null;uniqueIndex:idx_mold_record_part_number" json:"part_number"`
	MoldNumber   string                         `gorm:"column:mold_number;size:50;not null;uniqueIndex:idx_mold_record_mold_number" json:"mold_number"`
	CycleTime    float64                        `gorm:"column:cycle_time;not null" json:"cycle_time"` // minutes
	BOM          string                         `gorm:"column:bom;type:text;not null" json:"bom"`
	NumOperators int                            `gorm:"column:num_operators;not null" json:"num_operators"`
	ProcessData  datatypes.JSONType[ProcessData] `gorm:"column:process_data" json:"process_data"`

	Media []MediaAsset `gorm:"foreignKey:MoldRecordID;references:ID;constraint:OnDelete:CASCADE" json:"media"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MoldRecord) TableName() string { return "mold_record" }

// Fields returns the editable fields of the record.
func (m *MoldRecord) Fields() MoldFields {
	return MoldFields{
		PartNumber:   m.PartNumber,
		MoldNumber:   m.MoldNumber,
		CycleTime:    m.CycleTime,
		BOM:          m.BOM,
		NumOperators: m.NumOperators,
	}
}

// Apply overwrites the editable fields. ProcessData and media are untouched.
func (m *MoldRecord) Apply(f MoldFields) {
	m.PartNumber = f.PartNumber
	m.MoldNumber = f.MoldNumber
	m.CycleTime = f.CycleTime
	m.BOM = f.BOM
	m.NumOperators = f.NumOperators
}
