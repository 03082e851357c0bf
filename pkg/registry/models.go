package registry

import (
	"time"

	"gorm.io/datatypes"
)

// PatientRow is one consolidated patient-level record as loaded into the
// registry. Fields holds the full wide row; the interesting columns are
// queryable through the JSON map rather than a 100-column table.
type PatientRow struct {
	ID        string            `gorm:"primaryKey;column:id"`
	RunID     string            `gorm:"column:run_id;index"`
	PatientID string            `gorm:"column:patient_id;index"`
	Fields    datatypes.JSONMap `gorm:"column:fields"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

type OutcomeRow struct {
	ID        string    `gorm:"primaryKey;column:id"`
	RunID     string    `gorm:"column:run_id;index"`
	PatientID string    `gorm:"column:patient_id;index"`
	Outcome   string    `gorm:"column:outcome"`
	Value     int       `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (PatientRow) TableName() string {
	return "consolidated_patients"
}

func (OutcomeRow) TableName() string {
	return "patient_outcomes"
}
