package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the registry database from env-driven settings.
func Open(cfg *config.RegistryConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DB, cfg.Port, cfg.SSLMode,
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

type Repository struct {
	db        *gorm.DB
	batchSize int
}

func NewRepository(db *gorm.DB, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Repository{db: db, batchSize: batchSize}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PatientRow{}, &OutcomeRow{})
}

// SaveRecords loads consolidated patient records under one run id, so a
// rerun never mutates an earlier load.
func (r *Repository) SaveRecords(ctx context.Context, runID string, records []models.PatientRecord) error {
	now := time.Now().UTC()
	rows := make([]PatientRow, 0, len(records))
	for _, rec := range records {
		fields := make(datatypes.JSONMap, len(rec.Fields))
		for k, v := range rec.Fields {
			fields[k] = v
		}
		rows = append(rows, PatientRow{
			ID:        uuid.New().String(),
			RunID:     runID,
			PatientID: rec.PatientID,
			Fields:    fields,
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, r.batchSize).Error
}

// SaveOutcomes loads the derived flag columns for one patient record.
func (r *Repository) SaveOutcomes(ctx context.Context, runID, patientID string, flags map[string]int) error {
	now := time.Now().UTC()
	outcomes := make([]string, 0, len(flags))
	for name := range flags {
		outcomes = append(outcomes, name)
	}
	sort.Strings(outcomes)

	rows := make([]OutcomeRow, 0, len(outcomes))
	for _, name := range outcomes {
		rows = append(rows, OutcomeRow{
			ID:        uuid.New().String(),
			RunID:     runID,
			PatientID: patientID,
			Outcome:   name,
			Value:     flags[name],
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, r.batchSize).Error
}

// RunPatients returns how many patients a run loaded, a cheap sanity
// check after a load.
func (r *Repository) RunPatients(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PatientRow{}).Where("run_id = ?", runID).Count(&count).Error
	return count, err
}
