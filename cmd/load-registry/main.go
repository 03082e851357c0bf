package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/uuid"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/outcomes"
	"github.com/synaptica-ai/consolidator/pkg/registry"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// Loads the consolidated patient-level table and the derived outcome flags
// into the registry database under a fresh run id.
func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("load-registry")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	table, err := tabular.ReadCSVEncodings(cfg.OutputPath(cfg.OutcomesFile), cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read outcomes file")
	}
	patientCol, err := table.Column(cfg.Columns.Patient)
	if err != nil {
		log.WithError(err).Fatal("outcomes file missing patient column")
	}

	flagColumns := make(map[string]struct{})
	for _, fam := range cfg.Outcomes {
		for _, col := range outcomes.FlagColumns(fam.Name) {
			if table.HasColumn(col) {
				flagColumns[col] = struct{}{}
			}
		}
	}

	norm := identifier.New(cfg.BlankTokens)
	var records []models.PatientRecord
	flagsByPatient := make(map[string]map[string]int)
	for _, row := range table.Rows {
		patient := norm.Normalize(row[patientCol])
		if patient == "" {
			continue
		}
		fields := make(map[string]string, len(row))
		flags := make(map[string]int, len(flagColumns))
		for name, value := range row {
			if name == patientCol {
				continue
			}
			if _, ok := flagColumns[name]; ok {
				flags[name] = outcomes.To01(value)
				continue
			}
			fields[name] = value
		}
		records = append(records, models.PatientRecord{PatientID: patient, Fields: fields})
		flagsByPatient[patient] = flags
	}
	if len(records) == 0 {
		log.Fatal("no patient rows to load")
	}

	regCfg := config.LoadRegistry()
	db, err := registry.Open(regCfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to registry database")
	}
	repo := registry.NewRepository(db, regCfg.BatchSize)
	if err := repo.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("failed to migrate registry schema")
	}

	runID := strings.ReplaceAll(uuid.New().String(), "-", "")
	ctx := context.Background()

	if err := repo.SaveRecords(ctx, runID, records); err != nil {
		log.WithError(err).Fatal("failed to load patient records")
	}
	for _, rec := range records {
		if err := repo.SaveOutcomes(ctx, runID, rec.PatientID, flagsByPatient[rec.PatientID]); err != nil {
			log.WithError(err).Fatal("failed to load outcome flags")
		}
	}

	loaded, err := repo.RunPatients(ctx, runID)
	if err != nil {
		log.WithError(err).Fatal("failed to verify load")
	}

	log.WithFields(map[string]interface{}{
		"run_id":   runID,
		"patients": loaded,
	}).Info("registry load complete")
}
