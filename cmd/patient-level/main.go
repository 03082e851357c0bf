package main

import (
	"flag"
	"fmt"

	"github.com/synaptica-ai/consolidator/pkg/aggregate"
	"github.com/synaptica-ai/consolidator/pkg/classify"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/resolve"
	"github.com/synaptica-ai/consolidator/pkg/sources"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// Cross-note aggregation: resolve per (patient, field) and pivot into one
// wide row per subject, letting structured encounter signals override
// free-text extraction where both claim a field.
func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	inPath := flag.String("in", "", "resolved note-level CSV (default from config)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("patient-level")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	path := cfg.OutputPath(cfg.ResolvedFile)
	if *inPath != "" {
		path = *inPath
	}

	table, err := tabular.ReadCSVEncodings(path, cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read resolved fields")
	}

	norm := identifier.New(cfg.BlankTokens)
	candidates, stats, err := sources.Candidates(table, cfg.Columns.Patient, cfg.Columns, norm)
	if err != nil {
		log.WithError(err).Fatal("resolved file missing required column")
	}
	if len(candidates) == 0 {
		log.Fatalf("no usable rows in %s", path)
	}

	resolver := resolve.New(nil)
	resolved, rstats := resolver.Resolve(candidates)
	records := aggregate.Pivot(resolved)

	tables, err := classify.LoadTables(cfg.RuleFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load rule tables")
	}
	recon, err := classify.NewClassifier(tables.ReconType)
	if err != nil {
		log.WithError(err).Fatal("invalid recon-type rule table")
	}

	var structured []models.PatientRecord
	for _, src := range cfg.StructuredSources {
		t, err := tabular.ReadCSVEncodings(src.Path, cfg.Encodings)
		if err != nil {
			log.WithError(err).Fatal("failed to read structured source")
		}
		recs, err := aggregate.StructuredRecon(t, cfg.Columns, norm, recon)
		if err != nil {
			if tabular.IsMissingColumn(err) {
				log.WithError(err).Warn("skipping structured source without required columns")
				continue
			}
			log.WithError(err).Fatal("failed to build structured signals")
		}
		log.WithFields(map[string]interface{}{"source": src.Tag, "patients": len(recs)}).Info("loaded structured signals")
		structured = append(structured, recs...)
	}

	merged := aggregate.MergeStructured(records, structured)
	overridden := aggregate.ApplyOverride(merged)

	fieldNames := aggregate.FieldNames(merged)
	rows := make([]map[string]string, 0, len(merged))
	for _, rec := range merged {
		row := map[string]string{"patient_id": rec.PatientID}
		for _, name := range fieldNames {
			row[name] = rec.Fields[name]
		}
		rows = append(rows, row)
	}

	columns := tabular.OrderedColumns("patient_id", fieldNames, rows)
	outPath := cfg.OutputPath(cfg.PatientLevelFile)
	if err := tabular.WriteCSV(outPath, columns, rows); err != nil {
		log.WithError(err).Fatal("failed to write patient-level file")
	}

	lines := []string{
		"=== Patient-Level Aggregation ===",
		"Input: " + path,
		"Read encoding: " + table.Encoding,
		"",
		fmt.Sprintf("Resolved rows read: %d", stats.Rows),
		fmt.Sprintf("Rows skipped (blank patient/field key): %d", stats.SkippedBlankKey),
		fmt.Sprintf("Confidence values defaulted to 0: %d", stats.DefaultedConfidence),
		fmt.Sprintf("(patient, field) keys resolved: %d", rstats.Groups),
		fmt.Sprintf("Patients: %d", len(merged)),
		fmt.Sprintf("Distinct fields: %d", len(fieldNames)),
		fmt.Sprintf("Cells overridden by structured source: %d", overridden),
		"",
		"WROTE: " + outPath,
	}
	if err := tabular.WriteSummary(cfg.OutputPath("patient_level_summary.txt"), lines); err != nil {
		log.WithError(err).Fatal("failed to write summary")
	}

	log.WithFields(map[string]interface{}{
		"patients":   len(merged),
		"fields":     len(fieldNames),
		"overridden": overridden,
	}).Info("patient-level aggregation complete")
}
