package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/synaptica-ai/consolidator/pkg/classify"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/outcomes"
	"github.com/synaptica-ai/consolidator/pkg/sources"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	inPath := flag.String("in", "", "patient-level CSV (default from config)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("outcomes")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	path := cfg.OutputPath(cfg.PatientLevelFile)
	if *inPath != "" {
		path = *inPath
	}

	table, err := tabular.ReadCSVEncodings(path, cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read patient-level file")
	}
	patientCol, err := table.Column(cfg.Columns.Patient)
	if err != nil {
		log.WithError(err).Fatal("patient-level file missing patient column")
	}

	norm := identifier.New(cfg.BlankTokens)
	var records []models.PatientRecord
	for _, row := range table.Rows {
		patient := norm.Normalize(row[patientCol])
		if patient == "" {
			continue
		}
		fields := make(map[string]string, len(row))
		for name, value := range row {
			if name == patientCol {
				continue
			}
			fields[name] = value
		}
		records = append(records, models.PatientRecord{PatientID: patient, Fields: fields})
	}
	if len(records) == 0 {
		log.Fatalf("no patient rows in %s", path)
	}

	// Failure/revision come from event-level procedure text, not the
	// complication slots.
	tables, err := classify.LoadTables(cfg.RuleFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load rule tables")
	}
	failure, err := classify.NewClassifier(tables.Failure)
	if err != nil {
		log.WithError(err).Fatal("invalid failure rule table")
	}
	revision, err := classify.NewClassifier(tables.Revision)
	if err != nil {
		log.WithError(err).Fatal("invalid revision rule table")
	}

	var textFlags map[string]outcomes.Flags
	var hits []outcomes.TextHit
	needText := false
	for _, fam := range cfg.Outcomes {
		if fam.TextFlags {
			needText = true
		}
	}
	if needText && len(cfg.EventSources) > 0 {
		events, skipped, err := sources.Events(cfg.EventSources, cfg.Columns, norm, cfg.Encodings)
		if err != nil {
			log.WithError(err).Fatal("failed to read event sources")
		}
		for _, s := range skipped {
			log.WithField("source", s).Warn("skipping event source without patient column")
		}
		textFlags, hits = outcomes.DeriveFromEvents(events, failure, revision)
	}

	derivedCounts := make(map[string]int)
	var flagColumns []string
	for _, fam := range cfg.Outcomes {
		flagColumns = append(flagColumns, outcomes.FlagColumns(fam.Name)...)
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := map[string]string{patientCol: rec.PatientID}
		for name, value := range rec.Fields {
			row[name] = value
		}

		for _, fam := range cfg.Outcomes {
			flags := outcomes.Derive(rec, fam)
			if fam.TextFlags {
				if tf, ok := textFlags[rec.PatientID]; ok {
					flags.Failure = tf.Failure
					flags.Revision = tf.Revision
				}
			}

			row[fam.Name+"_MinorComp"] = strconv.Itoa(flags.MinorComp)
			row[fam.Name+"_Reoperation"] = strconv.Itoa(flags.Reoperation)
			row[fam.Name+"_Rehospitalization"] = strconv.Itoa(flags.Rehospitalization)
			row[fam.Name+"_MajorComp"] = strconv.Itoa(flags.MajorComp)
			row[fam.Name+"_Failure"] = strconv.Itoa(flags.Failure)
			row[fam.Name+"_Revision"] = strconv.Itoa(flags.Revision)

			derivedCounts[fam.Name+"_MinorComp"] += flags.MinorComp
			derivedCounts[fam.Name+"_Reoperation"] += flags.Reoperation
			derivedCounts[fam.Name+"_Rehospitalization"] += flags.Rehospitalization
			derivedCounts[fam.Name+"_MajorComp"] += flags.MajorComp
			derivedCounts[fam.Name+"_Failure"] += flags.Failure
			derivedCounts[fam.Name+"_Revision"] += flags.Revision
		}
		rows = append(rows, row)
	}

	columns := tabular.OrderedColumns(patientCol, flagColumns, rows)
	outPath := cfg.OutputPath(cfg.OutcomesFile)
	if err := tabular.WriteCSV(outPath, columns, rows); err != nil {
		log.WithError(err).Fatal("failed to write outcomes file")
	}

	hitRows := make([]map[string]string, 0, len(hits))
	for _, h := range hits {
		hitRows = append(hitRows, map[string]string{
			"patient_id": h.PatientID,
			"record_id":  h.RecordID,
			"event_date": h.EventDate,
			"rule":       h.Rule,
		})
	}
	hitsPath := cfg.OutputPath("failure_revision_hits.csv")
	if err := tabular.WriteCSV(hitsPath, []string{"patient_id", "record_id", "event_date", "rule"}, hitRows); err != nil {
		log.WithError(err).Fatal("failed to write rule-hit report")
	}

	lines := []string{
		"=== Outcome Flag Derivation ===",
		"Input: " + path,
		"Read encoding: " + table.Encoding,
		"",
		fmt.Sprintf("Patients: %d", len(records)),
	}
	for _, fam := range cfg.Outcomes {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s outcomes (Minor/Major mutually exclusive):", fam.Name))
		for _, col := range outcomes.FlagColumns(fam.Name) {
			lines = append(lines, fmt.Sprintf("  %s: %d", col, derivedCounts[col]))
		}
	}
	lines = append(lines, "", fmt.Sprintf("Failure/revision rule hits: %d", len(hits)))
	lines = append(lines, "", "WROTE: "+outPath, "WROTE: "+hitsPath)
	if err := tabular.WriteSummary(cfg.OutputPath("outcomes_summary.txt"), lines); err != nil {
		log.WithError(err).Fatal("failed to write summary")
	}

	log.WithFields(map[string]interface{}{
		"patients":  len(records),
		"rule_hits": len(hits),
	}).Info("outcome derivation complete")
}
