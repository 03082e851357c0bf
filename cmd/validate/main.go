package main

import (
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/crosswalk"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/outcomes"
	"github.com/synaptica-ai/consolidator/pkg/sources"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
	"github.com/synaptica-ai/consolidator/pkg/validate"
)

const recentNoteCount = 2

func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	predPath := flag.String("pred", "", "predicted outcomes CSV (default from config)")
	goldPath := flag.String("gold", "", "gold label CSV (default from config)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("validate")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	pPath := cfg.OutputPath(cfg.OutcomesFile)
	if *predPath != "" {
		pPath = *predPath
	}
	gPath := cfg.GoldFile
	if *goldPath != "" {
		gPath = *goldPath
	}

	pred, err := tabular.ReadCSVEncodings(pPath, cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read predicted outcomes")
	}
	predIDCol, err := pred.Column(cfg.Columns.Patient)
	if err != nil {
		log.WithError(err).Fatal("predicted outcomes missing patient column")
	}

	gold, err := tabular.ReadCSVEncodings(gPath, cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read gold labels")
	}
	goldIDCol, err := gold.Column(cfg.Columns.GoldID)
	if err != nil {
		log.WithError(err).Fatal("gold labels missing identifier column")
	}

	norm := identifier.New(cfg.BlankTokens)

	// When the gold table is keyed by the alternate identifier family,
	// predictions are bridged through the crosswalk before the join.
	var xwalk *crosswalk.Map
	if cfg.GoldIDFamily == "alternate" {
		xwalk, err = loadCrosswalk(cfg)
		if err != nil {
			log.WithError(err).Fatal("failed to load crosswalk")
		}
		log.WithField("entries", xwalk.Len()).Info("crosswalk loaded")
	}

	// joinID maps each predicted row onto the gold table's key space.
	// toPrimary goes back the other way for evidence lookups.
	joinFor := make(map[string]string, len(pred.Rows))
	toPrimary := make(map[string]string, len(pred.Rows))
	unmapped := 0
	for _, row := range pred.Rows {
		primary := norm.Normalize(row[predIDCol])
		if primary == "" {
			continue
		}
		join := primary
		if xwalk != nil {
			alt, ok := xwalk.Alternate(primary)
			if !ok {
				unmapped++
				continue
			}
			join = alt
		}
		if _, seen := joinFor[primary]; !seen {
			joinFor[primary] = join
			toPrimary[join] = primary
		}
	}

	goldValues := make(map[string]map[string]string, len(gold.Rows))
	for _, row := range gold.Rows {
		id := norm.Normalize(row[goldIDCol])
		if id == "" {
			continue
		}
		if _, seen := goldValues[id]; !seen {
			goldValues[id] = row
		}
	}

	var events []models.SourceEvent
	if len(cfg.EventSources) > 0 {
		evts, skippedSrcs, err := sources.Events(cfg.EventSources, cfg.Columns, norm, cfg.Encodings)
		if err != nil {
			log.WithError(err).Fatal("failed to read event sources")
		}
		for _, s := range skippedSrcs {
			log.WithField("source", s).Warn("skipping event source without patient column")
		}
		events = evts
	}

	sensitive := make(map[string]struct{}, len(cfg.SensitiveColumns))
	for _, col := range cfg.SensitiveColumns {
		sensitive[strings.ToUpper(col)] = struct{}{}
	}

	type outcomeEval struct {
		outcome string
		family  string
		counts  validate.Counts
	}
	var evals []outcomeEval
	var mismatches []models.MismatchRecord
	familyOf := make(map[string]string)
	var skippedOutcomes []string
	totalEvaluated := 0

	for _, fam := range cfg.Outcomes {
		for _, outcome := range outcomes.FlagColumns(fam.Name) {
			goldCandidates, ok := fam.GoldFlags[outcome]
			if !ok || !pred.HasColumn(outcome) {
				continue
			}
			goldCol, found := tabular.FindColumn(gold.Header, goldCandidates)
			if !found {
				skippedOutcomes = append(skippedOutcomes, outcome)
				log.WithField("outcome", outcome).Warn("gold table has no label column, skipping")
				continue
			}

			predFlags := make(map[string]int, len(pred.Rows))
			for _, row := range pred.Rows {
				primary := norm.Normalize(row[predIDCol])
				join, ok := joinFor[primary]
				if !ok {
					continue
				}
				predFlags[join] = outcomes.To01(row[outcome])
			}
			goldFlags := make(map[string]int, len(goldValues))
			for id, row := range goldValues {
				goldFlags[id] = outcomes.To01(row[goldCol])
			}

			counts, miss := validate.Classify(outcome, goldFlags, predFlags)
			evals = append(evals, outcomeEval{outcome: outcome, family: fam.Name, counts: counts})
			mismatches = append(mismatches, miss...)
			familyOf[outcome] = fam.Name
			totalEvaluated += counts.Evaluated()
		}
	}

	if totalEvaluated == 0 {
		log.Fatalf("no overlapping subjects to score: %v", tabular.ErrEmptyResult)
	}

	mismatchRows := make([]map[string]string, 0, len(mismatches))
	for _, m := range mismatches {
		mismatchRows = append(mismatchRows, map[string]string{
			"patient_id": m.PatientID,
			"outcome":    m.Outcome,
			"gold":       strconv.Itoa(m.Gold),
			"predicted":  strconv.Itoa(m.Predicted),
			"kind":       string(m.Kind),
		})
	}
	mismatchPath := cfg.OutputPath("validation_mismatches.csv")
	if err := tabular.WriteCSV(mismatchPath, []string{"patient_id", "outcome", "gold", "predicted", "kind"}, mismatchRows); err != nil {
		log.WithError(err).Fatal("failed to write mismatch report")
	}

	evidenceCols := []string{"patient_id", "outcome", "record_id", "event_date", "stage", "source", "detail"}
	var fpRows, fnRows []map[string]string
	for _, m := range mismatches {
		primary, ok := toPrimary[m.PatientID]
		if !ok {
			primary = m.PatientID
		}
		switch m.Kind {
		case models.FalsePositive:
			for _, ev := range validate.TriggeringEvents(events, primary, familyOf[m.Outcome]) {
				fpRows = append(fpRows, evidenceRow(m, ev, sensitive))
			}
		case models.FalseNegative:
			for _, ev := range validate.RecentEvents(events, primary, recentNoteCount) {
				fnRows = append(fnRows, evidenceRow(m, ev, sensitive))
			}
		}
	}
	fpPath := cfg.OutputPath("FP_cases_detailed.csv")
	if err := tabular.WriteCSV(fpPath, evidenceCols, fpRows); err != nil {
		log.WithError(err).Fatal("failed to write false-positive evidence")
	}
	fnPath := cfg.OutputPath("FN_cases_with_recent_notes.csv")
	if err := tabular.WriteCSV(fnPath, evidenceCols, fnRows); err != nil {
		log.WithError(err).Fatal("failed to write false-negative evidence")
	}

	metricCols := []string{"outcome", "family", "evaluated", "tp", "tn", "fp", "fn", "precision", "recall", "f1"}
	metricRows := make([]map[string]string, 0, len(evals))
	for _, e := range evals {
		metricRows = append(metricRows, map[string]string{
			"outcome":   e.outcome,
			"family":    e.family,
			"evaluated": strconv.Itoa(e.counts.Evaluated()),
			"tp":        strconv.Itoa(e.counts.TP),
			"tn":        strconv.Itoa(e.counts.TN),
			"fp":        strconv.Itoa(e.counts.FP),
			"fn":        strconv.Itoa(e.counts.FN),
			"precision": formatMetric(e.counts.Precision()),
			"recall":    formatMetric(e.counts.Recall()),
			"f1":        formatMetric(e.counts.F1()),
		})
	}
	metricsPath := cfg.OutputPath("eval_metrics.csv")
	if err := tabular.WriteCSV(metricsPath, metricCols, metricRows); err != nil {
		log.WithError(err).Fatal("failed to write metrics")
	}

	lines := []string{
		"=== Gold-Set Validation ===",
		"Predicted: " + pPath,
		"Gold:      " + gPath,
		"",
		fmt.Sprintf("Predicted patients unmapped by crosswalk: %d", unmapped),
		fmt.Sprintf("Subject/outcome pairs scored: %d", totalEvaluated),
		"",
	}
	for _, e := range evals {
		lines = append(lines, fmt.Sprintf("%s: TP=%d TN=%d FP=%d FN=%d  P=%s R=%s F1=%s",
			e.outcome, e.counts.TP, e.counts.TN, e.counts.FP, e.counts.FN,
			formatMetric(e.counts.Precision()), formatMetric(e.counts.Recall()), formatMetric(e.counts.F1())))
	}
	if len(skippedOutcomes) > 0 {
		lines = append(lines, "", "Skipped (no gold column): "+strings.Join(skippedOutcomes, ", "))
	}
	lines = append(lines, "",
		"WROTE: "+metricsPath,
		"WROTE: "+mismatchPath,
		"WROTE: "+fpPath,
		"WROTE: "+fnPath)
	if err := tabular.WriteSummary(cfg.OutputPath("eval_summary.txt"), lines); err != nil {
		log.WithError(err).Fatal("failed to write summary")
	}

	log.WithFields(map[string]interface{}{
		"outcomes":   len(evals),
		"evaluated":  totalEvaluated,
		"mismatches": len(mismatches),
	}).Info("validation complete")
}

func loadCrosswalk(cfg *config.Config) (*crosswalk.Map, error) {
	t, err := tabular.ReadCSVEncodings(cfg.OutputPath(cfg.CrosswalkFile), cfg.Encodings)
	if err != nil {
		return nil, err
	}
	primaryCol, err := t.Column([]string{"primary_id"})
	if err != nil {
		return nil, err
	}
	alternateCol, err := t.Column([]string{"alternate_id"})
	if err != nil {
		return nil, err
	}

	entries := make([]models.CrosswalkEntry, 0, len(t.Rows))
	for _, row := range t.Rows {
		entries = append(entries, models.CrosswalkEntry{
			Primary:   row[primaryCol],
			Alternate: row[alternateCol],
		})
	}
	return crosswalk.NewMap(entries), nil
}

// evidenceRow flattens one source event for a reviewer, with the join-side
// id so the row lines up with the mismatch report. Sensitive columns never
// reach the detail cell.
func evidenceRow(m models.MismatchRecord, ev models.SourceEvent, sensitive map[string]struct{}) map[string]string {
	keys := make([]string, 0, len(ev.Detail))
	for k := range ev.Detail {
		if _, blocked := sensitive[strings.ToUpper(k)]; blocked {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(ev.Detail[k]); v != "" {
			parts = append(parts, k+"="+v)
		}
	}

	return map[string]string{
		"patient_id": m.PatientID,
		"outcome":    m.Outcome,
		"record_id":  ev.RecordID,
		"event_date": ev.EventDate,
		"stage":      ev.Stage,
		"source":     ev.Source,
		"detail":     strings.Join(parts, "; "),
	}
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
