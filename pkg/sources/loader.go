// Package sources turns configured tabular inputs into the pipeline's
// in-memory types, applying the column-candidate matching and identifier
// normalization every stage shares.
package sources

import (
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/resolve"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// CandidateStats counts how much of the candidate stream had to be
// defaulted, surfaced in the stage summary.
type CandidateStats struct {
	Rows                int
	SkippedBlankKey     int
	DefaultedConfidence int
}

// Candidates reads a candidate stream table at the given entity
// granularity. Columns beyond the scoring ones are carried as provenance.
func Candidates(t *tabular.Table, entityCandidates []string, cols config.Columns, norm *identifier.Normalizer) ([]models.Candidate, CandidateStats, error) {
	entityCol, err := t.Column(entityCandidates)
	if err != nil {
		return nil, CandidateStats{}, err
	}
	fieldCol, err := t.Column(cols.Field)
	if err != nil {
		return nil, CandidateStats{}, err
	}
	valueCol, err := t.Column(cols.Value)
	if err != nil {
		return nil, CandidateStats{}, err
	}
	statusCol, err := t.Column(cols.Status)
	if err != nil {
		return nil, CandidateStats{}, err
	}
	confCol, err := t.Column(cols.Confidence)
	if err != nil {
		return nil, CandidateStats{}, err
	}

	scoring := map[string]struct{}{
		entityCol: {}, fieldCol: {}, valueCol: {}, statusCol: {}, confCol: {},
	}

	stats := CandidateStats{Rows: len(t.Rows)}
	var candidates []models.Candidate
	for _, row := range t.Rows {
		entity := norm.Normalize(row[entityCol])
		field := tabular.Clean(row[fieldCol])
		if entity == "" || field == "" {
			stats.SkippedBlankKey++
			continue
		}

		conf, ok := resolve.ParseConfidence(row[confCol])
		if !ok && row[confCol] != "" {
			stats.DefaultedConfidence++
		}

		provenance := make(map[string]string)
		for name, value := range row {
			if _, scored := scoring[name]; scored {
				continue
			}
			provenance[name] = value
		}

		candidates = append(candidates, models.Candidate{
			EntityID:   entity,
			Field:      field,
			Value:      row[valueCol],
			Status:     row[statusCol],
			Confidence: conf,
			Provenance: provenance,
		})
	}
	return candidates, stats, nil
}

// Events loads the configured event-level sources. A missing file is
// fatal; a source missing its key columns is skipped and reported.
func Events(srcs []config.Source, cols config.Columns, norm *identifier.Normalizer, encodings []string) ([]models.SourceEvent, []string, error) {
	var events []models.SourceEvent
	var skipped []string

	for _, src := range srcs {
		t, err := tabular.ReadCSVEncodings(src.Path, encodings)
		if err != nil {
			return nil, nil, err
		}

		patientCol, err := t.Column(cols.Primary)
		if err != nil {
			skipped = append(skipped, src.Path)
			continue
		}
		recordCol, _ := t.Column(cols.RecordID)
		dateCol, _ := t.Column(cols.EventDate)
		stageCol, _ := t.Column(cols.Stage)

		known := map[string]struct{}{patientCol: {}}
		if recordCol != "" {
			known[recordCol] = struct{}{}
		}
		if dateCol != "" {
			known[dateCol] = struct{}{}
		}
		if stageCol != "" {
			known[stageCol] = struct{}{}
		}

		for _, row := range t.Rows {
			patient := norm.Normalize(row[patientCol])
			if patient == "" {
				continue
			}
			ev := models.SourceEvent{
				PatientID: patient,
				Source:    src.Tag,
				Detail:    make(map[string]string),
			}
			if recordCol != "" {
				ev.RecordID = norm.Normalize(row[recordCol])
			}
			if dateCol != "" {
				ev.EventDate = tabular.Clean(row[dateCol])
			}
			if stageCol != "" {
				ev.Stage = tabular.Clean(row[stageCol])
			}
			for name, value := range row {
				if _, ok := known[name]; ok {
					continue
				}
				ev.Detail[name] = value
			}
			events = append(events, ev)
		}
	}
	return events, skipped, nil
}
