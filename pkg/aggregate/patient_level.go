package aggregate

import (
	"sort"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

// StructuredSuffix marks columns sourced from structured encounter data
// rather than free-text extraction.
const StructuredSuffix = "_structured"

// FinalSuffix marks the override result column when both sources claim a
// field.
const FinalSuffix = "_final"

// Pivot turns resolved (patient, field) rows into one wide record per
// patient. Records come back sorted by patient id so output order is
// stable across runs.
func Pivot(resolved []models.ResolvedField) []models.PatientRecord {
	byPatient := make(map[string]map[string]string)
	for _, r := range resolved {
		if r.EntityID == "" || r.Field == "" {
			continue
		}
		fields, ok := byPatient[r.EntityID]
		if !ok {
			fields = make(map[string]string)
			byPatient[r.EntityID] = fields
		}
		fields[r.Field] = r.Value
	}

	ids := make([]string, 0, len(byPatient))
	for id := range byPatient {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]models.PatientRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, models.PatientRecord{PatientID: id, Fields: byPatient[id]})
	}
	return records
}

// FieldNames returns every distinct field observed anywhere in the
// records, sorted. Downstream writers use this to emit a column even for
// patients missing the field.
func FieldNames(records []models.PatientRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for name := range rec.Fields {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergeStructured attaches a structured-source table to the free-text
// records, suffixing its columns with "_structured". Patients present only
// in the structured table get a record of their own.
func MergeStructured(records []models.PatientRecord, structured []models.PatientRecord) []models.PatientRecord {
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.PatientID] = i
	}

	merged := append([]models.PatientRecord(nil), records...)
	for _, s := range structured {
		i, ok := index[s.PatientID]
		if !ok {
			merged = append(merged, models.PatientRecord{PatientID: s.PatientID, Fields: map[string]string{}})
			i = len(merged) - 1
			index[s.PatientID] = i
		}
		for name, value := range s.Fields {
			merged[i].Fields[name+StructuredSuffix] = value
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].PatientID < merged[j].PatientID })
	return merged
}

// ApplyOverride writes "<field>_final" for every field that has a
// structured twin: the structured value wins whenever it is non-blank,
// otherwise the free-text value is kept as-is. Exactly one source wins per
// cell, never a combination. It returns how many cells the structured
// source overrode.
func ApplyOverride(records []models.PatientRecord) int {
	overridden := 0
	for _, rec := range records {
		var bases []string
		for name := range rec.Fields {
			if base, ok := strings.CutSuffix(name, StructuredSuffix); ok && base != "" {
				bases = append(bases, base)
			}
		}
		sort.Strings(bases)
		for _, base := range bases {
			final := rec.Fields[base]
			if structuredValue := rec.Fields[base+StructuredSuffix]; strings.TrimSpace(structuredValue) != "" {
				final = structuredValue
				overridden++
			}
			rec.Fields[base+FinalSuffix] = final
		}
	}
	return overridden
}
