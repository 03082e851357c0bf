package outcomes

import (
	"sort"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/classify"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

// Flags are the derived per-family outcome indicators. They are recomputed
// from the signal columns every run, never stored as the source of truth.
type Flags struct {
	MinorComp         int
	MajorComp         int
	Reoperation       int
	Rehospitalization int
	Failure           int
	Revision          int
}

// FlagColumns is the fixed emission order for a family's flag columns.
func FlagColumns(family string) []string {
	return []string{
		family + "_MinorComp",
		family + "_Reoperation",
		family + "_Rehospitalization",
		family + "_MajorComp",
		family + "_Failure",
		family + "_Revision",
	}
}

// Derive reduces one patient's complication slots to outcome flags.
// A slot contributes when any of its columns carries a signal; a declared
// column missing from the record is simply no evidence. Major and Minor
// stay mutually exclusive: Major always wins.
func Derive(rec models.PatientRecord, family config.OutcomeFamily) Flags {
	var flags Flags
	anyMinor := false

	for _, slot := range family.Slots {
		comp := strings.TrimSpace(rec.Fields[slot.Comp])
		tx := NormalizeTreatment(rec.Fields[slot.Treatment])
		cls := NormalizeClassification(rec.Fields[slot.Classification])

		present := comp != "" || tx != "" || cls != ""
		if !present {
			continue
		}

		if tx == TreatmentReoperation {
			flags.Reoperation = 1
		}
		if tx == TreatmentRehosp {
			flags.Rehospitalization = 1
		}
		if cls == ClassMajor || tx == TreatmentReoperation || tx == TreatmentRehosp {
			flags.MajorComp = 1
		}
		if cls == ClassMinor || tx == TreatmentNone || tx == TreatmentNonOperative {
			anyMinor = true
		}
	}

	if anyMinor && flags.MajorComp == 0 {
		flags.MinorComp = 1
	}
	return flags
}

// TextHit is one event-level rule firing, kept as review evidence.
type TextHit struct {
	PatientID string
	RecordID  string
	EventDate string
	Rule      string
	Text      string
}

// DeriveFromEvents scans event-level procedure text with the failure and
// revision rule tables and returns the per-patient flags plus the firing
// evidence sorted by (patient, date, record).
func DeriveFromEvents(events []models.SourceEvent, failure, revision *classify.Classifier) (map[string]Flags, []TextHit) {
	flags := make(map[string]Flags)
	var hits []TextHit

	for _, ev := range events {
		if ev.PatientID == "" {
			continue
		}
		text := eventText(ev)
		if text == "" {
			continue
		}

		f := flags[ev.PatientID]
		if _, rule, ok := failure.Classify(text); ok {
			f.Failure = 1
			hits = append(hits, TextHit{PatientID: ev.PatientID, RecordID: ev.RecordID, EventDate: ev.EventDate, Rule: "failure/" + rule, Text: text})
		}
		if _, rule, ok := revision.Classify(text); ok {
			f.Revision = 1
			hits = append(hits, TextHit{PatientID: ev.PatientID, RecordID: ev.RecordID, EventDate: ev.EventDate, Rule: "revision/" + rule, Text: text})
		}
		flags[ev.PatientID] = f
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].PatientID != hits[j].PatientID {
			return hits[i].PatientID < hits[j].PatientID
		}
		if hits[i].EventDate != hits[j].EventDate {
			return hits[i].EventDate < hits[j].EventDate
		}
		return hits[i].RecordID < hits[j].RecordID
	})
	return flags, hits
}

func eventText(ev models.SourceEvent) string {
	var parts []string
	keys := make([]string, 0, len(ev.Detail))
	for k := range ev.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(ev.Detail[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
