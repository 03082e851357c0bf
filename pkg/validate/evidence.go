package validate

import (
	"sort"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

// RecentEvents returns the n most-recent source events for a patient
// across all source types, ordered by event date descending with record id
// descending as the tie-break. Reviewers use these to see why a signal was
// missed.
func RecentEvents(events []models.SourceEvent, patientID string, n int) []models.SourceEvent {
	var mine []models.SourceEvent
	for _, ev := range events {
		if ev.PatientID == patientID {
			mine = append(mine, ev)
		}
	}

	sort.Slice(mine, func(i, j int) bool {
		if mine[i].EventDate != mine[j].EventDate {
			return mine[i].EventDate > mine[j].EventDate
		}
		return mine[i].RecordID > mine[j].RecordID
	})

	if n > 0 && len(mine) > n {
		mine = mine[:n]
	}
	return mine
}

// TriggeringEvents returns the source records that produced the erroneous
// signal for a false positive: the patient's events tagged with the
// outcome's originating stage. The stage match is case-insensitive.
func TriggeringEvents(events []models.SourceEvent, patientID, stage string) []models.SourceEvent {
	want := strings.ToUpper(strings.TrimSpace(stage))
	var hits []models.SourceEvent
	for _, ev := range events {
		if ev.PatientID != patientID {
			continue
		}
		if want != "" && strings.ToUpper(strings.TrimSpace(ev.Stage)) != want {
			continue
		}
		hits = append(hits, ev)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].EventDate != hits[j].EventDate {
			return hits[i].EventDate < hits[j].EventDate
		}
		return hits[i].RecordID < hits[j].RecordID
	})
	return hits
}
