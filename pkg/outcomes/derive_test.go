package outcomes

import (
	"testing"

	"github.com/synaptica-ai/consolidator/pkg/classify"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

func stageFamily() config.OutcomeFamily {
	return config.OutcomeFamily{
		Name: "Stage1",
		Slots: []config.OutcomeSlot{
			{Comp: "S1_Comp1", Treatment: "S1_Comp1_Treatment", Classification: "S1_Comp1_Classification"},
			{Comp: "S1_Comp2", Treatment: "S1_Comp2_Treatment", Classification: "S1_Comp2_Classification"},
		},
	}
}

func record(fields map[string]string) models.PatientRecord {
	return models.PatientRecord{PatientID: "p1", Fields: fields}
}

func TestDeriveMajorFromClassification(t *testing.T) {
	flags := Derive(record(map[string]string{
		"S1_Comp1":                "infection",
		"S1_Comp1_Treatment":      "IV antibiotics",
		"S1_Comp1_Classification": "Major",
	}), stageFamily())

	if flags.MajorComp != 1 || flags.MinorComp != 0 {
		t.Fatalf("expected major only, got %+v", flags)
	}
	if flags.Reoperation != 0 || flags.Rehospitalization != 0 {
		t.Fatalf("expected no treatment flags, got %+v", flags)
	}
}

func TestDeriveReoperationImpliesMajor(t *testing.T) {
	// Reoperation escalates even when the classification cell is blank.
	flags := Derive(record(map[string]string{
		"S1_Comp1_Treatment": "REOPERATION",
	}), stageFamily())

	if flags.Reoperation != 1 || flags.MajorComp != 1 {
		t.Fatalf("expected reoperation to imply major, got %+v", flags)
	}
}

func TestDeriveMajorSuppressesMinor(t *testing.T) {
	flags := Derive(record(map[string]string{
		"S1_Comp1":                "seroma",
		"S1_Comp1_Classification": "minor",
		"S1_Comp2":                "hematoma",
		"S1_Comp2_Treatment":      "return to OR",
	}), stageFamily())

	if flags.MajorComp != 1 {
		t.Fatalf("expected major set, got %+v", flags)
	}
	if flags.MinorComp != 0 {
		t.Fatalf("expected minor suppressed by major, got %+v", flags)
	}
}

func TestDeriveMinorWithoutMajor(t *testing.T) {
	flags := Derive(record(map[string]string{
		"S1_Comp1":                "seroma",
		"S1_Comp1_Treatment":      "non-operative",
		"S1_Comp1_Classification": "MINOR",
	}), stageFamily())

	if flags.MinorComp != 1 || flags.MajorComp != 0 {
		t.Fatalf("expected minor only, got %+v", flags)
	}
}

func TestDeriveEmptySlotsNoFlags(t *testing.T) {
	flags := Derive(record(map[string]string{
		"S1_Comp1": "",
		"S1_Comp2": "  ",
	}), stageFamily())
	if flags != (Flags{}) {
		t.Fatalf("expected zero flags for empty slots, got %+v", flags)
	}
}

func TestNormalizeTreatment(t *testing.T) {
	cases := map[string]string{
		"Rehospitalized":       TreatmentRehosp,
		"RE-HOSPITALIZATION":   TreatmentRehosp,
		"re-op":                TreatmentReoperation,
		"Return to OR":         TreatmentReoperation,
		"non operative":        TreatmentNonOperative,
		"NON-OPERATIVE":        TreatmentNonOperative,
		"no treatment":         TreatmentNone,
		"None":                 TreatmentNone,
		"observation continue": TreatmentUnknown,
		"":                     "",
		"   ":                  "",
	}
	for raw, want := range cases {
		if got := NormalizeTreatment(raw); got != want {
			t.Fatalf("NormalizeTreatment(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeClassification(t *testing.T) {
	if got := NormalizeClassification("Major complication"); got != ClassMajor {
		t.Fatalf("expected MAJOR, got %q", got)
	}
	if got := NormalizeClassification(" minor "); got != ClassMinor {
		t.Fatalf("expected MINOR, got %q", got)
	}
	if got := NormalizeClassification("grade 3"); got != ClassUnknown {
		t.Fatalf("expected UNKNOWN, got %q", got)
	}
	if got := NormalizeClassification(""); got != "" {
		t.Fatalf("expected blank preserved, got %q", got)
	}
}

func TestTo01(t *testing.T) {
	ones := []string{"1", "y", "Yes", "TRUE", "t", "2", "1.0"}
	zeros := []string{"", "0", "n", "No", "false", "f", "0.0", "maybe"}
	for _, raw := range ones {
		if To01(raw) != 1 {
			t.Fatalf("To01(%q) = 0, want 1", raw)
		}
	}
	for _, raw := range zeros {
		if To01(raw) != 0 {
			t.Fatalf("To01(%q) = 1, want 0", raw)
		}
	}
}

func TestDeriveFromEvents(t *testing.T) {
	tables := classify.DefaultTables()
	failure, err := classify.NewClassifier(tables.Failure)
	if err != nil {
		t.Fatalf("failed to build failure classifier: %v", err)
	}
	revision, err := classify.NewClassifier(tables.Revision)
	if err != nil {
		t.Fatalf("failed to build revision classifier: %v", err)
	}

	events := []models.SourceEvent{
		{PatientID: "p1", RecordID: "r2", EventDate: "2021-02-01", Detail: map[string]string{"PROCEDURE": "explantation of right breast implant"}},
		{PatientID: "p1", RecordID: "r1", EventDate: "2021-01-01", Detail: map[string]string{"PROCEDURE": "capsulectomy with implant exchange"}},
		{PatientID: "p2", RecordID: "r3", EventDate: "2021-03-01", Detail: map[string]string{"PROCEDURE": "routine follow-up"}},
	}

	flags, hits := DeriveFromEvents(events, failure, revision)

	if f := flags["p1"]; f.Failure != 1 || f.Revision != 1 {
		t.Fatalf("expected p1 failure+revision, got %+v", f)
	}
	if _, ok := flags["p2"]; ok {
		t.Fatalf("expected no flags for p2, got %+v", flags["p2"])
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 rule hits, got %d", len(hits))
	}
	// Hits come back date-ordered within a patient.
	if hits[0].RecordID != "r1" || hits[1].RecordID != "r2" {
		t.Fatalf("expected date-ordered hits, got %+v", hits)
	}
}
