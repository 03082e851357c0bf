package validate

import (
	"math"
	"testing"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

func TestClassifyConfusionMatrix(t *testing.T) {
	gold := map[string]int{"a": 1, "b": 0, "c": 1, "d": 0, "e": 1}
	pred := map[string]int{"a": 1, "b": 1, "c": 0, "d": 0}

	counts, mismatches := Classify("Stage2_Failure", gold, pred)

	if counts.TP != 1 || counts.TN != 1 || counts.FP != 1 || counts.FN != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	// "e" has no prediction and is excluded, not counted as negative.
	if counts.Evaluated() != 4 {
		t.Fatalf("expected 4 evaluated, got %d", counts.Evaluated())
	}

	if len(mismatches) != 2 {
		t.Fatalf("expected 2 mismatches, got %d", len(mismatches))
	}
	if mismatches[0].PatientID != "b" || mismatches[0].Kind != models.FalsePositive {
		t.Fatalf("expected FP on b first, got %+v", mismatches[0])
	}
	if mismatches[1].PatientID != "c" || mismatches[1].Kind != models.FalseNegative {
		t.Fatalf("expected FN on c, got %+v", mismatches[1])
	}
	if mismatches[0].Outcome != "Stage2_Failure" {
		t.Fatalf("expected outcome carried onto mismatch, got %q", mismatches[0].Outcome)
	}
}

func TestMetrics(t *testing.T) {
	c := Counts{TP: 6, TN: 10, FP: 2, FN: 2}
	if got := c.Precision(); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("precision = %v, want 0.75", got)
	}
	if got := c.Recall(); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("recall = %v, want 0.75", got)
	}
	if got := c.F1(); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("f1 = %v, want 0.75", got)
	}
}

func TestMetricsZeroDenominators(t *testing.T) {
	c := Counts{TN: 5}
	if c.Precision() != 0 || c.Recall() != 0 || c.F1() != 0 {
		t.Fatalf("expected zero metrics without positives, got P=%v R=%v F1=%v", c.Precision(), c.Recall(), c.F1())
	}
}

func TestRecentEvents(t *testing.T) {
	events := []models.SourceEvent{
		{PatientID: "p1", RecordID: "n1", EventDate: "2021-01-05"},
		{PatientID: "p1", RecordID: "n3", EventDate: "2021-04-01"},
		{PatientID: "p1", RecordID: "n2", EventDate: "2021-04-01"},
		{PatientID: "p1", RecordID: "n0", EventDate: "2020-12-01"},
		{PatientID: "p2", RecordID: "x1", EventDate: "2022-01-01"},
	}

	recent := RecentEvents(events, "p1", 2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	// Same date sorts by record id descending.
	if recent[0].RecordID != "n3" || recent[1].RecordID != "n2" {
		t.Fatalf("expected n3 then n2, got %q %q", recent[0].RecordID, recent[1].RecordID)
	}
}

func TestTriggeringEvents(t *testing.T) {
	events := []models.SourceEvent{
		{PatientID: "p1", RecordID: "n2", EventDate: "2021-02-01", Stage: "stage2"},
		{PatientID: "p1", RecordID: "n1", EventDate: "2021-01-01", Stage: "Stage2"},
		{PatientID: "p1", RecordID: "n3", EventDate: "2021-03-01", Stage: "Stage1"},
		{PatientID: "p2", RecordID: "x1", EventDate: "2021-01-01", Stage: "Stage2"},
	}

	hits := TriggeringEvents(events, "p1", "Stage2")
	if len(hits) != 2 {
		t.Fatalf("expected 2 stage-matched events, got %d", len(hits))
	}
	if hits[0].RecordID != "n1" || hits[1].RecordID != "n2" {
		t.Fatalf("expected chronological order, got %q %q", hits[0].RecordID, hits[1].RecordID)
	}
}
