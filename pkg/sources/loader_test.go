package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

func TestCandidatesFromTable(t *testing.T) {
	cfg := config.Default()
	table := &tabular.Table{
		Path:   "phase2.csv",
		Header: []string{"note_id", "field", "value", "status", "confidence", "source_file"},
		Rows: []map[string]string{
			{"note_id": "77.0", "field": " recon_type ", "value": "diep", "status": "performed", "confidence": "0.9", "source_file": "a.csv"},
			{"note_id": "nan", "field": "recon_type", "value": "x", "status": "history", "confidence": "0.5"},
			{"note_id": "78", "field": "recon_type", "value": "implant", "status": "history", "confidence": "high"},
		},
	}

	candidates, stats, err := Candidates(table, cfg.Columns.Entity, cfg.Columns, identifier.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].EntityID != "77" || candidates[0].Field != "recon_type" {
		t.Fatalf("expected normalized key, got %+v", candidates[0])
	}
	if candidates[0].Provenance["source_file"] != "a.csv" {
		t.Fatalf("expected provenance column, got %+v", candidates[0].Provenance)
	}
	if stats.SkippedBlankKey != 1 {
		t.Fatalf("expected 1 skipped row, got %d", stats.SkippedBlankKey)
	}
	// "high" is unparsable and defaults to 0, counted for the summary.
	if stats.DefaultedConfidence != 1 || candidates[1].Confidence != 0 {
		t.Fatalf("expected defaulted confidence, got %+v %+v", stats, candidates[1])
	}
}

func TestCandidatesMissingColumn(t *testing.T) {
	cfg := config.Default()
	table := &tabular.Table{Path: "bad.csv", Header: []string{"note_id", "field"}}
	_, _, err := Candidates(table, cfg.Columns.Entity, cfg.Columns, identifier.Default())
	if !tabular.IsMissingColumn(err) {
		t.Fatalf("expected column error, got %v", err)
	}
}

func TestEventsSkipsSourceWithoutPatientColumn(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "encounters.csv")
	bad := filepath.Join(dir, "orphan.csv")

	goodContent := "ENCRYPTED_PAT_ID,NOTE_ID,CONTACT_DATE,STAGE,PROCEDURE\nP1,n1,2021-01-01,Stage2,capsulectomy\n,n2,2021-01-02,Stage2,x\n"
	if err := os.WriteFile(good, []byte(goodContent), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(bad, []byte("SOMETHING\nx\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg := config.Default()
	srcs := []config.Source{
		{Tag: "enc", Path: good},
		{Tag: "orphan", Path: bad},
	}

	events, skipped, err := Events(srcs, cfg.Columns, identifier.Default(), cfg.Encodings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != bad {
		t.Fatalf("expected orphan source skipped, got %v", skipped)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.PatientID != "P1" || ev.RecordID != "n1" || ev.EventDate != "2021-01-01" || ev.Stage != "Stage2" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Source != "enc" {
		t.Fatalf("expected source tag carried, got %q", ev.Source)
	}
	if ev.Detail["PROCEDURE"] != "capsulectomy" {
		t.Fatalf("expected detail column, got %+v", ev.Detail)
	}
}

func TestEventsMissingFileIsFatal(t *testing.T) {
	cfg := config.Default()
	srcs := []config.Source{{Tag: "x", Path: filepath.Join(t.TempDir(), "absent.csv")}}
	if _, _, err := Events(srcs, cfg.Columns, identifier.Default(), cfg.Encodings); err == nil {
		t.Fatal("expected error for missing file")
	}
}
