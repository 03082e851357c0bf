package crosswalk

import (
	"errors"
	"testing"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

func pair(primary, alternate, file string) models.IdentifierPair {
	return models.IdentifierPair{Primary: primary, Alternate: alternate, SourceTag: "enc", SourceFile: file}
}

func TestBuildMajoritySupportWins(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 1)
	pairs := []models.IdentifierPair{
		pair("P1", "M1", "a.csv"),
		pair("P1", "M1", "b.csv"),
		pair("P1", "M2", "a.csv"),
		pair("P2", "M3", "a.csv"),
	}

	result, err := b.Build(pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Primary != "P1" || result.Entries[0].Alternate != "M1" {
		t.Fatalf("expected P1 -> M1, got %+v", result.Entries[0])
	}
	if result.Entries[0].Support != 2 {
		t.Fatalf("expected support 2, got %d", result.Entries[0].Support)
	}
	if result.Entries[0].Sources != "a.csv|b.csv" {
		t.Fatalf("expected joined sources, got %q", result.Entries[0].Sources)
	}
	if len(result.PrimaryConflicts) != 1 || result.PrimaryConflicts[0].Key != "P1" {
		t.Fatalf("expected one primary conflict on P1, got %+v", result.PrimaryConflicts)
	}
}

func TestBuildTieKeepsFirstSeen(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 1)
	pairs := []models.IdentifierPair{
		pair("P1", "M2", "a.csv"),
		pair("P1", "M1", "a.csv"),
	}

	result, err := b.Build(pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Entries[0].Alternate != "M2" {
		t.Fatalf("expected first-seen alternate to win the tie, got %q", result.Entries[0].Alternate)
	}
}

func TestBuildReportsAlternateConflicts(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 1)
	pairs := []models.IdentifierPair{
		pair("P1", "M1", "a.csv"),
		pair("P2", "M1", "a.csv"),
	}

	result, err := b.Build(pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both primaries keep their mapping; the shared alternate is reported.
	if len(result.Entries) != 2 {
		t.Fatalf("expected both primaries mapped, got %d", len(result.Entries))
	}
	if len(result.AlternateConflicts) != 1 || result.AlternateConflicts[0].Key != "M1" {
		t.Fatalf("expected alternate conflict on M1, got %+v", result.AlternateConflicts)
	}
}

func TestBuildMinSupportExcludes(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 2)
	pairs := []models.IdentifierPair{
		pair("P1", "M1", "a.csv"),
		pair("P1", "M1", "b.csv"),
		pair("P2", "M2", "a.csv"),
	}

	result, err := b.Build(pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Primary != "P1" {
		t.Fatalf("expected only P1 above threshold, got %+v", result.Entries)
	}
	if len(result.BelowSupport) != 1 || result.BelowSupport[0].Primary != "P2" {
		t.Fatalf("expected P2 below support, got %+v", result.BelowSupport)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 1)
	if _, err := b.Build(nil); !errors.Is(err, tabular.ErrEmptyResult) {
		t.Fatalf("expected empty-result error, got %v", err)
	}
}

func TestPairsSkipsBlankSides(t *testing.T) {
	b := NewBuilder(nil, []string{"ENCRYPTED_PAT_ID"}, []string{"MRN"}, 1)
	table := &tabular.Table{
		Path:   "enc.csv",
		Header: []string{"ENCRYPTED_PAT_ID", "MRN"},
		Rows: []map[string]string{
			{"ENCRYPTED_PAT_ID": "P1", "MRN": "100.0"},
			{"ENCRYPTED_PAT_ID": "nan", "MRN": "200"},
			{"ENCRYPTED_PAT_ID": "P2", "MRN": ""},
		},
	}

	pairs, err := b.Pairs(table, "enc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 usable pair, got %d", len(pairs))
	}
	if pairs[0].Alternate != "100" {
		t.Fatalf("expected normalized alternate, got %q", pairs[0].Alternate)
	}
}

func TestMapLookups(t *testing.T) {
	m := NewMap([]models.CrosswalkEntry{
		{Primary: "P1", Alternate: "M1"},
		{Primary: "P2", Alternate: "M2"},
	})
	if alt, ok := m.Alternate("P1"); !ok || alt != "M1" {
		t.Fatalf("expected P1 -> M1, got %q %v", alt, ok)
	}
	if primary, ok := m.Primary("M2"); !ok || primary != "P2" {
		t.Fatalf("expected M2 -> P2, got %q %v", primary, ok)
	}
	if _, ok := m.Alternate("P9"); ok {
		t.Fatal("expected miss for unknown primary")
	}
}
