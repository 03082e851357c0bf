package resolve

import (
	"testing"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

func cand(entity, field, value, status string, conf float64) models.Candidate {
	return models.Candidate{EntityID: entity, Field: field, Value: value, Status: status, Confidence: conf}
}

func TestResolveStatusDominatesConfidence(t *testing.T) {
	r := New(nil)
	resolved, stats := r.Resolve([]models.Candidate{
		cand("n1", "recon_type", "expander", "history", 0.99),
		cand("n1", "recon_type", "diep", "performed", 0.10),
	})

	if len(resolved) != 1 {
		t.Fatalf("expected one winner, got %d", len(resolved))
	}
	if resolved[0].Value != "diep" {
		t.Fatalf("expected performed candidate to win, got %q", resolved[0].Value)
	}
	if stats.Groups != 1 || stats.Singleton != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestResolveConfidenceBreaksStatusTie(t *testing.T) {
	r := New(nil)
	resolved, _ := r.Resolve([]models.Candidate{
		cand("n1", "f", "low", "performed", 0.4),
		cand("n1", "f", "high", "performed", 0.8),
	})
	if resolved[0].Value != "high" {
		t.Fatalf("expected higher confidence to win, got %q", resolved[0].Value)
	}
}

func TestResolveExactTieKeepsFirst(t *testing.T) {
	r := New(nil)
	resolved, _ := r.Resolve([]models.Candidate{
		cand("n1", "f", "first", "performed", 0.5),
		cand("n1", "f", "second", "performed", 0.5),
	})
	if resolved[0].Value != "first" {
		t.Fatalf("expected first-seen candidate kept on tie, got %q", resolved[0].Value)
	}
}

func TestResolveUnknownStatusRanksZero(t *testing.T) {
	r := New(nil)
	resolved, _ := r.Resolve([]models.Candidate{
		cand("n1", "f", "odd", "equivocal", 0.9),
		cand("n1", "f", "planned", "planned", 0.1),
	})
	if resolved[0].Value != "planned" {
		t.Fatalf("expected unrecognized status to rank below planned, got %q", resolved[0].Value)
	}
}

func TestResolvePreservesFirstSeenKeyOrder(t *testing.T) {
	r := New(nil)
	resolved, stats := r.Resolve([]models.Candidate{
		cand("n2", "b", "x", "performed", 1),
		cand("n1", "a", "y", "performed", 1),
		cand("n2", "b", "z", "denied", 1),
	})
	if len(resolved) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(resolved))
	}
	if resolved[0].EntityID != "n2" || resolved[1].EntityID != "n1" {
		t.Fatalf("expected first-seen key order, got %q then %q", resolved[0].EntityID, resolved[1].EntityID)
	}
	if stats.Singleton != 1 {
		t.Fatalf("expected one singleton group, got %d", stats.Singleton)
	}
}

func TestResolveCarriesProvenance(t *testing.T) {
	r := New(nil)
	c := cand("n1", "f", "v", "performed", 0.7)
	c.Provenance = map[string]string{"source_file": "notes.csv"}
	resolved, _ := r.Resolve([]models.Candidate{c})
	if resolved[0].Provenance["source_file"] != "notes.csv" {
		t.Fatalf("expected provenance carried through, got %+v", resolved[0].Provenance)
	}
	if resolved[0].Rule == "" {
		t.Fatal("expected a rule tag on the winner")
	}
}

func TestParseConfidence(t *testing.T) {
	if v, ok := ParseConfidence(" 0.85 "); !ok || v != 0.85 {
		t.Fatalf("expected 0.85, got %v %v", v, ok)
	}
	if v, ok := ParseConfidence("high"); ok || v != 0 {
		t.Fatalf("expected unparsable to default to 0, got %v %v", v, ok)
	}
	if v, ok := ParseConfidence("-0.2"); ok || v != 0 {
		t.Fatalf("expected negative to default to 0, got %v %v", v, ok)
	}
}
