package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

// DefaultStatusRank is the fixed clinical-state precedence. Status
// dominates confidence: a performed finding at 0.1 confidence beats a
// history finding at 0.99.
var DefaultStatusRank = map[string]int{
	"performed": 4,
	"history":   3,
	"planned":   2,
	"denied":    1,
	"unknown":   0,
	"":          0,
}

// Resolver picks exactly one winning candidate per (entity, field) key.
// It only ever looks at the grouping key and the candidate's own fields,
// so the same resolver serves note-level and patient-level consolidation.
type Resolver struct {
	rank map[string]int
}

func New(rank map[string]int) *Resolver {
	if len(rank) == 0 {
		rank = DefaultStatusRank
	}
	return &Resolver{rank: rank}
}

type Key struct {
	EntityID string
	Field    string
}

// Stats surfaces how much data the run had to default, for audit.
type Stats struct {
	Candidates int
	Groups     int
	Singleton  int
}

func (r *Resolver) statusRank(status string) int {
	rank, ok := r.rank[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return 0
	}
	return rank
}

// better reports whether a strictly beats b under (statusRank, confidence)
// lexicographic ordering. Equality is not "better": the first-seen
// candidate keeps the win, which makes resolution deterministic for a
// deterministic input order.
func (r *Resolver) better(a, b models.Candidate) bool {
	ra, rb := r.statusRank(a.Status), r.statusRank(b.Status)
	if ra != rb {
		return ra > rb
	}
	return a.Confidence > b.Confidence
}

// Resolve consumes candidates in input order and returns one winner per
// key, in first-seen key order. All non-scoring attributes of the winner
// are carried through untouched; only the rule tag is added.
func (r *Resolver) Resolve(candidates []models.Candidate) ([]models.ResolvedField, Stats) {
	winners := make(map[Key]models.Candidate)
	counts := make(map[Key]int)
	var order []Key

	for _, c := range candidates {
		key := Key{EntityID: c.EntityID, Field: c.Field}
		counts[key]++
		current, ok := winners[key]
		if !ok {
			winners[key] = c
			order = append(order, key)
			continue
		}
		if r.better(c, current) {
			winners[key] = c
		}
	}

	stats := Stats{Candidates: len(candidates), Groups: len(order)}
	resolved := make([]models.ResolvedField, 0, len(order))
	for _, key := range order {
		win := winners[key]
		if counts[key] == 1 {
			stats.Singleton++
		}
		resolved = append(resolved, models.ResolvedField{
			Candidate: win,
			Rule:      fmt.Sprintf("status>%s;conf>%g", strings.ToLower(strings.TrimSpace(win.Status)), win.Confidence),
		})
	}
	return resolved, stats
}

// ParseConfidence parses a confidence cell. Anything unparsable or
// negative defaults to 0 rather than failing the row.
func ParseConfidence(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
