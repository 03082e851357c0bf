package crosswalk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// Builder resolves a best-effort one-to-one mapping between the primary
// identifier family and the alternate (legacy medical-record) family from
// however many source tables contribute pairs.
type Builder struct {
	norm       *identifier.Normalizer
	primary    []string
	alternate  []string
	minSupport int
}

// Result carries the resolved crosswalk plus the ambiguity diagnostics.
type Result struct {
	Entries []models.CrosswalkEntry

	// PrimaryConflicts lists primaries observed with >1 alternate,
	// AlternateConflicts the reverse. Both are reported, never hidden.
	PrimaryConflicts   []models.Conflict
	AlternateConflicts []models.Conflict

	// BelowSupport holds winners excluded by the minimum-support
	// threshold.
	BelowSupport []models.CrosswalkEntry

	PairRows    int
	UniquePairs int
}

func NewBuilder(norm *identifier.Normalizer, primaryCandidates, alternateCandidates []string, minSupport int) *Builder {
	if norm == nil {
		norm = identifier.Default()
	}
	if minSupport < 1 {
		minSupport = 1
	}
	return &Builder{
		norm:       norm,
		primary:    primaryCandidates,
		alternate:  alternateCandidates,
		minSupport: minSupport,
	}
}

// Pairs extracts normalized identifier pairs from one source table. Rows
// with a blank side are dropped. A ColumnError means the caller should
// skip this file, not abort the run.
func (b *Builder) Pairs(t *tabular.Table, tag string) ([]models.IdentifierPair, error) {
	primaryCol, err := t.Column(b.primary)
	if err != nil {
		return nil, err
	}
	alternateCol, err := t.Column(b.alternate)
	if err != nil {
		return nil, err
	}

	var pairs []models.IdentifierPair
	for _, row := range t.Rows {
		primary := b.norm.Normalize(row[primaryCol])
		alternate := b.norm.Normalize(row[alternateCol])
		if primary == "" || alternate == "" {
			continue
		}
		pairs = append(pairs, models.IdentifierPair{
			Primary:    primary,
			Alternate:  alternate,
			SourceTag:  tag,
			SourceFile: t.Path,
		})
	}
	return pairs, nil
}

type pairKey struct {
	primary   string
	alternate string
}

// Build counts pair support across all sources and resolves each primary
// to the alternate with the highest combined row support. Exact ties go to
// the first-encountered alternate, which keeps reruns byte-identical.
func (b *Builder) Build(pairs []models.IdentifierPair) (*Result, error) {
	support := make(map[pairKey]int)
	firstSeen := make(map[pairKey]int)
	sources := make(map[pairKey]map[string]struct{})

	for i, p := range pairs {
		key := pairKey{primary: p.Primary, alternate: p.Alternate}
		support[key]++
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
			sources[key] = make(map[string]struct{})
		}
		sources[key][p.SourceFile] = struct{}{}
	}

	if len(support) == 0 {
		return nil, fmt.Errorf("%w: no usable identifier pairs across any source", tabular.ErrEmptyResult)
	}

	byPrimary := make(map[string][]pairKey)
	byAlternate := make(map[string][]pairKey)
	for key := range support {
		byPrimary[key.primary] = append(byPrimary[key.primary], key)
		byAlternate[key.alternate] = append(byAlternate[key.alternate], key)
	}

	result := &Result{PairRows: len(pairs), UniquePairs: len(support)}

	primaries := make([]string, 0, len(byPrimary))
	for primary := range byPrimary {
		primaries = append(primaries, primary)
	}
	sort.Strings(primaries)

	for _, primary := range primaries {
		candidates := byPrimary[primary]
		sort.Slice(candidates, func(i, j int) bool {
			if support[candidates[i]] != support[candidates[j]] {
				return support[candidates[i]] > support[candidates[j]]
			}
			return firstSeen[candidates[i]] < firstSeen[candidates[j]]
		})

		winner := candidates[0]
		entry := models.CrosswalkEntry{
			Primary:   primary,
			Alternate: winner.alternate,
			Support:   support[winner],
			Sources:   joinSources(sources[winner]),
		}

		if len(candidates) > 1 {
			conflict := models.Conflict{Key: primary}
			for _, c := range candidates {
				conflict.Values = append(conflict.Values, c.alternate)
				conflict.Supports = append(conflict.Supports, support[c])
			}
			result.PrimaryConflicts = append(result.PrimaryConflicts, conflict)
		}

		if entry.Support < b.minSupport {
			result.BelowSupport = append(result.BelowSupport, entry)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	alternates := make([]string, 0, len(byAlternate))
	for alternate := range byAlternate {
		alternates = append(alternates, alternate)
	}
	sort.Strings(alternates)

	for _, alternate := range alternates {
		candidates := byAlternate[alternate]
		if len(candidates) < 2 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if support[candidates[i]] != support[candidates[j]] {
				return support[candidates[i]] > support[candidates[j]]
			}
			return firstSeen[candidates[i]] < firstSeen[candidates[j]]
		})
		conflict := models.Conflict{Key: alternate}
		for _, c := range candidates {
			conflict.Values = append(conflict.Values, c.primary)
			conflict.Supports = append(conflict.Supports, support[c])
		}
		result.AlternateConflicts = append(result.AlternateConflicts, conflict)
	}

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: every resolved mapping fell below min support %d", tabular.ErrEmptyResult, b.minSupport)
	}
	return result, nil
}

func joinSources(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
