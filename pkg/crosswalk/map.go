package crosswalk

import "github.com/synaptica-ai/consolidator/pkg/common/models"

// Map is the read side of the crosswalk: constant-time lookups in either
// direction, used wherever a join must bridge the two identifier families.
type Map struct {
	byPrimary   map[string]string
	byAlternate map[string]string
}

func NewMap(entries []models.CrosswalkEntry) *Map {
	m := &Map{
		byPrimary:   make(map[string]string, len(entries)),
		byAlternate: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		m.byPrimary[e.Primary] = e.Alternate
		if _, ok := m.byAlternate[e.Alternate]; !ok {
			m.byAlternate[e.Alternate] = e.Primary
		}
	}
	return m
}

func (m *Map) Alternate(primary string) (string, bool) {
	v, ok := m.byPrimary[primary]
	return v, ok
}

func (m *Map) Primary(alternate string) (string, bool) {
	v, ok := m.byAlternate[alternate]
	return v, ok
}

func (m *Map) Len() int {
	return len(m.byPrimary)
}
