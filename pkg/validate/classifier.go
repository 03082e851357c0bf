package validate

import (
	"sort"

	"github.com/synaptica-ai/consolidator/pkg/common/models"
)

// Counts is the confusion matrix for one outcome.
type Counts struct {
	TP int
	TN int
	FP int
	FN int
}

func (c Counts) Evaluated() int {
	return c.TP + c.TN + c.FP + c.FN
}

func (c Counts) Precision() float64 {
	return safeDiv(float64(c.TP), float64(c.TP+c.FP))
}

func (c Counts) Recall() float64 {
	return safeDiv(float64(c.TP), float64(c.TP+c.FN))
}

func (c Counts) F1() float64 {
	p, r := c.Precision(), c.Recall()
	return safeDiv(2*p*r, p+r)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Classify joins predicted flags against gold labels for one outcome.
// Only subjects present in both maps are scored; a subject missing from
// the reference set is excluded, never counted as a true negative.
// Mismatches come back sorted by patient id so reruns are byte-identical.
func Classify(outcome string, gold, predicted map[string]int) (Counts, []models.MismatchRecord) {
	var counts Counts
	var mismatches []models.MismatchRecord

	subjects := make([]string, 0, len(gold))
	for id := range gold {
		if _, ok := predicted[id]; ok {
			subjects = append(subjects, id)
		}
	}
	sort.Strings(subjects)

	for _, id := range subjects {
		g, p := gold[id], predicted[id]
		switch {
		case g == 1 && p == 1:
			counts.TP++
		case g == 0 && p == 0:
			counts.TN++
		case g == 0 && p == 1:
			counts.FP++
			mismatches = append(mismatches, models.MismatchRecord{
				PatientID: id, Outcome: outcome, Gold: g, Predicted: p, Kind: models.FalsePositive,
			})
		default:
			counts.FN++
			mismatches = append(mismatches, models.MismatchRecord{
				PatientID: id, Outcome: outcome, Gold: g, Predicted: p, Kind: models.FalseNegative,
			})
		}
	}
	return counts, mismatches
}
