package aggregate

import (
	"sort"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/classify"
	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// Structured field names emitted by the encounter-signal builder. The
// aggregator's override step gives these precedence over their free-text
// twins.
const (
	FieldReconPerformed = "Recon_Performed"
	FieldReconType      = "Recon_Type"
	FieldReconDate      = "Recon_Date"
)

// StructuredRecon reduces operation-encounter rows to per-subject
// reconstruction signals: performed whenever the subject has any encounter
// row, typed by the first procedure-text rule hit, dated by the first
// non-blank reconstruction date.
func StructuredRecon(t *tabular.Table, cols config.Columns, norm *identifier.Normalizer, recon *classify.Classifier) ([]models.PatientRecord, error) {
	patientCol, err := t.Column(cols.Primary)
	if err != nil {
		return nil, err
	}
	procCol, err := t.Column(cols.Procedure)
	if err != nil {
		return nil, err
	}
	cptCol, _ := t.Column(cols.CPT)
	dateCol, _ := t.Column(cols.ReconDate)

	byPatient := make(map[string]map[string]string)
	for _, row := range t.Rows {
		patient := norm.Normalize(row[patientCol])
		if patient == "" {
			continue
		}

		fields, ok := byPatient[patient]
		if !ok {
			fields = map[string]string{FieldReconPerformed: "1"}
			byPatient[patient] = fields
		}

		if fields[FieldReconType] == "" {
			text := tabular.Clean(row[procCol])
			if cptCol != "" {
				text = strings.TrimSpace(text + " " + tabular.Clean(row[cptCol]))
			}
			if category, _, ok := recon.Classify(text); ok {
				fields[FieldReconType] = category
			}
		}

		if dateCol != "" && fields[FieldReconDate] == "" {
			if date := tabular.Clean(row[dateCol]); date != "" {
				fields[FieldReconDate] = date
			}
		}
	}

	ids := make([]string, 0, len(byPatient))
	for id := range byPatient {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]models.PatientRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, models.PatientRecord{PatientID: id, Fields: byPatient[id]})
	}
	return records, nil
}
