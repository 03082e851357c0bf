package models

// Identity crosswalk

type IdentifierPair struct {
	Primary    string `json:"primary"`
	Alternate  string `json:"alternate"`
	SourceTag  string `json:"source_tag"`
	SourceFile string `json:"source_file"`
}

type CrosswalkEntry struct {
	Primary   string `json:"primary"`
	Alternate string `json:"alternate"`
	Support   int    `json:"support"`
	Sources   string `json:"sources"` // "|"-joined contributing files
}

// Conflict records one identifier that mapped to more than one counterpart
// across the source tables. Conflicts are reported, never silently dropped.
type Conflict struct {
	Key      string   `json:"key"`
	Values   []string `json:"values"`
	Supports []int    `json:"supports"`
}

// Candidate resolution

type Candidate struct {
	EntityID   string            `json:"entity_id"` // note_id or patient_id
	Field      string            `json:"field"`
	Value      string            `json:"value"`
	Status     string            `json:"status"` // performed, history, planned, denied, unknown
	Confidence float64           `json:"confidence"`
	Provenance map[string]string `json:"provenance,omitempty"` // passthrough columns
}

type ResolvedField struct {
	Candidate
	Rule string `json:"rule"` // which resolution rule fired
}

// Patient-level aggregation

type PatientRecord struct {
	PatientID string            `json:"patient_id"`
	Fields    map[string]string `json:"fields"`
}

// Validation

type MismatchKind string

const (
	FalsePositive MismatchKind = "false_positive"
	FalseNegative MismatchKind = "false_negative"
)

type MismatchRecord struct {
	PatientID string       `json:"patient_id"`
	Outcome   string       `json:"outcome"`
	Gold      int          `json:"gold"`
	Predicted int          `json:"predicted"`
	Kind      MismatchKind `json:"kind"`
}

// SourceEvent is one row of an event-level source table (an encounter or a
// note), kept for attaching reviewer context to validation mismatches.
type SourceEvent struct {
	PatientID string            `json:"patient_id"`
	RecordID  string            `json:"record_id"`
	EventDate string            `json:"event_date"` // YYYY-MM-DD, sortable as string
	Stage     string            `json:"stage,omitempty"`
	Source    string            `json:"source"`
	Detail    map[string]string `json:"detail,omitempty"`
}
