package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Source is one tabular input contributing identifier pairs or events.
type Source struct {
	Tag  string `yaml:"tag"`
	Path string `yaml:"path"`
}

// Columns enumerates the recognized column-name candidates per logical
// field. Matching is exact (normalized) first, then substring.
type Columns struct {
	Primary    []string `yaml:"primary"`
	Alternate  []string `yaml:"alternate"`
	Patient    []string `yaml:"patient"`
	Entity     []string `yaml:"entity"`
	Field      []string `yaml:"field"`
	Value      []string `yaml:"value"`
	Status     []string `yaml:"status"`
	Confidence []string `yaml:"confidence"`
	EventDate  []string `yaml:"event_date"`
	RecordID   []string `yaml:"record_id"`
	Stage      []string `yaml:"stage"`
	Procedure  []string `yaml:"procedure"`
	CPT        []string `yaml:"cpt"`
	ReconDate  []string `yaml:"recon_date"`
	GoldID     []string `yaml:"gold_id"`
}

// OutcomeSlot names the three columns of one complication slot.
type OutcomeSlot struct {
	Comp           string `yaml:"comp"`
	Treatment      string `yaml:"treatment"`
	Classification string `yaml:"classification"`
	Date           string `yaml:"date"`
}

// OutcomeFamily declares one staged-procedure outcome family and the
// gold-label column candidates for each derived flag. TextFlags enables
// the failure/revision detectors over event-level procedure text.
type OutcomeFamily struct {
	Name      string              `yaml:"name"`
	Slots     []OutcomeSlot       `yaml:"slots"`
	GoldFlags map[string][]string `yaml:"gold_flags"`
	TextFlags bool                `yaml:"text_flags"`
}

// Config carries every path, column-candidate list and policy knob the
// pipeline stages read. No stage reads environment-implicit paths.
type Config struct {
	OutputDir string `yaml:"output_dir"`

	CandidateFile    string `yaml:"candidate_file"`
	ResolvedFile     string `yaml:"resolved_file"`
	PatientLevelFile string `yaml:"patient_level_file"`
	OutcomesFile     string `yaml:"outcomes_file"`
	GoldFile         string `yaml:"gold_file"`
	CrosswalkFile    string `yaml:"crosswalk_file"`
	RuleFile         string `yaml:"rule_file"`

	PairSources       []Source `yaml:"pair_sources"`       // contribute identifier pairs
	EventSources      []Source `yaml:"event_sources"`      // contribute event-level context
	StructuredSources []Source `yaml:"structured_sources"` // structured encounter signals

	Columns Columns `yaml:"columns"`

	BlankTokens []string `yaml:"blank_tokens"`
	Encodings   []string `yaml:"encodings"`
	MinSupport  int      `yaml:"min_support"`

	// GoldIDFamily names the identifier family the gold table is keyed by:
	// "alternate" joins predictions through the crosswalk, "primary" joins
	// directly.
	GoldIDFamily string `yaml:"gold_id_family"`

	// SensitiveColumns are never copied into evidence reports.
	SensitiveColumns []string `yaml:"sensitive_columns"`

	Outcomes []OutcomeFamily `yaml:"outcomes"`
}

func Default() *Config {
	return &Config{
		OutputDir: "_outputs",

		CandidateFile:    "all_phase2_final.csv",
		ResolvedFile:     "note_level_resolved.csv",
		PatientLevelFile: "patient_level_fields.csv",
		OutcomesFile:     "patient_level_outcomes.csv",
		GoldFile:         "gold_cleaned.csv",
		CrosswalkFile:    "crosswalk_primary_to_alternate.csv",

		Columns: Columns{
			Primary:    []string{"ENCRYPTED_PAT_ID", "PATIENT_ID"},
			Alternate:  []string{"MRN"},
			Patient:    []string{"patient_id"},
			Entity:     []string{"note_id", "patient_id"},
			Field:      []string{"field"},
			Value:      []string{"value"},
			Status:     []string{"status"},
			Confidence: []string{"confidence"},
			EventDate:  []string{"EVENT_DATE", "note_date", "CONTACT_DATE"},
			RecordID:   []string{"NOTE_ID", "note_id", "ENCOUNTER_ID"},
			Stage:      []string{"STAGE"},
			Procedure:  []string{"PROCEDURE"},
			CPT:        []string{"CPT_CODE"},
			ReconDate:  []string{"RECONSTRUCTION_DATE"},
			GoldID:     []string{"MRN", "patient_id", "ENCRYPTED_PAT_ID"},
		},

		BlankTokens: []string{"", "nan", "none", "null", "na", "n/a", ".", "-", "--", "unknown"},
		Encodings:   []string{"utf-8", "utf-8-sig", "cp1252", "latin1"},
		MinSupport:  1,

		GoldIDFamily:     "alternate",
		SensitiveColumns: []string{"NOTE_TEXT", "TEXT", "PATIENT_NAME", "DOB", "DATE_OF_BIRTH"},

		Outcomes: []OutcomeFamily{
			{
				Name: "Stage1",
				Slots: []OutcomeSlot{
					{Comp: "S1_Comp1", Treatment: "S1_Comp1_Treatment", Classification: "S1_Comp1_Classification", Date: "S1_Comp1_Date"},
					{Comp: "S1_Comp2", Treatment: "S1_Comp2_Treatment", Classification: "S1_Comp2_Classification", Date: "S1_Comp2_Date"},
					{Comp: "S1_Comp3", Treatment: "S1_Comp3_Treatment", Classification: "S1_Comp3_Classification", Date: "S1_Comp3_Date"},
				},
				GoldFlags: map[string][]string{
					"Stage1_MinorComp":         {"stage1_minorcomp"},
					"Stage1_MajorComp":         {"stage1_majorcomp"},
					"Stage1_Reoperation":       {"stage1_reoperation"},
					"Stage1_Rehospitalization": {"stage1_rehospitalization"},
				},
			},
			{
				Name: "Stage2",
				Slots: []OutcomeSlot{
					{Comp: "S2_Comp1", Treatment: "S2_Comp1_Treatment", Classification: "S2_Comp1_Classification", Date: "S2_Comp1_Date"},
					{Comp: "S2_Comp2", Treatment: "S2_Comp2_Treatment", Classification: "S2_Comp2_Classification", Date: "S2_Comp2_Date"},
					{Comp: "S2_Comp3", Treatment: "S2_Comp3_Treatment", Classification: "S2_Comp3_Classification", Date: "S2_Comp3_Date"},
				},
				GoldFlags: map[string][]string{
					"Stage2_MinorComp":         {"stage2_minorcomp"},
					"Stage2_MajorComp":         {"stage2_majorcomp"},
					"Stage2_Reoperation":       {"stage2_reoperation"},
					"Stage2_Rehospitalization": {"stage2_rehospitalization"},
					"Stage2_Failure":           {"stage2_failure"},
					"Stage2_Revision":          {"stage2_revision"},
				},
				TextFlags: true,
			},
		},
	}
}

// Load reads a YAML config over the compiled-in defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// OutputPath joins a file name onto the configured output directory.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}

// Registry connection settings stay env-driven: the sink is operational
// plumbing, not part of the reproducible pipeline inputs.

type RegistryConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	DB        string
	SSLMode   string
	BatchSize int
}

func LoadRegistry() *RegistryConfig {
	return &RegistryConfig{
		Host:      getEnv("POSTGRES_HOST", "localhost"),
		Port:      getEnv("POSTGRES_PORT", "5432"),
		User:      getEnv("POSTGRES_USER", "consolidator"),
		Password:  getEnv("POSTGRES_PASSWORD", ""),
		DB:        getEnv("POSTGRES_DB", "consolidator"),
		SSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
		BatchSize: getIntEnv("REGISTRY_BATCH_SIZE", 500),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
