package classify

import (
	"errors"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule maps a text pattern to a category. Rules are evaluated
// top-to-bottom and the first match wins, so ordering in the table is
// load-bearing.
type Rule struct {
	Name     string `yaml:"name" json:"name"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	Category string `yaml:"category" json:"category"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}

type RuleSet struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

type RuleTables struct {
	ReconType []Rule `yaml:"recon_type" json:"recon_type"`
	Failure   []Rule `yaml:"failure" json:"failure"`
	Revision  []Rule `yaml:"revision" json:"revision"`
}

// LoadTables reads the external rule tables so reviewers can audit and
// extend classification without code changes. An empty path returns the
// built-in defaults.
func LoadTables(path string) (RuleTables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTables(), err
	}

	var tables RuleTables
	if err := yaml.Unmarshal(content, &tables); err != nil {
		return RuleTables{}, err
	}
	if len(tables.ReconType) == 0 && len(tables.Failure) == 0 && len(tables.Revision) == 0 {
		return RuleTables{}, errors.New("no classification rules configured")
	}
	return tables, nil
}

func DefaultTables() RuleTables {
	return RuleTables{
		ReconType: []Rule{
			{Name: "diep", Pattern: `(?i)\bdiep\b`, Category: "autologous_flap", Enabled: true},
			{Name: "latissimus", Pattern: `(?i)latissimus`, Category: "latissimus_flap", Enabled: true},
			{Name: "free-flap", Pattern: `(?i)free flap`, Category: "autologous_flap", Enabled: true},
			{Name: "flap", Pattern: `(?i)\bflap\b`, Category: "autologous_flap", Enabled: true},
			{Name: "expander", Pattern: `(?i)expander`, Category: "tissue_expander", Enabled: true},
			{Name: "implant", Pattern: `(?i)implant`, Category: "implant", Enabled: true},
			{Name: "cpt-expander", Pattern: `\b19357\b`, Category: "tissue_expander", Enabled: true},
			{Name: "cpt-implant", Pattern: `\b(19340|19342)\b`, Category: "implant", Enabled: true},
		},
		Failure: []Rule{
			{Name: "explant", Pattern: `(?i)\bexplant(ed|ation)?\b`, Category: "failure", Enabled: true},
			{Name: "expander-removal", Pattern: `(?i)removal of (tissue )?expander(?:[^,]*without replacement)?`, Category: "failure", Enabled: true},
			{Name: "implant-removal", Pattern: `(?i)removal of (breast )?implant[^,]*(without replacement|not replaced)`, Category: "failure", Enabled: true},
			{Name: "flat-chest", Pattern: `(?i)flat chest`, Category: "failure", Enabled: true},
			{Name: "delayed-recon", Pattern: `(?i)delayed reconstruction after (removal|explant)`, Category: "failure", Enabled: true},
		},
		Revision: []Rule{
			{Name: "capsulectomy", Pattern: `(?i)capsulectomy`, Category: "revision", Enabled: true},
			{Name: "capsulorrhaphy", Pattern: `(?i)capsulorr?haphy`, Category: "revision", Enabled: true},
			{Name: "fat-graft", Pattern: `(?i)fat graft(ing)?`, Category: "revision", Enabled: true},
			{Name: "scar-revision", Pattern: `(?i)scar revision`, Category: "revision", Enabled: true},
			{Name: "mastopexy", Pattern: `(?i)mastopexy`, Category: "revision", Enabled: true},
			{Name: "symmetry", Pattern: `(?i)symmetr(y|ization) procedure`, Category: "revision", Enabled: true},
			{Name: "implant-exchange", Pattern: `(?i)implant exchange`, Category: "revision", Enabled: true},
		},
	}
}
