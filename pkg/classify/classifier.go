package classify

import "regexp"

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Classifier evaluates an ordered rule table against free text.
type Classifier struct {
	rules []compiledRule
}

func NewClassifier(rules []Rule) (*Classifier, error) {
	var compiled []compiledRule
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Classifier{rules: compiled}, nil
}

// Classify returns the category and rule name of the first matching rule.
func (c *Classifier) Classify(text string) (category, ruleName string, ok bool) {
	if c == nil || text == "" {
		return "", "", false
	}
	for _, rule := range c.rules {
		if rule.re.MatchString(text) {
			return rule.rule.Category, rule.rule.Name, true
		}
	}
	return "", "", false
}
