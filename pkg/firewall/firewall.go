// Package firewall is SAIQL's semantic firewall: a fail-closed guard
// sitting in front of (pre-prompt) and behind (post-output) the compiler
// pipeline, matching raw text against category-tagged regex rules. If its
// rule set fails to load, every guard call blocks rather than allowing
// traffic through unchecked.
package firewall

import (
	"encoding/json"
	"os"
	"regexp"
)

// Action is a firewall verdict.
type Action string

const (
	ActionAllow  Action = "ALLOW"
	ActionBlock  Action = "BLOCK"
	ActionRedact Action = "REDACT"
)

// Redaction records one applied secrets-category substitution.
type Redaction struct {
	Pattern     string
	Reason      string
	Replacement string
}

// Decision is the result of a single guard call.
type Decision struct {
	Action       Action
	Reasons      []string
	Confidence   float64
	Redactions   []Redaction
	ModifiedText string
}

// Rule is one regex/reason/replacement triple within a category.
type Rule struct {
	Pattern     string `json:"pattern"`
	Reason      string `json:"reason"`
	Replacement string `json:"replacement"`

	compiled *regexp.Regexp
}

// ruleSet is the on-disk shape of a firewall configuration file.
type ruleSet struct {
	Rules    map[string][]Rule `json:"rules"`
	Settings struct {
		RedactionPlaceholder string `json:"redaction_placeholder"`
	} `json:"settings"`
}

const (
	categoryInjection    = "injection"
	categorySystemPrompt = "system_prompt"
	categoryToolAbuse    = "tool_abuse"
	categorySecrets      = "secrets"

	defaultRedactionPlaceholder = "[REDACTED]"
)

// Firewall evaluates pre-prompt and post-output guards against a loaded
// rule set. A zero-value Firewall (rulesLoaded false) fails closed on
// every call, matching the "rules not loaded" branch of the original
// semantic firewall.
type Firewall struct {
	rules       map[string][]Rule
	placeholder string
	rulesLoaded bool
}

// New constructs a Firewall with no rules loaded (fails closed until
// LoadFile or LoadJSON succeeds).
func New() *Firewall {
	return &Firewall{placeholder: defaultRedactionPlaceholder}
}

// LoadFile loads and compiles a rule set from path.
func (f *Firewall) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		f.rulesLoaded = false
		return err
	}
	return f.LoadJSON(data)
}

// LoadJSON loads and compiles a rule set already in memory.
func (f *Firewall) LoadJSON(data []byte) error {
	var rs ruleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		f.rulesLoaded = false
		return err
	}

	for category, rules := range rs.Rules {
		for i := range rules {
			compiled, err := regexp.Compile(rules[i].Pattern)
			if err != nil {
				f.rulesLoaded = false
				return err
			}
			rules[i].compiled = compiled
		}
		rs.Rules[category] = rules
	}

	f.rules = rs.Rules
	f.placeholder = rs.Settings.RedactionPlaceholder
	if f.placeholder == "" {
		f.placeholder = defaultRedactionPlaceholder
	}
	f.rulesLoaded = true
	return nil
}

func (f *Firewall) checkPatterns(text, category string) []Rule {
	var matches []Rule
	for _, rule := range f.rules[category] {
		if rule.compiled != nil && rule.compiled.MatchString(text) {
			matches = append(matches, rule)
		}
	}
	return matches
}

func failClosed() Decision {
	return Decision{
		Action:     ActionBlock,
		Reasons:    []string{"firewall rules not loaded - fail-closed policy"},
		Confidence: 1.0,
	}
}

// PrePromptGuard screens untrusted input text before it reaches the
// compiler, checking injection, system-prompt-extraction, and tool-abuse
// categories in that order; the first category with a match blocks.
func (f *Firewall) PrePromptGuard(text string) Decision {
	if !f.rulesLoaded {
		return failClosed()
	}

	for _, category := range []string{categoryInjection, categorySystemPrompt, categoryToolAbuse} {
		if matches := f.checkPatterns(text, category); len(matches) > 0 {
			reasons := make([]string, len(matches))
			for i, m := range matches {
				reasons[i] = m.Reason
			}
			return Decision{Action: ActionBlock, Reasons: reasons, Confidence: 1.0}
		}
	}

	return Decision{Action: ActionAllow}
}

// PreRetrievalGuard screens a compiled query's text before it is handed to
// an adapter. It currently reuses PrePromptGuard's rule categories.
func (f *Firewall) PreRetrievalGuard(queryText string) Decision {
	return f.PrePromptGuard(queryText)
}

// PostOutputGuard screens result text for secret-shaped content, redacting
// any matches rather than blocking outright.
func (f *Firewall) PostOutputGuard(text string) Decision {
	if !f.rulesLoaded {
		return failClosed()
	}

	matches := f.checkPatterns(text, categorySecrets)
	if len(matches) == 0 {
		return Decision{Action: ActionAllow}
	}

	reasons := make([]string, 0, len(matches))
	redactions := make([]Redaction, 0, len(matches))
	modified := text
	for _, rule := range matches {
		replacement := rule.Replacement
		if replacement == "" {
			replacement = f.placeholder
		}
		reasons = append(reasons, rule.Reason)
		redactions = append(redactions, Redaction{
			Pattern:     rule.Pattern,
			Reason:      rule.Reason,
			Replacement: replacement,
		})
		modified = rule.compiled.ReplaceAllString(modified, replacement)
	}

	return Decision{
		Action:       ActionRedact,
		Reasons:      reasons,
		Confidence:   1.0,
		Redactions:   redactions,
		ModifiedText: modified,
	}
}
