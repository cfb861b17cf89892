// Package lsrules serializes directives into the Little Snitch
// .lsrules document format.
package lsrules

import (
	"encoding/json"
	"fmt"
	"strings"

	"snitchgen/internal/category"
	"snitchgen/internal/ruleset"
)

// DefaultName is used when the caller gives the ruleset no name.
const DefaultName = "snitchgen privacy rules"

// Output is the top-level .lsrules document.
type Output struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rules       []Rule `json:"rules"`
}

// Rule is one Little Snitch rule entry.
type Rule struct {
	Action        string   `json:"action"`
	Priority      string   `json:"priority,omitempty"`
	Process       string   `json:"process"`
	RemoteDomains []string `json:"remote-domains,omitempty"`
	Remote        string   `json:"remote,omitempty"`
	Protocol      string   `json:"protocol,omitempty"`
	Disabled      *bool    `json:"disabled,omitempty"`
	Notes         string   `json:"notes"`
}

// Params describes the run the rendered document came from; everything
// here ends up in the document's name and description only.
type Params struct {
	Name     string
	Mode     ruleset.Mode
	Severity category.Severity
	Selected []string
}

// Render maps directives onto .lsrules rules. Consecutive domain
// directives sharing a category, notes and action collapse into one
// rule with multiple remote-domains, keeping the document compact the
// way hand-written rulesets are.
func Render(directives []ruleset.Directive, params Params) Output {
	rules := []Rule{}

	for _, d := range directives {
		switch d.Kind {
		case ruleset.TargetDomain:
			if n := len(rules); n > 0 && coalescable(rules[n-1], d) {
				rules[n-1].RemoteDomains = append(rules[n-1].RemoteDomains, d.Target)
				continue
			}
			rule := Rule{
				Action:        string(d.Action),
				Process:       "any",
				RemoteDomains: []string{d.Target},
				Notes:         provenance(d),
			}
			if d.Action == ruleset.ActionAllow {
				enabled := false
				rule.Disabled = &enabled
			}
			rules = append(rules, rule)

		case ruleset.TargetProcess:
			rules = append(rules, Rule{
				Action:   string(d.Action),
				Priority: "high",
				Process:  d.Target,
				Remote:   "any",
				Protocol: "any",
				Notes:    provenance(d),
			})

		case ruleset.TargetAny:
			rules = append(rules, Rule{
				Action:  string(d.Action),
				Process: "any",
				Remote:  "any",
				Notes:   d.Notes,
			})
		}
	}

	name := params.Name
	if name == "" {
		name = DefaultName
	}

	return Output{
		Name:        name,
		Description: describe(params),
		Rules:       rules,
	}
}

func coalescable(r Rule, d ruleset.Directive) bool {
	return len(r.RemoteDomains) > 0 &&
		r.Action == string(d.Action) &&
		r.Notes == provenance(d)
}

func provenance(d ruleset.Directive) string {
	if d.Category == "" {
		return d.Notes
	}
	return fmt.Sprintf("[%s] %s", d.Category, d.Notes)
}

func describe(params Params) string {
	ids := strings.Join(params.Selected, ", ")
	if params.Mode == ruleset.ModeAllow {
		return fmt.Sprintf(
			"Generated by snitchgen. Mode: allow. Severity: %s. Allowed (%d): %s. All other traffic denied.",
			params.Severity, len(params.Selected), ids)
	}
	return fmt.Sprintf(
		"Generated by snitchgen. Mode: block. Severity: %s. Denied (%d): %s",
		params.Severity, len(params.Selected), ids)
}

// JSON renders the document as indented JSON.
func (o Output) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal lsrules: %w", err)
	}
	return data, nil
}
