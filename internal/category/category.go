// Package category loads privacy category definitions from TOML files.
package category

import "fmt"

// Severity is the invasiveness level of a category, ordered from
// minimal to aggressive.
type Severity int

const (
	// SeverityMinimal blocks only the most egregious tracking.
	SeverityMinimal Severity = iota
	// SeverityRecommended balances privacy and functionality.
	SeverityRecommended
	// SeverityAggressive blocks as much as possible, may break usability.
	SeverityAggressive
)

// ParseSeverity parses a severity token. The three recognized tokens are
// "minimal", "recommended" and "aggressive".
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "minimal":
		return SeverityMinimal, nil
	case "recommended":
		return SeverityRecommended, nil
	case "aggressive":
		return SeverityAggressive, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (want minimal, recommended or aggressive)", s)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityMinimal:
		return "minimal"
	case SeverityRecommended:
		return "recommended"
	case SeverityAggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Category is one named policy unit: a severity-tagged bundle of
// domains and process paths representing a blockable concern.
type Category struct {
	ID          string
	Name        string
	Description string
	Severity    Severity
	Impact      string
	Rules       []RuleGroup
}

// RuleGroup is one [[rules]] block inside a category file. A group with
// neither domains nor a process path is kept but contributes nothing
// downstream.
type RuleGroup struct {
	Notes       string
	Domains     []string
	DenyProcess string
}
