// Package ruleset turns a category store into an ordered,
// conflict-free sequence of firewall directives.
package ruleset

import (
	"fmt"

	"snitchgen/internal/category"
)

// Mode controls how selected categories translate into directives.
type Mode int

const (
	// ModeBlock denies the selected categories and leaves the rest to
	// the firewall default.
	ModeBlock Mode = iota
	// ModeAllow allows the selected categories and denies everything
	// else through a trailing catch-all.
	ModeAllow
)

// ParseMode parses "block" or "allow".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "block":
		return ModeBlock, nil
	case "allow":
		return ModeAllow, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want block or allow)", s)
	}
}

func (m Mode) String() string {
	if m == ModeAllow {
		return "allow"
	}
	return "block"
}

// Action is the verdict a directive carries.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// TargetKind describes what a directive's target names.
type TargetKind string

const (
	// TargetDomain targets a remote domain name.
	TargetDomain TargetKind = "domain"
	// TargetProcess targets a local process by filesystem path.
	TargetProcess TargetKind = "process"
	// TargetAny is the catch-all covering all traffic not otherwise
	// matched. Its Target is empty.
	TargetAny TargetKind = "any"
)

// Directive is one emitted firewall rule, in the shape any serializer
// can map onto its target format.
type Directive struct {
	Action   Action
	Kind     TargetKind
	Target   string
	Category string
	Notes    string
}

// Params is the fully resolved configuration for one generation run.
// The engine reads nothing else: no flags, no environment, no files.
type Params struct {
	Mode     Mode
	Severity category.Severity
	Include  []string
	Exclude  []string
	All      bool
	// Strict promotes unknown-pattern warnings to errors.
	Strict bool
}

// UnknownPatternError reports a literal include/exclude pattern that
// matches no loaded category. Only returned when Params.Strict is set;
// otherwise the pattern surfaces as a warning.
type UnknownPatternError struct {
	Pattern string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("pattern %q matches no category", e.Pattern)
}
