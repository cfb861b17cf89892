// Package pattern compiles include/exclude patterns into predicates
// over category ids.
package pattern

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// BadPatternError reports a pattern with invalid glob syntax.
type BadPatternError struct {
	Pattern string
	Err     error
}

func (e *BadPatternError) Error() string {
	return fmt.Sprintf("bad pattern %q: %v", e.Pattern, e.Err)
}

func (e *BadPatternError) Unwrap() error { return e.Err }

// Matcher is one compiled pattern: either a literal category id or a
// glob ('*' any run, '?' one character, '[...]' character class).
// Matching is case-sensitive.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// Compile compiles a single pattern. Patterns without glob
// metacharacters stay literal and compare by equality.
func Compile(p string) (Matcher, error) {
	m := Matcher{pattern: p}
	if !strings.ContainsAny(p, "*?[") {
		return m, nil
	}
	g, err := glob.Compile(p)
	if err != nil {
		return Matcher{}, &BadPatternError{Pattern: p, Err: err}
	}
	m.g = g
	return m, nil
}

// CompileAll compiles every pattern, failing on the first invalid one.
func CompileAll(patterns []string) ([]Matcher, error) {
	matchers := make([]Matcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// Match reports whether the pattern matches the given id.
func (m Matcher) Match(id string) bool {
	if m.g != nil {
		return m.g.Match(id)
	}
	return m.pattern == id
}

// IsLiteral reports whether the pattern carries no glob metacharacters.
func (m Matcher) IsLiteral() bool { return m.g == nil }

func (m Matcher) String() string { return m.pattern }

// MatchAny reports whether any matcher matches the given id.
func MatchAny(matchers []Matcher, id string) bool {
	for _, m := range matchers {
		if m.Match(id) {
			return true
		}
	}
	return false
}
