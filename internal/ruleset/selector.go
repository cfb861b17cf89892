package ruleset

import (
	"fmt"

	"snitchgen/internal/category"
	"snitchgen/internal/pattern"
)

// Select computes the ordered subset of categories that participate in
// rule generation. The starting set is everything when params.All is
// set, otherwise the union of include-pattern matches. Categories above
// the severity ceiling are dropped, then exclude patterns are applied;
// exclude always wins over include. Output order is store load order.
//
// An empty result is valid. Literal patterns that match no category id
// are returned as warnings, or as an *UnknownPatternError when
// params.Strict is set.
func Select(store *category.Store, params Params) ([]category.Category, []string, error) {
	include, err := pattern.CompileAll(params.Include)
	if err != nil {
		return nil, nil, err
	}
	exclude, err := pattern.CompileAll(params.Exclude)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	for _, matchers := range [][]pattern.Matcher{include, exclude} {
		for _, m := range matchers {
			if !m.IsLiteral() {
				continue
			}
			if _, ok := store.Get(m.String()); ok {
				continue
			}
			if params.Strict {
				return nil, nil, &UnknownPatternError{Pattern: m.String()}
			}
			warnings = append(warnings, fmt.Sprintf("pattern %q matches no category", m))
		}
	}

	var selected []category.Category
	for _, cat := range store.Categories() {
		if !params.All && !pattern.MatchAny(include, cat.ID) {
			continue
		}
		if cat.Severity > params.Severity {
			continue
		}
		if pattern.MatchAny(exclude, cat.ID) {
			continue
		}
		selected = append(selected, cat)
	}

	return selected, warnings, nil
}
