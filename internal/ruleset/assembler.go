package ruleset

import "snitchgen/internal/category"

// CatchAllNotes is attached to the default-deny directive appended in
// allow mode.
const CatchAllNotes = "Default deny for all traffic not explicitly allowed"

// Assemble converts the selected categories into the output directive
// sequence. Order is selection order, then rule-group order within a
// category, then domain order within a group; a category's process
// rules follow its domain rules. Duplicate (action, target) pairs are
// dropped, first occurrence wins.
//
// In allow mode, process paths emit nothing: "allow this process" is
// not a concept in the target rule format, so only domains become
// allow directives. A single catch-all deny directive is appended at
// the end, even for an empty selection. Assembly cannot fail.
func Assemble(selected []category.Category, mode Mode) []Directive {
	action := ActionDeny
	if mode == ModeAllow {
		action = ActionAllow
	}

	type dedupKey struct {
		action Action
		target string
	}
	seen := make(map[dedupKey]struct{})

	var out []Directive
	emit := func(d Directive) {
		k := dedupKey{action: d.Action, target: d.Target}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}

	for _, cat := range selected {
		for _, group := range cat.Rules {
			for _, domain := range group.Domains {
				emit(Directive{
					Action:   action,
					Kind:     TargetDomain,
					Target:   domain,
					Category: cat.ID,
					Notes:    group.Notes,
				})
			}
		}
		if mode != ModeBlock {
			continue
		}
		for _, group := range cat.Rules {
			if group.DenyProcess == "" {
				continue
			}
			emit(Directive{
				Action:   ActionDeny,
				Kind:     TargetProcess,
				Target:   group.DenyProcess,
				Category: cat.ID,
				Notes:    group.Notes,
			})
		}
	}

	if mode == ModeAllow {
		out = append(out, Directive{
			Action: ActionDeny,
			Kind:   TargetAny,
			Notes:  CatchAllNotes,
		})
	}

	return out
}
