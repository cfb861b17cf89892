package ruleset

import "snitchgen/internal/category"

// Generate is the engine invocation boundary: one selection plus one
// assembly over an already-loaded store. It performs no I/O and keeps
// no state between calls; warnings are returned as values for the
// caller to surface.
func Generate(store *category.Store, params Params) ([]Directive, []string, error) {
	selected, warnings, err := Select(store, params)
	if err != nil {
		return nil, nil, err
	}
	return Assemble(selected, params.Mode), warnings, nil
}

// SelectedIDs returns the ids of the selected categories, in order.
func SelectedIDs(selected []category.Category) []string {
	ids := make([]string, 0, len(selected))
	for _, cat := range selected {
		ids = append(ids, cat.ID)
	}
	return ids
}
