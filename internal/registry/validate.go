package registry

import (
	"fmt"
	"sort"
)

// Missing returns one issue per name that is not a registered stage, in a
// stable order. Callers report them together so the user fixes every typo
// in one pass.
func (r *Registry) Missing(names []string) []string {
	var issues []string
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.stages[name]; !ok {
			issues = append(issues, fmt.Sprintf("unknown stage %q", name))
		}
	}
	sort.Strings(issues)
	return issues
}
