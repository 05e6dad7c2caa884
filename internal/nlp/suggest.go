package nlp

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

const maxSuggestionDistance = 2

// suggest compares query tokens against registered tool names and
// returns "did you mean" hints for near misses like "nmpa" or "hydar".
func (r *Router) suggest(query string) []string {
	var suggestions []string
	seen := make(map[string]bool)
	names := r.registry.Names()

	for _, token := range strings.Fields(query) {
		token = strings.Trim(token, ".,;:!?")
		if len(token) < 3 {
			continue
		}
		for _, name := range names {
			if token == name || seen[name] {
				continue
			}
			if levenshtein.ComputeDistance(token, name) <= maxSuggestionDistance {
				seen[name] = true
				suggestions = append(suggestions, fmt.Sprintf("did you mean %q?", name))
			}
		}
	}
	return suggestions
}
