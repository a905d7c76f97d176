// Package taskid normalizes and validates remote task identifiers.
package taskid

import (
	"fmt"
	"regexp"
	"strings"
)

// The API stores tasks under 24-hex-character object ids.
var pattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// fieldOrder is the preference order for the id field in a task payload.
var fieldOrder = []string{"_id", "id", "_idTask"}

// Sanitize strips ':' and '/' anywhere in the id plus surrounding
// whitespace. Ids sometimes arrive with leftovers of a route
// placeholder such as ":id" or "/:id/".
func Sanitize(id string) string {
	id = strings.NewReplacer(":", "", "/", "").Replace(id)
	return strings.TrimSpace(id)
}

// Valid reports whether id has the object id shape.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// FromFields picks the first non-empty id field of a decoded task and
// sanitizes it.
func FromFields(task map[string]any) string {
	for _, k := range fieldOrder {
		v, ok := task[k]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s != "" {
			return Sanitize(s)
		}
	}
	return ""
}
