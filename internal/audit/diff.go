package audit

import (
	"fmt"
	"strings"
)

// FieldChange is one before/after pair in an update's detail string.
type FieldChange struct {
	Campo  string
	Antes  string
	Depois string
}

// Changed appends a change when the values differ, so callers can build the
// diff with one line per candidate field.
func Changed(changes []FieldChange, campo, antes, depois string) []FieldChange {
	if antes == depois {
		return changes
	}
	return append(changes, FieldChange{Campo: campo, Antes: antes, Depois: depois})
}

// FormatChanges renders field diffs for an update's audit detail. Multi-field
// updates produce one entry enumerating every change, never one entry per
// field.
func FormatChanges(changes []FieldChange) string {
	if len(changes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", c.Campo, c.Antes, c.Depois))
	}
	return strings.Join(parts, "; ")
}
