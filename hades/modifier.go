package hades

import (
	"fmt"
	"strings"
)

// Modifier is one entry of a GROUP BY or ORDER BY list.
type Modifier struct {
	Column    string
	Direction string
}

// Ascending sorts a column in ascending order.
func Ascending(column string) Modifier {
	return Modifier{
		Column:    column,
		Direction: "ASC",
	}
}

// Descending sorts a column in descending order.
func Descending(column string) Modifier {
	return Modifier{
		Column:    column,
		Direction: "DESC",
	}
}

// compileModifiers renders an ordered modifier list under the given
// keyword. Column names are backtick quoted as-is, with no
// validation. Any direction that is not ASC or DESC falls back to
// ASC.
func compileModifiers(modifiers []Modifier, keyword string, withDirections bool) string {
	parts := make([]string, 0, len(modifiers))
	for _, modifier := range modifiers {
		part := fmt.Sprintf("`%s`", modifier.Column)
		if withDirections {
			part += " " + normalizeDirection(modifier.Direction)
		}

		parts = append(parts, part)
	}

	return keyword + " " + strings.Join(parts, ", ")
}

func normalizeDirection(direction string) string {
	if strings.EqualFold(direction, "DESC") {
		return "DESC"
	}

	return "ASC"
}
