package sqlutil

import (
	"fmt"
	"reflect"
	"strings"
)

// Prepare expands the positional placeholders of a raw condition
// fragment. The i-th ? pairs with the i-th argument; a slice or array
// argument is splatted into an inline (?, ?, ...) list with its
// elements spliced into the returned argument list at that position.
// []byte stays a single scalar value.
//
// The scan is a plain character walk, so a ? inside a quoted string
// literal in the fragment counts as a placeholder too.
func Prepare(fragment string, args []any) (string, []any, error) {
	placeholderCount := strings.Count(fragment, "?")
	if placeholderCount != len(args) {
		return "", nil, fmt.Errorf(
			"condition has %d placeholders but %d values",
			placeholderCount,
			len(args),
		)
	}

	builder := strings.Builder{}
	preparedArgs := make([]any, 0, len(args))
	argIndex := 0

	for _, character := range fragment {
		if character != '?' {
			builder.WriteRune(character)
			continue
		}

		arg := args[argIndex]
		argIndex++

		if !isSequence(arg) {
			builder.WriteString("?")
			preparedArgs = append(preparedArgs, arg)
			continue
		}

		valueOf := reflect.ValueOf(arg)
		placeholders := make([]string, 0, valueOf.Len())
		for i := range valueOf.Len() {
			placeholders = append(placeholders, "?")
			preparedArgs = append(preparedArgs, valueOf.Index(i).Interface())
		}

		builder.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}

	return builder.String(), preparedArgs, nil
}

func isSequence(value any) bool {
	if value == nil {
		return false
	}

	// Blobs go to the driver whole
	if _, isBytes := value.([]byte); isBytes {
		return false
	}

	kind := reflect.TypeOf(value).Kind()

	return kind == reflect.Slice || kind == reflect.Array
}
