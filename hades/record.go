package hades

import (
	"database/sql"
	"fmt"
	"regexp"
)

// Record is one untyped projection row, keyed by result column name.
type Record map[string]any

// Projection is one output column of a FetchColumns call.
type Projection struct {
	expression string
	alias      string
}

// As aliases a projection expression: As("COUNT(*)", "total") renders
// as (COUNT(*)) AS `total`.
func As(expression string, alias string) Projection {
	return Projection{
		expression: expression,
		alias:      alias,
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// renderProjection quotes a plain identifier with backticks and wraps
// anything else in parentheses so arbitrary expressions stay one
// projection column each.
func renderProjection(column any) (string, error) {
	switch typed := column.(type) {
	case string:
		if typed == "" {
			return "", fmt.Errorf("%w: blank projection column", ErrInvalidArgument)
		}

		if identifierPattern.MatchString(typed) {
			return fmt.Sprintf("`%s`", typed), nil
		}

		return fmt.Sprintf("(%s)", typed), nil
	case Projection:
		if typed.expression == "" || typed.alias == "" {
			return "", fmt.Errorf("%w: blank projection expression or alias", ErrInvalidArgument)
		}

		return fmt.Sprintf("(%s) AS `%s`", typed.expression, typed.alias), nil
	}

	return "", fmt.Errorf("%w: unsupported projection type %T", ErrInvalidArgument, column)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for rows.Next() {
		cells := make([]any, len(columns))
		cellPointers := make([]any, len(columns))
		for i := range cells {
			cellPointers[i] = &cells[i]
		}

		if err := rows.Scan(cellPointers...); err != nil {
			return nil, err
		}

		record := Record{}
		for i, column := range columns {
			record[column] = normalizeCell(cells[i])
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// normalizeCell turns driver byte slices into strings so projection
// rows compare naturally.
func normalizeCell(value any) any {
	if bytes, isBytes := value.([]byte); isBytes {
		return string(bytes)
	}

	return value
}
