package hades

import (
	"fmt"
	"slices"
	"strings"
)

type clauseKey string

const (
	clauseWhere  clauseKey = "where"
	clauseGroup  clauseKey = "group"
	clauseHaving clauseKey = "having"
	clauseOrder  clauseKey = "order"
	clauseLimit  clauseKey = "limit"
	clauseOffset clauseKey = "offset"
)

var (
	// readClauses covers Fetch, FetchColumns, and Count.
	readClauses = []clauseKey{clauseWhere, clauseGroup, clauseHaving, clauseOrder, clauseLimit, clauseOffset}
	// writeClauses covers Set and Delete. Grouping makes no sense on a
	// mutation statement.
	writeClauses = []clauseKey{clauseWhere, clauseOrder, clauseLimit, clauseOffset}
)

// queryOptions holds at most one value per clause. Zero values mean
// the clause is absent.
type queryOptions struct {
	where  Condition
	group  []Modifier
	having Condition
	order  []Modifier
	limit  int
	offset int
}

func (options queryOptions) populated() []clauseKey {
	keys := []clauseKey{}
	if options.where != nil {
		keys = append(keys, clauseWhere)
	}
	if len(options.group) > 0 {
		keys = append(keys, clauseGroup)
	}
	if options.having != nil {
		keys = append(keys, clauseHaving)
	}
	if len(options.order) > 0 {
		keys = append(keys, clauseOrder)
	}
	if options.limit > 0 {
		keys = append(keys, clauseLimit)
	}
	if options.offset > 0 {
		keys = append(keys, clauseOffset)
	}

	return keys
}

// compile renders the clause suffix in the fixed order WHERE, GROUP
// BY, HAVING, ORDER BY, LIMIT. The offset never stands alone: with a
// limit it folds into the LIMIT <offset>, <count> form and without
// one it drops out entirely. A non-empty suffix carries one leading
// space; the returned values are the where values followed by the
// having values.
func (options queryOptions) compile(allowed []clauseKey) (string, []any, error) {
	for _, key := range options.populated() {
		if !slices.Contains(allowed, key) {
			return "", nil, fmt.Errorf("%w: %s", ErrInvalidClauseCombination, key)
		}
	}

	parts := []string{}
	args := []any{}

	if options.where != nil {
		fragment, whereArgs, err := options.where.compile()
		if err != nil {
			return "", nil, err
		}

		parts = append(parts, "WHERE "+fragment)
		args = append(args, whereArgs...)
	}

	if len(options.group) > 0 {
		parts = append(parts, compileModifiers(options.group, "GROUP BY", false))
	}

	if options.having != nil {
		fragment, havingArgs, err := options.having.compile()
		if err != nil {
			return "", nil, err
		}

		parts = append(parts, "HAVING "+fragment)
		args = append(args, havingArgs...)
	}

	if len(options.order) > 0 {
		parts = append(parts, compileModifiers(options.order, "ORDER BY", true))
	}

	if options.limit > 0 {
		if options.offset > 0 {
			parts = append(parts, fmt.Sprintf("LIMIT %d, %d", options.offset, options.limit))
		} else {
			parts = append(parts, fmt.Sprintf("LIMIT %d", options.limit))
		}
	}

	if len(parts) == 0 {
		return "", []any{}, nil
	}

	return " " + strings.Join(parts, " "), args, nil
}
