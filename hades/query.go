package hades

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Values holds the column assignments of a Set call. Columns compile
// in sorted order so the emitted UPDATE is stable between calls.
type Values map[string]any

// Query accumulates clauses against one table and runs them through
// the terminal operations. Configuration calls mutate the builder in
// place and return it for chaining; the first malformed argument
// latches an error that every later terminal call reports. A builder
// is meant for a single goroutine.
type Query[T Entity] struct {
	table    *Table[T]
	options  queryOptions
	err      error
	cache    []T
	cached   bool
	iterated bool
}

func (query *Query[T]) fail(err error) *Query[T] {
	if query.err == nil {
		query.err = err
	}

	return query
}

// Where replaces the filter condition. A string starts a leaf
// condition with its bound values, a Condition built from Cond, And,
// Or, or Xor is stored as given, and nil or an empty string clears
// the clause.
func (query *Query[T]) Where(condition any, args ...any) *Query[T] {
	return query.setCondition(&query.options.where, condition, args)
}

// Having replaces the post-grouping condition, accepting the same
// forms as Where.
func (query *Query[T]) Having(condition any, args ...any) *Query[T] {
	return query.setCondition(&query.options.having, condition, args)
}

func (query *Query[T]) setCondition(target *Condition, condition any, args []any) *Query[T] {
	switch typed := condition.(type) {
	case nil:
		if len(args) > 0 {
			return query.fail(fmt.Errorf("%w: values given without a condition", ErrInvalidArgument))
		}

		*target = nil
	case string:
		if typed == "" {
			if len(args) > 0 {
				return query.fail(fmt.Errorf("%w: values given without a condition", ErrInvalidArgument))
			}

			*target = nil

			return query
		}

		next := Cond(typed, args...)
		if err := next.validate(); err != nil {
			return query.fail(fmt.Errorf("%w: %w", ErrInvalidArgument, err))
		}

		*target = next
	case Condition:
		if len(args) > 0 {
			return query.fail(fmt.Errorf("%w: values belong on the condition itself", ErrInvalidArgument))
		}

		if err := typed.validate(); err != nil {
			return query.fail(fmt.Errorf("%w: %w", ErrInvalidArgument, err))
		}

		*target = typed
	default:
		return query.fail(fmt.Errorf("%w: unsupported condition type %T", ErrInvalidArgument, condition))
	}

	return query
}

// GroupBy replaces the grouping columns. An empty call clears the
// grouping and the having condition with it, since having is
// meaningless without grouping.
func (query *Query[T]) GroupBy(columns ...string) *Query[T] {
	if len(columns) == 0 {
		query.options.group = nil
		query.options.having = nil

		return query
	}

	group := make([]Modifier, 0, len(columns))
	for _, column := range columns {
		if column == "" {
			return query.fail(fmt.Errorf("%w: blank grouping column", ErrInvalidArgument))
		}

		group = append(group, Modifier{Column: column})
	}
	query.options.group = group

	return query
}

// SortBy replaces the sort order. Entries are column name strings or
// Modifiers from Ascending and Descending; an empty call clears the
// clause.
func (query *Query[T]) SortBy(columns ...any) *Query[T] {
	if len(columns) == 0 {
		query.options.order = nil

		return query
	}

	order := make([]Modifier, 0, len(columns))
	for _, column := range columns {
		switch typed := column.(type) {
		case string:
			if typed == "" {
				return query.fail(fmt.Errorf("%w: blank sort column", ErrInvalidArgument))
			}

			order = append(order, Modifier{Column: typed})
		case Modifier:
			if typed.Column == "" {
				return query.fail(fmt.Errorf("%w: blank sort column", ErrInvalidArgument))
			}

			order = append(order, typed)
		default:
			return query.fail(fmt.Errorf("%w: unsupported sort entry type %T", ErrInvalidArgument, column))
		}
	}
	query.options.order = order

	return query
}

// Limit caps the row count. Zero clears the clause.
func (query *Query[T]) Limit(count int) *Query[T] {
	if count < 0 {
		return query.fail(fmt.Errorf("%w: negative limit %d", ErrInvalidArgument, count))
	}

	query.options.limit = count

	return query
}

// Offset skips rows ahead of the limited window. It only renders when
// a limit is present; zero clears it.
func (query *Query[T]) Offset(count int) *Query[T] {
	if count < 0 {
		return query.fail(fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, count))
	}

	query.options.offset = count

	return query
}

// ToSQL renders the SELECT this builder would run, without touching
// the database.
func (query *Query[T]) ToSQL() (string, []any, error) {
	if query.err != nil {
		return "", nil, query.err
	}

	suffix, args, err := query.options.compile(readClauses)
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("SELECT * FROM `%s`", query.table.name) + suffix, args, nil
}

// Fetch runs the SELECT, materializes every row, and keeps the result
// on the builder for Count and Iter to reuse.
func (query *Query[T]) Fetch(ctx context.Context) ([]T, error) {
	sqlText, args, err := query.ToSQL()
	if err != nil {
		return nil, err
	}

	target := []T{}
	if err := query.table.database.runSelect(ctx, statement{SQL: sqlText, Args: args}, &target); err != nil {
		return nil, err
	}

	query.cache = target
	query.cached = true
	query.iterated = false

	return target, nil
}

// FetchColumns runs the SELECT with an explicit projection instead of
// *: plain identifiers are backtick quoted, any other string is
// treated as an expression and parenthesized, and As attaches an
// alias. Rows come back untyped; the typed row cache is left alone.
func (query *Query[T]) FetchColumns(ctx context.Context, columns ...any) ([]Record, error) {
	if query.err != nil {
		return nil, query.err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no projection columns", ErrInvalidArgument)
	}

	rendered := make([]string, 0, len(columns))
	for _, column := range columns {
		part, err := renderProjection(column)
		if err != nil {
			return nil, err
		}

		rendered = append(rendered, part)
	}

	suffix, args, err := query.options.compile(readClauses)
	if err != nil {
		return nil, err
	}

	return query.table.database.runSelectRecords(ctx, statement{
		SQL:  fmt.Sprintf("SELECT %s FROM `%s`", strings.Join(rendered, ", "), query.table.name) + suffix,
		Args: args,
	})
}

// Count returns the cached row count when rows are already
// materialized and otherwise runs a COUNT(*) with the same clauses.
func (query *Query[T]) Count(ctx context.Context) (int64, error) {
	if query.err != nil {
		return 0, query.err
	}

	if query.cached {
		return int64(len(query.cache)), nil
	}

	suffix, args, err := query.options.compile(readClauses)
	if err != nil {
		return 0, err
	}

	totals := []countRow{}
	if err := query.table.database.runSelect(ctx, statement{
		SQL:  fmt.Sprintf("SELECT COUNT(*) AS `total` FROM `%s`", query.table.name) + suffix,
		Args: args,
	}, &totals); err != nil {
		return 0, err
	}

	if len(totals) == 0 {
		return 0, nil
	}

	return totals[0].Total, nil
}

type countRow struct {
	Total int64 `db:"total"`
}

// First fetches with a limit of one and returns the single row, or
// ErrNoRows when nothing matches. The builder itself is left as
// configured.
func (query *Query[T]) First(ctx context.Context) (T, error) {
	limited := &Query[T]{
		table:   query.table,
		options: query.options,
		err:     query.err,
	}
	limited.options.limit = 1
	limited.options.offset = 0

	rows, err := limited.Fetch(ctx)
	if err != nil {
		return *new(T), err
	}

	if len(rows) == 0 {
		return *new(T), ErrNoRows
	}

	return rows[0], nil
}

// Set runs an UPDATE with the current clauses, assigning the given
// values in sorted column order, and reports the affected-row count.
// The materialized row cache is dropped.
func (query *Query[T]) Set(ctx context.Context, values Values) (int64, error) {
	if query.err != nil {
		return 0, query.err
	}

	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no values to set", ErrInvalidArgument)
	}

	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	slices.Sort(columns)

	sets := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, column := range columns {
		sets = append(sets, fmt.Sprintf("`%s` = ?", column))
		args = append(args, values[column])
	}

	suffix, suffixArgs, err := query.options.compile(writeClauses)
	if err != nil {
		return 0, err
	}

	result, err := query.table.database.runExecute(ctx, statement{
		SQL:  fmt.Sprintf("UPDATE `%s` SET %s", query.table.name, strings.Join(sets, ", ")) + suffix,
		Args: append(args, suffixArgs...),
	})
	if err != nil {
		return 0, err
	}

	query.invalidate()

	return result.RowsAffected()
}

// Delete removes the matching rows and reports how many went away.
// The materialized row cache is dropped.
func (query *Query[T]) Delete(ctx context.Context) (int64, error) {
	if query.err != nil {
		return 0, query.err
	}

	suffix, args, err := query.options.compile(writeClauses)
	if err != nil {
		return 0, err
	}

	result, err := query.table.database.runExecute(ctx, statement{
		SQL:  fmt.Sprintf("DELETE FROM `%s`", query.table.name) + suffix,
		Args: args,
	})
	if err != nil {
		return 0, err
	}

	query.invalidate()

	return result.RowsAffected()
}

func (query *Query[T]) invalidate() {
	query.cache = nil
	query.cached = false
	query.iterated = false
}

// Iter returns an iterator over the materialized rows. The first
// iterator after a fetch replays the cached result; asking for
// another one afterwards runs the query again, so mutations between
// iterations show up on re-iteration.
func (query *Query[T]) Iter(ctx context.Context) *Iterator[T] {
	if query.err != nil {
		return &Iterator[T]{err: query.err}
	}

	if !query.cached || query.iterated {
		if _, err := query.Fetch(ctx); err != nil {
			return &Iterator[T]{err: err}
		}
	}
	query.iterated = true

	return &Iterator[T]{rows: query.cache}
}

// Iterator walks one materialized result set front to back.
type Iterator[T Entity] struct {
	rows     []T
	position int
	err      error
}

// Next reports whether another row is available and advances to it.
func (iterator *Iterator[T]) Next() bool {
	if iterator.err != nil {
		return false
	}

	if iterator.position >= len(iterator.rows) {
		return false
	}

	iterator.position++

	return true
}

// Row returns the row Next advanced to.
func (iterator *Iterator[T]) Row() T {
	return iterator.rows[iterator.position-1]
}

// Err returns the error that prevented iteration, if any.
func (iterator *Iterator[T]) Err() error {
	return iterator.err
}
