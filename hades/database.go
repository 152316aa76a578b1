package hades

import (
	"context"
	"database/sql"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/lunagic/hades/hades/internal/sqlutil"
)

type statement struct {
	SQL  string
	Args []any
}

// Database wraps a single sql.DB opened by a Driver and runs every
// statement the builders produce. The prepared form of each distinct
// statement is cached and reused, which is why identical builder
// state has to compile to byte-identical SQL.
type Database struct {
	driver            Driver
	standardLibraryDB *sql.DB
	preRunFuncs       []func(ctx context.Context, statement string, args []any) error
	postRunFuncs      []func(ctx context.Context) error
	statementsMutex   sync.Mutex
	statements        map[string]*sql.Stmt
	closed            bool
}

func New(driver Driver, configFuncs ...DatabaseConfigFunc) (*Database, error) {
	db, err := driver.Open()
	if err != nil {
		return nil, err
	}

	database := &Database{
		driver:            driver,
		standardLibraryDB: db,
		preRunFuncs:       []func(ctx context.Context, statement string, args []any) error{},
		postRunFuncs:      []func(ctx context.Context) error{},
		statements:        map[string]*sql.Stmt{},
	}

	for _, configFunc := range configFuncs {
		if err := configFunc(database); err != nil {
			return nil, err
		}
	}

	return database, nil
}

func (database *Database) Ping() error {
	return database.standardLibraryDB.Ping()
}

// Close closes the cached prepared statements and the underlying
// connection pool.
func (database *Database) Close() error {
	database.statementsMutex.Lock()
	defer database.statementsMutex.Unlock()

	if database.closed {
		return nil
	}
	database.closed = true

	for _, preparedStatement := range database.statements {
		_ = preparedStatement.Close()
	}
	database.statements = map[string]*sql.Stmt{}

	return database.standardLibraryDB.Close()
}

func (database *Database) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	database.statementsMutex.Lock()
	defer database.statementsMutex.Unlock()

	if database.closed {
		return nil, ErrClosed
	}

	if preparedStatement, found := database.statements[query]; found {
		return preparedStatement, nil
	}

	preparedStatement, err := database.standardLibraryDB.PrepareContext(ctx, query)
	if err != nil {
		return nil, database.driver.wrapError(err)
	}

	database.statements[query] = preparedStatement

	return preparedStatement, nil
}

func (database *Database) runRows(
	ctx context.Context,
	statement statement,
	scan func(rows *sql.Rows) error,
) error {
	if statement.SQL == "" {
		return ErrBlankQuery
	}

	for _, preRunFunc := range database.preRunFuncs {
		if err := preRunFunc(ctx, statement.SQL, statement.Args); err != nil {
			return err
		}
	}

	preparedStatement, err := database.prepared(ctx, statement.SQL)
	if err != nil {
		return err
	}

	rows, err := preparedStatement.QueryContext(ctx, statement.Args...)
	if err != nil {
		return database.driver.wrapError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if err := scan(rows); err != nil {
		return err
	}

	for _, postRunFunc := range database.postRunFuncs {
		if err := postRunFunc(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (database *Database) runSelect(
	ctx context.Context,
	statement statement,
	targetPointer any,
) error {
	return database.runRows(ctx, statement, func(rows *sql.Rows) error {
		return scanInto(rows, targetPointer)
	})
}

func (database *Database) runSelectRecords(
	ctx context.Context,
	statement statement,
) (
	[]Record,
	error,
) {
	records := []Record{}
	if err := database.runRows(ctx, statement, func(rows *sql.Rows) error {
		var err error
		records, err = scanRecords(rows)

		return err
	}); err != nil {
		return nil, err
	}

	return records, nil
}

func (database *Database) runExecute(
	ctx context.Context,
	statement statement,
) (
	sql.Result,
	error,
) {
	if statement.SQL == "" {
		return nil, ErrBlankQuery
	}

	for _, preRunFunc := range database.preRunFuncs {
		if err := preRunFunc(ctx, statement.SQL, statement.Args); err != nil {
			return nil, err
		}
	}

	preparedStatement, err := database.prepared(ctx, statement.SQL)
	if err != nil {
		return nil, err
	}

	result, err := preparedStatement.ExecContext(ctx, statement.Args...)
	if err != nil {
		return nil, database.driver.wrapError(err)
	}

	for _, postRunFunc := range database.postRunFuncs {
		if err := postRunFunc(ctx); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func scanInto(rows *sql.Rows, targetPointer any) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	target := reflect.ValueOf(targetPointer).Elem()
	targetType := target.Type().Elem()

	rowMap := sqlutil.Columns(targetType)

	// -1 marks a result column with no matching field; it scans into a
	// throwaway value so projections wider than the struct still land.
	fieldIndexesToUse := make([]int, 0, len(columns))
	for _, column := range columns {
		fieldIndex, found := rowMap[column]
		if !found {
			fieldIndex = -1
		}

		fieldIndexesToUse = append(fieldIndexesToUse, fieldIndex)
	}

	for rows.Next() {
		row := reflect.New(targetType).Elem()

		scanFields := []any{}
		jsonMapping := map[int]*string{}
		var discard any
		for _, fieldIndexToUse := range fieldIndexesToUse {
			if fieldIndexToUse == -1 {
				scanFields = append(scanFields, &discard)
				continue
			}

			if shouldBeJSON(targetType.Field(fieldIndexToUse)) {
				// Swap in a pointer to a string when the field should be json so we can unmarshal it later
				jsonString := ""
				jsonMapping[fieldIndexToUse] = &jsonString
				scanFields = append(scanFields, &jsonString)
			} else {
				scanFields = append(scanFields, row.Field(fieldIndexToUse).Addr().Interface())
			}
		}

		if err := rows.Scan(scanFields...); err != nil {
			return err
		}

		for fieldIndexToUse, jsonString := range jsonMapping {
			if err := json.Unmarshal([]byte(*jsonString), row.Field(fieldIndexToUse).Addr().Interface()); err != nil {
				return err
			}
		}

		target.Set(reflect.Append(target, row))
	}

	return rows.Err()
}

func shouldBeJSON(fieldDefinition reflect.StructField) bool {
	// JSON encode slices
	if fieldDefinition.Type.Kind() == reflect.Slice {
		// Except raw blobs, which pass through to the driver whole
		if fieldDefinition.Type == reflect.TypeOf((*[]byte)(nil)).Elem() {
			return false
		}

		return true
	}

	// JSON encode structs
	if fieldDefinition.Type.Kind() == reflect.Struct {
		// Don't JSON encode time.Time
		if reflect.TypeOf((*time.Time)(nil)).Elem() == fieldDefinition.Type {
			return false
		}

		return true
	}

	return false
}
