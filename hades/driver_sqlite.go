package hades

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// NewDriverSQLite targets a local sqlite file. The compiled SQL is
// MySQL flavored throughout; sqlite accepts the backtick quoting, the
// positional placeholders, and the LIMIT offset folding, but not the
// &&, ||, and XOR boolean operators, so grouped conditions only run
// against MySQL targets.
func NewDriverSQLite(path string) Driver {
	return &driverSQLite{
		path: path,
	}
}

type driverSQLite struct {
	path string
}

func (driver *driverSQLite) Open() (*sql.DB, error) {
	return sql.Open(
		"sqlite3",
		fmt.Sprintf("file:%s?cache=shared&_foreign_keys=on", driver.path),
	)
}

func (driver *driverSQLite) identity() string {
	return "sqlite://" + driver.path
}

func (driver *driverSQLite) primaryKey(
	ctx context.Context,
	database *Database,
	tableName string,
) (
	string,
	error,
) {
	columns := []sqliteKeyColumn{}
	if err := database.runSelect(ctx, statement{
		SQL:  "SELECT name AS column_name, pk AS key_position FROM pragma_table_xinfo(?) ORDER BY pk",
		Args: []any{tableName},
	}, &columns); err != nil {
		return "", err
	}

	for _, column := range columns {
		if column.KeyPosition > 0 {
			return column.Name, nil
		}
	}

	return "", ErrNoPrimaryKey
}

func (driver *driverSQLite) wrapError(err error) error {
	sqliteError := sqlite3.Error{}
	if errors.As(err, &sqliteError) {
		return &ExecError{
			Code:    int(sqliteError.Code),
			Message: sqliteError.Error(),
			wrapped: err,
		}
	}

	return &ExecError{
		Message: err.Error(),
		wrapped: err,
	}
}

type sqliteKeyColumn struct {
	Name        string `db:"column_name"`
	KeyPosition int    `db:"key_position"`
}
