package hades

import (
	"context"
	"database/sql"
)

// Driver opens and describes one database target. Implementations
// live in this package so the compiled SQL and the servers it runs on
// stay in agreement.
type Driver interface {
	Open() (*sql.DB, error)
	// identity is the cache key for connection reuse: one long-lived
	// Database per distinct server+credentials+database tuple.
	identity() string
	// primaryKey asks the server for the table's key column, for row
	// types that do not tag one.
	primaryKey(ctx context.Context, database *Database, tableName string) (string, error)
	wrapError(err error) error
}
