package hades

import (
	"context"
	"database/sql"
	"log/slog"
)

type DatabaseConfigFunc func(database *Database) error

func WithPostConnectFunc(callback func(db *sql.DB) error) DatabaseConfigFunc {
	return func(database *Database) error {
		return callback(database.standardLibraryDB)
	}
}

func WithPreRunFunc(preRunFunc func(ctx context.Context, statement string, args []any) error) DatabaseConfigFunc {
	return func(database *Database) error {
		database.preRunFuncs = append(database.preRunFuncs, preRunFunc)

		return nil
	}
}

func WithPostRunFunc(postRunFunc func(ctx context.Context) error) DatabaseConfigFunc {
	return func(database *Database) error {
		database.postRunFuncs = append(database.postRunFuncs, postRunFunc)

		return nil
	}
}

func WithLogger(logger *slog.Logger) DatabaseConfigFunc {
	return func(database *Database) error {
		database.preRunFuncs = append(database.preRunFuncs, func(ctx context.Context, statement string, args []any) error {
			logger.Info("Database Run",
				"statement", statement,
				"args", args,
			)

			return nil
		})

		return nil
	}
}
