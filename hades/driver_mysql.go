package hades

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-sql-driver/mysql"
)

func NewDriverMySQL(config DriverMySQLConfig) Driver {
	return &driverMySQL{
		config: config,
	}
}

type DriverMySQLConfig struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type driverMySQL struct {
	config DriverMySQLConfig
}

func (driver *driverMySQL) Open() (*sql.DB, error) {
	_ = mysql.SetLogger(log.New(io.Discard, "", log.LstdFlags))

	return sql.Open("mysql", fmt.Sprintf(
		"%s:%s@(%s:%d)/%s?parseTime=true",
		driver.config.User,
		driver.config.Pass,
		driver.config.Host,
		driver.config.Port,
		driver.config.Name,
	))
}

func (driver *driverMySQL) identity() string {
	return fmt.Sprintf(
		"mysql://%s@%s:%d/%s",
		driver.config.User,
		driver.config.Host,
		driver.config.Port,
		driver.config.Name,
	)
}

func (driver *driverMySQL) primaryKey(
	ctx context.Context,
	database *Database,
	tableName string,
) (
	string,
	error,
) {
	keyColumns := []mysqlKeyColumn{}
	if err := database.runSelect(ctx, statement{
		SQL:  "SELECT COLUMN_NAME FROM information_schema.columns WHERE table_schema = ? AND table_name = ? AND column_key = 'PRI' ORDER BY ordinal_position",
		Args: []any{driver.config.Name, tableName},
	}, &keyColumns); err != nil {
		return "", err
	}

	if len(keyColumns) == 0 {
		return "", ErrNoPrimaryKey
	}

	return keyColumns[0].Name, nil
}

func (driver *driverMySQL) wrapError(err error) error {
	mysqlError := &mysql.MySQLError{}
	if errors.As(err, &mysqlError) {
		return &ExecError{
			Code:    int(mysqlError.Number),
			Message: mysqlError.Message,
			wrapped: err,
		}
	}

	return &ExecError{
		Message: err.Error(),
		wrapped: err,
	}
}

type mysqlKeyColumn struct {
	Name string `db:"COLUMN_NAME"`
}
