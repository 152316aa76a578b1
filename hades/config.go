package hades

import (
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the connection settings for the built-in drivers.
type Config struct {
	DatabaseDriver string `env:"HADES_DRIVER"`
	MySQLHost      string `env:"MYSQL_HOST"`
	MySQLPort      int    `env:"MYSQL_PORT"`
	MySQLUser      string `env:"MYSQL_USER"`
	MySQLPass      string `env:"MYSQL_PASS"`
	MySQLName      string `env:"MYSQL_NAME"`
	SQLitePath     string `env:"SQLITE_PATH"`
}

// NewConfig returns the default settings: a sqlite database in the
// working directory.
func NewConfig() Config {
	return Config{
		DatabaseDriver: "sqlite",
		MySQLHost:      "127.0.0.1",
		MySQLPort:      3306,
		SQLitePath:     "database.sqlite",
	}
}

// NewConfigFromEnvironment loads a .env file when one is present and
// then overlays the defaults with whatever env vars are set.
func NewConfigFromEnvironment() (Config, error) {
	_ = godotenv.Load()

	config := NewConfig()
	if err := applyEnvironment(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

func applyEnvironment(config *Config) error {
	value := reflect.ValueOf(config).Elem()
	structType := value.Type()

	for i := range value.NumField() {
		key := structType.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}

		raw := os.Getenv(key)
		if raw == "" {
			continue
		}

		field := value.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Int:
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%w: %s must be a number: %w", ErrInvalidArgument, key, err)
			}

			field.SetInt(int64(parsed))
		}
	}

	return nil
}

// Driver builds the Driver the config points at.
func (config Config) Driver() (Driver, error) {
	switch config.DatabaseDriver {
	case "sqlite":
		return NewDriverSQLite(config.SQLitePath), nil
	case "mysql":
		return NewDriverMySQL(DriverMySQLConfig{
			Host: config.MySQLHost,
			Port: config.MySQLPort,
			User: config.MySQLUser,
			Pass: config.MySQLPass,
			Name: config.MySQLName,
		}), nil
	}

	return nil, fmt.Errorf("%w: unknown database driver %q", ErrInvalidArgument, config.DatabaseDriver)
}
