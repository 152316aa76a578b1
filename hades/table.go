package hades

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/lunagic/hades/hades/internal/sqlutil"
)

// Entity names the table a row struct maps to.
type Entity interface {
	TableName() string
}

// Lifecycle hooks. Save and Delete check for these on the row pointer
// and call them around the write when the row type implements them.
type BeforeSaver interface {
	BeforeSave(ctx context.Context) error
}

type AfterSaver interface {
	AfterSave(ctx context.Context) error
}

type BeforeDeleter interface {
	BeforeDelete(ctx context.Context) error
}

type AfterDeleter interface {
	AfterDelete(ctx context.Context) error
}

type TableConfigFunc func(settings *tableSettings)

type tableSettings struct {
	name      string
	keyColumn string
}

// WithTableName overrides the name the row type reports, for suffixed
// or otherwise renamed copies of the same shape.
func WithTableName(name string) TableConfigFunc {
	return func(settings *tableSettings) {
		settings.name = name
	}
}

// WithPrimaryKey pins the key column up front, skipping both the tag
// lookup and the server metadata round trip.
func WithPrimaryKey(column string) TableConfigFunc {
	return func(settings *tableSettings) {
		settings.keyColumn = column
	}
}

func NewTable[T Entity](database *Database, configFuncs ...TableConfigFunc) *Table[T] {
	var entity T

	settings := tableSettings{
		name: entity.TableName(),
	}
	for _, configFunc := range configFuncs {
		configFunc(&settings)
	}

	return &Table[T]{
		database:  database,
		name:      settings.name,
		keyColumn: settings.keyColumn,
	}
}

// Table maps one row struct type onto one database table.
type Table[T Entity] struct {
	database  *Database
	name      string
	keyColumn string
}

// Query starts a new builder against this table.
func (table *Table[T]) Query() *Query[T] {
	return &Query[T]{
		table: table,
	}
}

// Find fetches the row with the given primary key value.
func (table *Table[T]) Find(ctx context.Context, id any) (T, error) {
	keyColumn, err := table.primaryKey(ctx)
	if err != nil {
		return *new(T), err
	}

	return table.Query().Where(fmt.Sprintf("`%s` = ?", keyColumn), id).First(ctx)
}

// Insert writes a new row. When the row type tags an autoIncrement
// primary key and its field is still zero, the generated id is
// assigned back onto the row.
func (table *Table[T]) Insert(ctx context.Context, entity *T) error {
	columns := []string{}
	placeholders := []string{}
	args := []any{}

	if err := sqlutil.EachColumn(reflect.ValueOf(entity), func(tag sqlutil.Tag, field reflect.StructField, fieldValue reflect.Value) error {
		if tag.ReadOnly {
			return nil
		}

		if tag.AutoIncrement && fieldValue.IsZero() {
			return nil
		}

		value, err := columnValue(field, fieldValue)
		if err != nil {
			return err
		}

		columns = append(columns, fmt.Sprintf("`%s`", tag.Column))
		placeholders = append(placeholders, "?")
		args = append(args, value)

		return nil
	}); err != nil {
		return err
	}

	result, err := table.database.runExecute(ctx, statement{
		SQL: fmt.Sprintf(
			"INSERT INTO `%s` (%s) VALUES (%s)",
			table.name,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		),
		Args: args,
	})
	if err != nil {
		return err
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	if lastInsertID != 0 {
		writeBackPrimaryKey(entity, lastInsertID)
	}

	return nil
}

// Update rewrites the row matching the entity's primary key value.
func (table *Table[T]) Update(ctx context.Context, entity *T) error {
	keyColumn, err := table.primaryKey(ctx)
	if err != nil {
		return err
	}

	sets := []string{}
	args := []any{}

	if err := sqlutil.EachColumn(reflect.ValueOf(entity), func(tag sqlutil.Tag, field reflect.StructField, fieldValue reflect.Value) error {
		if tag.ReadOnly || tag.Column == keyColumn {
			return nil
		}

		value, err := columnValue(field, fieldValue)
		if err != nil {
			return err
		}

		sets = append(sets, fmt.Sprintf("`%s` = ?", tag.Column))
		args = append(args, value)

		return nil
	}); err != nil {
		return err
	}

	keyValue, err := table.primaryKeyValue(entity, keyColumn)
	if err != nil {
		return err
	}

	if _, err := table.database.runExecute(ctx, statement{
		SQL: fmt.Sprintf(
			"UPDATE `%s` SET %s WHERE `%s` = ?",
			table.name,
			strings.Join(sets, ", "),
			keyColumn,
		),
		Args: append(args, keyValue),
	}); err != nil {
		return err
	}

	return nil
}

// Save inserts when the primary key value is still zero and updates
// otherwise, firing the row's save hooks around the write.
func (table *Table[T]) Save(ctx context.Context, entity *T) error {
	if hook, satisfied := any(entity).(BeforeSaver); satisfied {
		if err := hook.BeforeSave(ctx); err != nil {
			return err
		}
	}

	keyColumn, err := table.primaryKey(ctx)
	if err != nil {
		return err
	}

	keyValue, err := table.primaryKeyValue(entity, keyColumn)
	if err != nil {
		return err
	}

	if reflect.ValueOf(keyValue).IsZero() {
		err = table.Insert(ctx, entity)
	} else {
		err = table.Update(ctx, entity)
	}
	if err != nil {
		return err
	}

	if hook, satisfied := any(entity).(AfterSaver); satisfied {
		if err := hook.AfterSave(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes the row matching the entity's primary key value,
// firing the row's delete hooks around the write.
func (table *Table[T]) Delete(ctx context.Context, entity *T) error {
	if hook, satisfied := any(entity).(BeforeDeleter); satisfied {
		if err := hook.BeforeDelete(ctx); err != nil {
			return err
		}
	}

	keyColumn, err := table.primaryKey(ctx)
	if err != nil {
		return err
	}

	keyValue, err := table.primaryKeyValue(entity, keyColumn)
	if err != nil {
		return err
	}

	if _, err := table.database.runExecute(ctx, statement{
		SQL:  fmt.Sprintf("DELETE FROM `%s` WHERE `%s` = ?", table.name, keyColumn),
		Args: []any{keyValue},
	}); err != nil {
		return err
	}

	if hook, satisfied := any(entity).(AfterDeleter); satisfied {
		if err := hook.AfterDelete(ctx); err != nil {
			return err
		}
	}

	return nil
}

// primaryKey resolves the key column once: an explicit WithPrimaryKey
// wins, then a tagged field, then the server's table metadata.
func (table *Table[T]) primaryKey(ctx context.Context) (string, error) {
	if table.keyColumn != "" {
		return table.keyColumn, nil
	}

	var entity T
	typeOf := reflect.TypeOf(entity)
	for i := 0; i < typeOf.NumField(); i++ {
		field := typeOf.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := sqlutil.ParseTag(field.Tag)
		if tag.PrimaryKey && tag.Column != "" {
			table.keyColumn = tag.Column

			return table.keyColumn, nil
		}
	}

	keyColumn, err := table.database.driver.primaryKey(ctx, table.database, table.name)
	if err != nil {
		return "", err
	}

	table.keyColumn = keyColumn

	return table.keyColumn, nil
}

func (table *Table[T]) primaryKeyValue(entity *T, keyColumn string) (any, error) {
	var keyValue any
	found := false

	if err := sqlutil.EachColumn(reflect.ValueOf(entity), func(tag sqlutil.Tag, field reflect.StructField, fieldValue reflect.Value) error {
		if tag.Column == keyColumn {
			keyValue = fieldValue.Interface()
			found = true
		}

		return nil
	}); err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: key column %q has no mapped field on %s", ErrNoPrimaryKey, keyColumn, reflect.TypeFor[T]())
	}

	return keyValue, nil
}

func writeBackPrimaryKey[T any](entity *T, id int64) {
	_ = sqlutil.EachColumn(reflect.ValueOf(entity), func(tag sqlutil.Tag, field reflect.StructField, fieldValue reflect.Value) error {
		if !tag.PrimaryKey || !tag.AutoIncrement {
			return nil
		}

		if fieldValue.CanInt() && fieldValue.IsZero() && fieldValue.CanSet() {
			fieldValue.SetInt(id)
		}

		return nil
	})
}

func columnValue(field reflect.StructField, fieldValue reflect.Value) (any, error) {
	if shouldBeJSON(field) {
		encoded, err := json.Marshal(fieldValue.Interface())
		if err != nil {
			return nil, err
		}

		return string(encoded), nil
	}

	return fieldValue.Interface(), nil
}
