package sqlutil

import (
	"reflect"
	"strings"
)

type Tag struct {
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	ReadOnly      bool
}

func ParseTag(tagString reflect.StructTag) Tag {
	parts := strings.Split(tagString.Get("db"), ",")

	tag := Tag{}

	for i, part := range parts {
		if i == 0 {
			tag.Column = part
			continue
		}

		if part == "primaryKey" {
			tag.PrimaryKey = true

			continue
		}

		if part == "autoIncrement" {
			tag.AutoIncrement = true

			continue
		}

		if part == "readOnly" {
			tag.ReadOnly = true

			continue
		}
	}

	return tag
}

// EachColumn walks the db-tagged exported fields of a struct value.
// Untagged fields are skipped.
func EachColumn(value reflect.Value, handler func(tag Tag, field reflect.StructField, fieldValue reflect.Value) error) error {
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}

	for i := range value.NumField() {
		fieldValue := value.Field(i)
		fieldDefinition := value.Type().Field(i)

		if !fieldDefinition.IsExported() {
			continue
		}

		tag := ParseTag(fieldDefinition.Tag)
		if tag.Column == "" {
			continue
		}

		if err := handler(tag, fieldDefinition, fieldValue); err != nil {
			return err
		}
	}

	return nil
}

// Columns maps the column names of a struct type to field indexes.
func Columns(structType reflect.Type) map[string]int {
	columns := map[string]int{}

	for i := range structType.NumField() {
		fieldDefinition := structType.Field(i)
		if !fieldDefinition.IsExported() {
			continue
		}

		tag := ParseTag(fieldDefinition.Tag)
		if tag.Column == "" {
			continue
		}

		columns[tag.Column] = i
	}

	return columns
}
