// Package table provides an in-memory report table over denormalized rows with
// free-text search, date filtering and serialization for JSON, HTML and
// spreadsheet output.
package table

import (
	"errors"
	"fmt"
)

// FieldType describes how a field's values are interpreted
type FieldType string

const (
	// FieldText values take part in free-text search
	FieldText FieldType = "text"
	// FieldDate values are DD.MM.YYYY dates and can be filtered by date
	FieldDate FieldType = "date"
)

// RowNumberKey is the key injected into every serialized row
const RowNumberKey = "row_number"

var (
	// ErrNoFields is returned when a table is built without fields
	ErrNoFields = errors.New("at least one field is required")
	// ErrFieldNameRequired is returned when a field has no name
	ErrFieldNameRequired = errors.New("field name is required")
	// ErrDuplicateField is returned when two fields share a name
	ErrDuplicateField = errors.New("duplicate field name")
	// ErrReservedField is returned when a field uses a reserved name
	ErrReservedField = errors.New("reserved field name")
	// ErrInvalidFieldType is returned for unknown field types
	ErrInvalidFieldType = errors.New("invalid field type")
)

// Field describes one column of a table
type Field struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`
}

// Valid reports whether the field type is known
func (t FieldType) Valid() bool {
	return t == FieldText || t == FieldDate
}

// ValidateFields checks a field list for empty or duplicate names and unknown types
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return ErrNoFields
	}

	seen := make(map[string]struct{}, len(fields))

	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d", ErrFieldNameRequired, i)
		}

		if f.Name == RowNumberKey {
			return fmt.Errorf("%w: %q", ErrReservedField, f.Name)
		}

		if !f.Type.Valid() {
			return fmt.Errorf("%w: field %q has type %q, must be one of: text, date", ErrInvalidFieldType, f.Name, f.Type)
		}

		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}

		seen[f.Name] = struct{}{}
	}

	return nil
}

// lookupField returns the field with the given name
func lookupField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}
