package types

import "fmt"

// FieldType is the logical type of a schema field
type FieldType string

const (
	FieldUUID    FieldType = "uuid"
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldJSON    FieldType = "json"
)

// Valid reports whether the field type is one of the supported kinds
func (t FieldType) Valid() bool {
	switch t {
	case FieldUUID, FieldString, FieldNumber, FieldBoolean, FieldDate, FieldJSON:
		return true
	}
	return false
}

// SchemaField describes one logical field of a collection
type SchemaField struct {
	Name      string    `json:"name" yaml:"name"`
	Type      FieldType `json:"type" yaml:"type"`
	Nullable  bool      `json:"nullable" yaml:"nullable"`
	Unique    bool      `json:"unique,omitempty" yaml:"unique,omitempty"`
	Indexed   bool      `json:"indexed,omitempty" yaml:"indexed,omitempty"`
	MaxLength int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// CompositeIndex is a named multi-column index declared on a schema
type CompositeIndex struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
	Unique bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// BaseFields are implicit on every collection regardless of schema contents.
// They are managed by the engine and must not appear in a schema's Fields.
var BaseFields = []string{"id", "createdAt", "updatedAt", "version"}

// CollectionSchema describes the logical shape of a collection.
// It is immutable once passed to EnsureSchema.
type CollectionSchema struct {
	Collection string           `json:"collection" yaml:"collection"`
	Fields     []SchemaField    `json:"fields" yaml:"fields"`
	Indexes    []CompositeIndex `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Field returns the schema field with the given name, or nil
func (s *CollectionSchema) Field(name string) *SchemaField {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Validate checks schema invariants before the engine accepts it
func (s *CollectionSchema) Validate() error {
	if s.Collection == "" {
		return ErrEmptyCollection
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: collection %s", ErrEmptyFieldName, s.Collection)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: field %s.%s has type %q", ErrInvalidFieldType, s.Collection, f.Name, f.Type)
		}
		for _, base := range BaseFields {
			if f.Name == base {
				return fmt.Errorf("%w: %s.%s", ErrReservedFieldName, s.Collection, f.Name)
			}
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, s.Collection, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	for _, idx := range s.Indexes {
		if idx.Name == "" || len(idx.Fields) == 0 {
			return fmt.Errorf("%w: collection %s", ErrInvalidIndex, s.Collection)
		}
		for _, fn := range idx.Fields {
			if s.Field(fn) == nil {
				return fmt.Errorf("%w: index %s references unknown field %s", ErrInvalidIndex, idx.Name, fn)
			}
		}
	}
	return nil
}
