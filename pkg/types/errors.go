package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyCollection   = errors.New("collection name cannot be empty")
	ErrEmptyFieldName    = errors.New("field name cannot be empty")
	ErrInvalidFieldType  = errors.New("invalid field type")
	ErrReservedFieldName = errors.New("field name is reserved for base record fields")
	ErrDuplicateField    = errors.New("duplicate field name")
	ErrInvalidIndex      = errors.New("invalid composite index")
	ErrUnknownOperator   = errors.New("unknown filter operator")
)
