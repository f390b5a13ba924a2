package model

import (
	"errors"
	"fmt"
)

// ErrDanglingReference is returned when a relationship endpoint does not name
// any entity of the same extraction after resolution.
var ErrDanglingReference = errors.New("dangling relationship reference")

// SchemaError is a permanent extraction failure: the payload does not match
// the DocumentExtraction schema.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema validation: %s: %v", e.Reason, e.Err)
	}
	return "schema validation: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
