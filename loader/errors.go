package loader

import (
	"fmt"
	"strings"
)

// SchemaError reports a required column missing from the input, or
// given by more than one header (Headers lists them).
type SchemaError struct {
	Column  string
	Headers []string
}

func (e *SchemaError) Error() string {
	if len(e.Headers) > 1 {
		return fmt.Sprintf("column %q given by more than one header: %s", e.Column, strings.Join(e.Headers, ", "))
	}
	return fmt.Sprintf("missing required column %q", e.Column)
}

// TypeCoercionError reports a value that cannot be coerced to its
// column's type or falls outside the column's domain. Row is the 1-based
// data row index (the header is not counted).
type TypeCoercionError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("row %d: field %s: cannot use %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }
