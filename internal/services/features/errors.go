package features

import "fmt"

// ShapeError reports a payload whose JSON shape cannot be turned into
// records at all.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "invalid payload: " + e.Reason }

// SchemaError reports a record that does not match the model's feature
// schema: a missing or unknown column, or a value of the wrong type.
type SchemaError struct {
	Row    int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record %d: field %q: %s", e.Row, e.Field, e.Reason)
}

// EncodingError reports a categorical value that has no code in the
// encoding table.
type EncodingError struct {
	Row   int
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("record %d: unknown %s category %q", e.Row, e.Field, e.Value)
}
