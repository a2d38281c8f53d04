package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a zone identifier has no match.
var ErrNotFound = errors.New("zone not found")

// SchemaError reports a source whose structure cannot produce a ZoneSet:
// required columns are absent or the tabular data is malformed.
type SchemaError struct {
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return "schema: missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return "schema: " + e.Reason
}

// SourceUnavailableError reports a source that could not be opened or read.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// CoercionWarning records a cell whose value could not be coerced to the
// column type (numeric, or non-empty text for the name). The row is kept with
// that field marked missing.
type CoercionWarning struct {
	Row    int    `json:"row"` // 1-based data row, header excluded
	ZoneID int    `json:"zone_id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("row %d (zone %d): %s=%q could not be coerced", w.Row, w.ZoneID, w.Field, w.Value)
}

// IsLoadFailure reports whether err is a fatal load error that a caller may retry.
func IsLoadFailure(err error) bool {
	var schemaErr *SchemaError
	var sourceErr *SourceUnavailableError
	return errors.As(err, &schemaErr) || errors.As(err, &sourceErr)
}
