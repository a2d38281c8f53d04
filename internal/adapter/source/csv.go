// Package source reads zone tables from CSV files on disk or over HTTP.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/climavida/heatzone-service/internal/domain"
)

// readTable decodes a CSV stream into a header and data records. Structural
// CSV problems surface as *domain.SchemaError so no partial table escapes.
func readTable(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width is checked against the header by the loader
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, &domain.SchemaError{Reason: "source is empty"}
	}
	if err != nil {
		return domain.Table{}, csvError(err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, csvError(err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return domain.Table{Header: header, Records: records}, nil
}

func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &domain.SchemaError{Reason: fmt.Sprintf("malformed csv at line %d: %v", parseErr.Line, parseErr.Err)}
	}
	return err
}

func isBlank(rec []string) bool {
	return len(rec) == 1 && rec[0] == ""
}
