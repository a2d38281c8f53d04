package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source column names.
const (
	FieldID                = "id"
	FieldName              = "nome"
	FieldLatitude          = "latitude"
	FieldLongitude         = "longitude"
	FieldTemperature       = "temperatura"
	FieldVegetationIndex   = "ndvi"
	FieldPopulationDensity = "densidade_populacional"
	FieldRegion            = "regiao"
)

// RequiredFields must all be present in the source header.
var RequiredFields = []string{
	FieldID,
	FieldName,
	FieldLatitude,
	FieldLongitude,
	FieldTemperature,
	FieldVegetationIndex,
	FieldPopulationDensity,
}

// Table is raw tabular input: one header row and the data records beneath it.
type Table struct {
	Header  []string
	Records [][]string
}

// ParseTable validates the table structure and coerces every record into a
// Zone in source order. Derived fields are left for the Classifier.
//
// Structural problems fail the whole table with a *SchemaError. Cells that
// cannot be coerced do not: the field is zeroed, listed in Zone.Missing and
// reported as a CoercionWarning.
func ParseTable(tbl Table, defaultRegion string) ([]Zone, []CoercionWarning, error) {
	if len(tbl.Header) == 0 {
		return nil, nil, &SchemaError{Reason: "source has no header row"}
	}

	cols := indexHeader(tbl.Header)
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	zones := make([]Zone, 0, len(tbl.Records))
	var warnings []CoercionWarning
	for i, rec := range tbl.Records {
		if len(rec) != len(tbl.Header) {
			return nil, nil, &SchemaError{
				Reason: fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(rec), len(tbl.Header)),
			}
		}
		z, w := parseRecord(i+1, rec, cols, defaultRegion)
		zones = append(zones, z)
		warnings = append(warnings, w...)
	}
	return zones, warnings, nil
}

// indexHeader maps normalized column names to their first position.
func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// recordParser accumulates coercion failures for a single row.
type recordParser struct {
	row      int
	rec      []string
	cols     map[string]int
	zone     Zone
	warnings []CoercionWarning
}

func parseRecord(row int, rec []string, cols map[string]int, defaultRegion string) (Zone, []CoercionWarning) {
	p := &recordParser{row: row, rec: rec, cols: cols}

	p.zone.ID = p.int(FieldID)
	p.zone.Name = p.text(FieldName)
	p.zone.Latitude = p.float(FieldLatitude)
	p.zone.Longitude = p.float(FieldLongitude)
	p.zone.Temperature = p.float(FieldTemperature)
	p.zone.VegetationIndex = p.float(FieldVegetationIndex)
	p.zone.PopulationDensity = p.int(FieldPopulationDensity)

	p.zone.Region = defaultRegion
	if i, ok := cols[FieldRegion]; ok {
		if v := strings.TrimSpace(rec[i]); v != "" {
			p.zone.Region = v
		}
	}

	// Stamp warnings with the parsed id; zero when the id cell itself failed.
	for i := range p.warnings {
		p.warnings[i].ZoneID = p.zone.ID
	}
	return p.zone, p.warnings
}

func (p *recordParser) cell(field string) string {
	return strings.TrimSpace(p.rec[p.cols[field]])
}

func (p *recordParser) fail(field, value string) {
	p.zone.Missing = append(p.zone.Missing, field)
	p.warnings = append(p.warnings, CoercionWarning{Row: p.row, Field: field, Value: value})
}

func (p *recordParser) text(field string) string {
	v := p.cell(field)
	if v == "" {
		p.fail(field, v)
	}
	return v
}

func (p *recordParser) float(field string) float64 {
	raw := p.cell(field)
	v, ok := parseFloat(raw)
	if !ok {
		p.fail(field, raw)
		return 0
	}
	return v
}

// int accepts integral text as well as float text, truncating toward zero.
func (p *recordParser) int(field string) int {
	raw := p.cell(field)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	v, ok := parseFloat(raw)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		p.fail(field, raw)
		return 0
	}
	return int(math.Trunc(v))
}

// parseFloat rejects empty strings, NaN and infinities.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
