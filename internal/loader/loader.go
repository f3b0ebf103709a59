// Package loader imports normalized CSV extracts into the source
// registry: districts, the id crosswalk, staff and enrollment facts, SPED
// estimates, bell schedules, and statutory minutes. Importers are
// line-tolerant: a bad row is counted and reported, never fatal.
package loader

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/edmetrics/lct/internal/util"
)

// Result summarizes one import.
type Result struct {
	RowsRead   int
	RowsLoaded int
	RowsSkipped int
	Errors     []error
}

func (r *Result) skip(line int, err error) {
	r.RowsSkipped++
	if len(r.Errors) < 50 {
		r.Errors = append(r.Errors, fmt.Errorf("row %d: %w", line, err))
	}
}

// row is one CSV record addressed by header name.
type row struct {
	header map[string]int
	fields []string
	line   int
}

// get returns a trimmed column value, empty when the column is absent.
func (r *row) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// float parses an optional numeric column. Empty cells become NULL, which
// downstream distinguishes from a reported zero. Counts are never
// negative, so a negative value is malformed and skips the row.
func (r *row) float(name string) (sql.NullFloat64, error) {
	s := r.get(name)
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("column %s: %w", name, err)
	}
	if v < 0 {
		return sql.NullFloat64{}, fmt.Errorf("column %s: negative value %s", name, s)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// requireFloat parses a mandatory numeric column.
func (r *row) requireFloat(name string) (float64, error) {
	v, err := r.float(name)
	if err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, fmt.Errorf("column %s: missing value", name)
	}
	return v.Float64, nil
}

// forEachRow streams a CSV file, calling fn per record. The first record
// is the header; lookup is by name so column order never matters.
func forEachRow(path string, result *Result, fn func(*row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerFields, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	header := make(map[string]int, len(headerFields))
	for i, name := range headerFields {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.skip(line, err)
			continue
		}

		result.RowsRead++
		if err := fn(&row{header: header, fields: fields, line: line}); err != nil {
			result.skip(line, err)
			continue
		}
		result.RowsLoaded++
	}

	if len(result.Errors) > 0 {
		util.WarnLog("Loaded %s with %d skipped rows", path, result.RowsSkipped)
	}

	return nil
}
