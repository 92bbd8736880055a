// Package dataset loads isotope measurements and partitions them by species.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Table is a column-restricted view of a CSV file. Rows keep file order.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// ReadCSV reads path and keeps only the requested columns, in the requested
// order. With no columns every column of the header is kept.
func ReadCSV(path string, columns ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return Parse(f, path, columns...)
}

// Parse reads CSV from r. source names the input in errors.
func Parse(r io.Reader, source string, columns ...string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset: %s has no header", source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: read header of %s", source)
	}
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.TrimSpace(name)] = i
	}

	if len(columns) == 0 {
		columns = make([]string, len(header))
		for i, name := range header {
			columns[i] = strings.TrimSpace(name)
		}
	}
	picks := make([]int, len(columns))
	for i, col := range columns {
		p, ok := position[col]
		if !ok {
			return nil, errors.NewColumnError(source, col)
		}
		picks[i] = p
	}

	t := &Table{Source: source, Columns: append([]string(nil), columns...)}
	t.index = make(map[string]int, len(columns))
	for i, col := range columns {
		t.index[col] = i
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, errors.NewValueError("dataset.ReadCSV",
					fmt.Sprintf("%s: line %d: expected %d fields, got %d", source, line, len(header), len(record)))
			}
			return nil, errors.Wrapf(err, "dataset: read %s", source)
		}
		row := make([]string, len(picks))
		for i, p := range picks {
			row[i] = strings.TrimSpace(record[p])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table carries column col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Strings returns column col as text.
func (t *Table) Strings(col string) ([]string, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, errors.NewColumnError(t.Source, col)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// Floats parses column col as float64. Row numbers in errors are 1-based data rows.
func (t *Table) Floats(col string) ([]float64, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, errors.NewColumnError(t.Source, col)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			return nil, errors.NewValueError("dataset.Floats",
				fmt.Sprintf("%s: row %d: column %q: %q is not a number", t.Source, i+1, col, row[j]))
		}
		out[i] = v
	}
	return out, nil
}
