// Package results persists posterior summaries as whitespace-aligned text
// tables, one file per stage and species.
package results

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// FileName is the name of every result file.
const FileName = "results.txt"

// Key addresses one result file. An empty Species addresses the pooled result
// of the stage.
type Key struct {
	Stage   string
	Species string
}

func (k Key) String() string {
	if k.Species == "" {
		return k.Stage
	}
	return k.Stage + "/" + k.Species
}

// Store reads and writes result files below Root.
type Store struct {
	Root string
}

// NewStore returns a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Path returns <root>/<stage>/results.txt for pooled keys and
// <root>/<stage>/species_<species>/results.txt otherwise.
func (s *Store) Path(key Key) string {
	if key.Species == "" {
		return filepath.Join(s.Root, key.Stage, FileName)
	}
	return filepath.Join(s.Root, key.Stage, "species_"+key.Species, FileName)
}

// Exists reports whether the file for key is present.
func (s *Store) Exists(key Key) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Write persists summary under key, creating directories as needed and
// replacing any previous file. columns selects the statistics to write; they
// must include mean and std. With no columns every statistic of the summary
// is written.
func (s *Store) Write(key Key, summary *posterior.Summary, columns ...string) (string, error) {
	if len(columns) == 0 {
		columns = summary.Stats
	}
	for _, required := range []string{posterior.StatMean, posterior.StatStd} {
		if !slices.Contains(columns, required) {
			return "", errors.NewValidationError("columns", "must include "+required, columns)
		}
	}
	for _, c := range columns {
		if !slices.Contains(summary.Stats, c) {
			return "", errors.NewColumnError("summary", c)
		}
	}

	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "results: create directory for %s", key)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "results: create %s", path)
	}
	if err := Encode(f, summary, columns); err != nil {
		f.Close()
		return "", err
	}
	return path, errors.WithStack(f.Close())
}

// Encode writes summary as an aligned text table with a "parameter" header.
func Encode(w io.Writer, summary *posterior.Summary, columns []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "parameter\t%s\n", strings.Join(columns, "\t"))
	for _, row := range summary.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = formatValue(row.Values[c])
		}
		fmt.Fprintf(tw, "%s\t%s\n", row.Parameter, strings.Join(cells, "\t"))
	}
	return errors.Wrap(tw.Flush(), "results: write table")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Read loads the summary stored under key. A missing file fails with
// MissingResultError.
func (s *Store) Read(key Key) (*posterior.Summary, error) {
	path := s.Path(key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingResultError(key.Stage, key.Species, path, err)
		}
		return nil, errors.Wrapf(err, "results: open %s", path)
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode parses a result table. The header either starts with "parameter" or
// lists only the statistic names, with the parameter name leading every row.
func Decode(r io.Reader, source string) (*posterior.Summary, error) {
	scanner := bufio.NewScanner(r)
	var header []string
	var summary *posterior.Summary
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = fields
			if header[0] == "parameter" {
				header = header[1:]
			}
			if len(header) == 0 {
				return nil, errors.NewValueError("results.Decode", fmt.Sprintf("%s: empty header", source))
			}
			for _, required := range []string{posterior.StatMean, posterior.StatStd} {
				if !slices.Contains(header, required) {
					return nil, errors.NewColumnError(source, required)
				}
			}
			summary = posterior.NewSummary(header...)
			continue
		}

		if len(fields) != len(header)+1 {
			return nil, errors.NewValueError("results.Decode",
				fmt.Sprintf("%s: line %d: expected %d fields, got %d", source, line, len(header)+1, len(fields)))
		}
		values := make(map[string]float64, len(header))
		for i, col := range header {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, errors.NewValueError("results.Decode",
					fmt.Sprintf("%s: line %d: column %q: %q is not a number", source, line, col, fields[i+1]))
			}
			values[col] = v
		}
		summary.Add(fields[0], values)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "results: read %s", source)
	}
	if summary == nil {
		return nil, errors.NewValueError("results.Decode", fmt.Sprintf("%s: no header", source))
	}
	return summary, nil
}
