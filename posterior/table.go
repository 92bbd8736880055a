// Package posterior holds posterior draw tables and their describe-style
// summaries.
package posterior

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Table is the draw table of one fit: one row per draw across chains, one
// column per scalar quantity. Vector quantities use CmdStan's flattened names
// ("y_new.1", "y_new.2", ...).
type Table struct {
	columns []string
	index   map[string]int
	values  [][]float64 // column-major
	chain   []int
}

// NewTable returns an empty table with the given column names.
func NewTable(columns ...string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		values:  make([][]float64, len(columns)),
	}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// Append adds one draw of chain.
func (t *Table) Append(chain int, row []float64) error {
	if len(row) != len(t.columns) {
		return errors.NewDimensionError("posterior.Append", "row", len(t.columns), len(row))
	}
	for j, v := range row {
		t.values[j] = append(t.values[j], v)
	}
	t.chain = append(t.chain, chain)
	return nil
}

// Concat appends every row of other, whose columns must match t.
func (t *Table) Concat(other *Table) error {
	if len(other.columns) != len(t.columns) {
		return errors.NewDimensionError("posterior.Concat", "columns", len(t.columns), len(other.columns))
	}
	for j, c := range t.columns {
		k, ok := other.index[c]
		if !ok {
			return errors.NewMissingParameterError("posterior.Concat", c)
		}
		t.values[j] = append(t.values[j], other.values[k]...)
	}
	t.chain = append(t.chain, other.chain...)
	return nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of draws.
func (t *Table) Len() int { return len(t.chain) }

// Has reports whether column name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the draws of name. The slice is shared with the table.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, errors.NewMissingParameterError("posterior table", name)
	}
	return t.values[j], nil
}

// Chain returns the chain id of every draw.
func (t *Table) Chain() []int { return t.chain }

// Chains returns the number of distinct chains.
func (t *Table) Chains() int {
	seen := make(map[int]struct{})
	for _, c := range t.chain {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// ByChain splits column name by chain, ordered by chain id.
func (t *Table) ByChain(name string) ([][]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	groups := make(map[int][]float64)
	var ids []int
	for i, c := range t.chain {
		if _, ok := groups[c]; !ok {
			ids = append(ids, c)
		}
		groups[c] = append(groups[c], col[i])
	}
	sort.Ints(ids)
	out := make([][]float64, len(ids))
	for i, id := range ids {
		out[i] = groups[id]
	}
	return out, nil
}

// Vector returns the flattened element names of the vector quantity base,
// ordered by index. A scalar column named base is returned alone.
func (t *Table) Vector(base string) []string {
	if t.Has(base) {
		return []string{base}
	}
	type elem struct {
		name string
		idx  int
	}
	var elems []elem
	prefix := base + "."
	for _, c := range t.columns {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		idx, err := strconv.Atoi(c[len(prefix):])
		if err != nil {
			continue
		}
		elems = append(elems, elem{c, idx})
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i].idx < elems[j].idx })
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = e.name
	}
	return names
}

// Element returns the flattened name of base[i] (1-based).
func Element(base string, i int) string {
	return fmt.Sprintf("%s.%d", base, i)
}

// Base strips the element index from a flattened name.
func Base(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
