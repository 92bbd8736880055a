package cmdstan

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/posterior"
)

const divergentColumn = "divergent__"

// ReadOutput parses one CmdStan output CSV as draws of chain.
func ReadOutput(path string, chain int) (*posterior.Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "open sampler output %s", path)
	}
	defer f.Close()
	return ParseOutput(f, chain)
}

// ParseOutput reads CmdStan sampler CSV from r. Comment lines (adaptation
// info, timing) are skipped and sampler diagnostics ending in "__" are
// dropped. The second return value counts draws flagged divergent__.
func ParseOutput(r io.Reader, chain int) (*posterior.Table, int, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, errors.Wrap(errors.ErrEmptyData, "sampler output")
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "sampler output header")
	}

	divergent := -1
	var keep []int
	var names []string
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == divergentColumn {
			divergent = i
		}
		if strings.HasSuffix(h, "__") {
			continue
		}
		keep = append(keep, i)
		names = append(names, h)
	}
	if len(names) == 0 {
		return nil, 0, errors.NewValueError("cmdstan.ParseOutput", "no parameter columns in sampler output")
	}

	t := posterior.NewTable(names...)
	row := make([]float64, len(keep))
	divergences := 0
	for draw := 1; ; draw++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errors.NewValueError("cmdstan.ParseOutput", err.Error())
		}
		for j, i := range keep {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, 0, errors.NewValueError("cmdstan.ParseOutput",
					fmt.Sprintf("draw %d: column %q: %q is not a number", draw, names[j], rec[i]))
			}
			row[j] = v
		}
		if divergent >= 0 && strings.TrimSpace(rec[divergent]) == "1" {
			divergences++
		}
		if err := t.Append(chain, row); err != nil {
			return nil, 0, err
		}
	}
	return t, divergences, nil
}
