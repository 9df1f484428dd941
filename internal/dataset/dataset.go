// Package dataset loads labelling input files from JSON or CSV.
package dataset

import (
	"bytes"
	"fmt"
	"math/rand"
	"path"
	"strings"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

// Dataset is one parsed input file
type Dataset struct {
	// Name is the blob name of the input file
	Name string
	// RunID is the file name without extension
	RunID string
	Table *results.Table
}

// RunIDFor strips the folder and the last extension of a file name
func RunIDFor(name string) string {
	base := path.Base(name)
	if ext := path.Ext(base); ext != "" {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// Parse reads an input file and checks that every required column is present.
// Rows are numbered from 0 in file order.
func Parse(name string, data []byte, required []string) (*Dataset, error) {
	var (
		tbl *results.Table
		err error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		tbl, err = results.ReadCSV(bytes.NewReader(data))
	case ".json":
		tbl, err = results.Decode(data)
	default:
		return nil, fmt.Errorf("%w: unsupported input file type %q", domain.ErrInvalidInput, path.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	for _, col := range required {
		if !tbl.HasColumn(col) {
			return nil, fmt.Errorf("%w: column %s is missing from the file", domain.ErrMissingColumn, col)
		}
	}

	tbl.Reindex()
	return &Dataset{
		Name:  name,
		RunID: RunIDFor(name),
		Table: tbl,
	}, nil
}

// Sample returns n rows picked at random with the given seed. Rows keep their
// ids. When n is not positive or not smaller than the row count the whole
// table is returned in file order.
func (d *Dataset) Sample(n int, seed int64) *results.Table {
	if n <= 0 || n >= d.Table.Len() {
		return d.Table.Clone()
	}

	ids := d.Table.RowIDs()
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(ids))

	picked := make([]string, n)
	for i := 0; i < n; i++ {
		picked[i] = ids[perm[i]]
	}
	return d.Table.Select(picked)
}

// MetricColumns returns the numeric columns other than the excluded ones, in
// table order
func MetricColumns(tbl *results.Table, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		skip[c] = true
	}
	var cols []string
	for _, c := range tbl.Columns() {
		if skip[c] || domain.IsUserScoreColumn(c) || c == domain.ColumnScore {
			continue
		}
		if tbl.IsNumeric(c) {
			cols = append(cols, c)
		}
	}
	return cols
}
