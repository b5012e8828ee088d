// Package schema applies the include/exclude/replace column lists to a
// dataset's available columns, producing the final schema and buffer
// layout used by the writer. The Projection also carries the hex-encoding
// flag, but nothing here reads it.
package schema

import (
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/dataset"
)

// Projection is the column-selection policy applied uniformly to every
// dataset in a query.
type Projection struct {
	// Include, if non-empty, adds these columns to the dataset's default
	// column list (still validated against the dataset's available
	// columns), rather than replacing it.
	Include []string
	// Exclude drops columns from the dataset's default set.
	Exclude []string
	// Replace, if non-empty, replaces the dataset's default column list
	// outright (distinct from Include: Replace skips the "default plus
	// adjustments" behavior, and when set, Include and Exclude are ignored).
	Replace []string
	// Hex records the --hex flag. Neither Resolve nor Project reads it, and
	// every writer renders binary columns as 0x-prefixed hex strings
	// whether or not it is set.
	Hex bool
}

// appendMissing returns base with every name from extra that isn't already
// in base appended, in extra's order, so Include adds columns to the
// dataset defaults instead of replacing them.
func appendMissing(base, extra []string) []string {
	present := make(map[string]bool, len(base))
	for _, name := range base {
		present[name] = true
	}
	out := append([]string{}, base...)
	for _, name := range extra {
		if !present[name] {
			present[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Resolve computes the ordered final column list for one dataset under
// this projection.
func (p Projection) Resolve(d *dataset.Dataset) ([]string, error) {
	var base []string
	switch {
	case len(p.Replace) > 0:
		base = p.Replace
	case len(p.Include) > 0:
		base = appendMissing(d.DefaultColumns, p.Include)
	default:
		base = d.DefaultColumns
	}

	for _, name := range base {
		if !d.HasColumn(name) {
			return nil, cryoerrors.NewInvalidQuery(nil, "dataset %q has no column %q", d.Name, name)
		}
	}

	if len(p.Exclude) == 0 || len(p.Replace) > 0 {
		return base, nil
	}
	excluded := make(map[string]bool, len(p.Exclude))
	for _, e := range p.Exclude {
		excluded[e] = true
	}
	out := make([]string, 0, len(base))
	for _, name := range base {
		if !excluded[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// Project filters buf down to exactly the columns Resolve returned for d,
// in that order, dropping any column buf holds that isn't selected (e.g. a
// u256 canonical column kept only to derive sibling encodings).
func Project(buf *column.Buffer, d *dataset.Dataset, p Projection) (*column.Buffer, []string, error) {
	names, err := p.Resolve(d)
	if err != nil {
		return nil, nil, err
	}
	out := column.NewBuffer()
	for _, name := range names {
		if c := buf.Get(name); c != nil {
			out.Set(c)
		}
	}
	return out, names, nil
}
