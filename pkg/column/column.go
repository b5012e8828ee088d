// Package column implements the typed, append-only columnar buffers that
// every dataset decoder writes into, including the u256 multi-encoding
// support described by the column/value model.
package column

import "fmt"

// Kind is the physical storage kind of a Column's backing slice.
type Kind int

const (
	KindUint64 Kind = iota
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindBool
)

// Column is a single named, append-only vector. Only the slice matching
// Kind is populated; Valid tracks which positions are non-null so narrow
// u256 encodings can record an out-of-range null without shifting indices.
type Column struct {
	Name string
	Kind Kind

	Uint64s  []uint64
	Int64s   []int64
	Float64s []float64
	Strings  []string
	Bytes    [][]byte
	Bools    []bool

	Valid      []bool
	OutOfRange []bool
}

// NewColumn constructs an empty column of the given kind.
func NewColumn(name string, kind Kind) *Column {
	return &Column{Name: name, Kind: kind}
}

// Len returns the number of rows appended so far.
func (c *Column) Len() int { return len(c.Valid) }

func (c *Column) markValid(outOfRange bool) {
	c.Valid = append(c.Valid, !outOfRange)
	c.OutOfRange = append(c.OutOfRange, outOfRange)
}

func (c *Column) AppendUint64(v uint64) {
	c.Uint64s = append(c.Uint64s, v)
	c.markValid(false)
}

func (c *Column) AppendInt64(v int64) {
	c.Int64s = append(c.Int64s, v)
	c.markValid(false)
}

func (c *Column) AppendFloat64(v float64) {
	c.Float64s = append(c.Float64s, v)
	c.markValid(false)
}

func (c *Column) AppendString(v string) {
	c.Strings = append(c.Strings, v)
	c.markValid(false)
}

func (c *Column) AppendBytes(v []byte) {
	c.Bytes = append(c.Bytes, v)
	c.markValid(false)
}

func (c *Column) AppendBool(v bool) {
	c.Bools = append(c.Bools, v)
	c.markValid(false)
}

// AppendNullMarkedOutOfRange appends a null placeholder to the kind's
// backing slice (so indices stay aligned with Valid) and records the
// out-of-range marker used by the narrow u256 encodings.
func (c *Column) AppendNullMarkedOutOfRange() {
	switch c.Kind {
	case KindUint64:
		c.Uint64s = append(c.Uint64s, 0)
	case KindInt64:
		c.Int64s = append(c.Int64s, 0)
	case KindFloat64:
		c.Float64s = append(c.Float64s, 0)
	case KindString:
		c.Strings = append(c.Strings, "")
	case KindBytes:
		c.Bytes = append(c.Bytes, nil)
	case KindBool:
		c.Bools = append(c.Bools, false)
	}
	c.markValid(true)
}

// Buffer is the ordered set of columns a dataset decoder fills in for one
// chunk. All columns must end up the same length once a fetch completes.
type Buffer struct {
	order   []string
	columns map[string]*Column
}

// NewBuffer builds an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{columns: make(map[string]*Column)}
}

// Column returns the named column, creating it with the given kind if it
// does not exist yet.
func (b *Buffer) Column(name string, kind Kind) *Column {
	if c, ok := b.columns[name]; ok {
		return c
	}
	c := NewColumn(name, kind)
	b.columns[name] = c
	b.order = append(b.order, name)
	return c
}

// Set installs an already-built column (used by EncodeSiblings output),
// preserving first-insertion order.
func (b *Buffer) Set(c *Column) {
	if _, ok := b.columns[c.Name]; !ok {
		b.order = append(b.order, c.Name)
	}
	b.columns[c.Name] = c
}

// Names returns the columns in insertion order.
func (b *Buffer) Names() []string { return b.order }

// Get returns the named column, or nil.
func (b *Buffer) Get(name string) *Column { return b.columns[name] }

// Len returns the length of the first column, or 0 for an empty buffer.
func (b *Buffer) Len() int {
	if len(b.order) == 0 {
		return 0
	}
	return b.columns[b.order[0]].Len()
}

// ValidateEqualLength enforces the column/value model's invariant that all
// columns in a dataset buffer share the same length after a fetch
// completes.
func (b *Buffer) ValidateEqualLength() error {
	if len(b.order) == 0 {
		return nil
	}
	want := b.columns[b.order[0]].Len()
	for _, name := range b.order {
		if got := b.columns[name].Len(); got != want {
			return fmt.Errorf("column %q has length %d, want %d (column %q)", name, got, want, b.order[0])
		}
	}
	return nil
}
