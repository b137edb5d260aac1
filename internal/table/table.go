package table

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// TimeColumn is the name of the index column, seconds relative to the test start.
const TimeColumn = "testing_time"

var (
	// ErrColumnNotFound is returned when a named channel does not exist in the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrLengthMismatch is returned when a column does not have exactly one value per row.
	ErrLengthMismatch = errors.New("column length does not match row count")

	// ErrTimeOrder is returned when the time index is not strictly increasing.
	ErrTimeOrder = errors.New("testing time is not strictly increasing")
)

// Table is an ordered time series: one row per sample tick, indexed by a strictly
// increasing testing time, with one float64 value per tracked channel. NaN marks a
// missing value.
type Table struct {
	time    []float64
	names   []string
	columns map[string][]float64
}

// New creates a table over a copy of the given time index. The index must be strictly
// increasing.
func New(time []float64) (*Table, error) {
	for i, t := range time {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("row %d: invalid testing time %v: %w", i, t, ErrTimeOrder)
		}
		if i > 0 && t <= time[i-1] {
			return nil, fmt.Errorf("row %d: %v after %v: %w", i, t, time[i-1], ErrTimeOrder)
		}
	}

	return &Table{
		time:    slices.Clone(time),
		columns: make(map[string][]float64),
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.time)
}

// Time returns the time index. Callers must not modify it.
func (t *Table) Time() []float64 {
	return t.time
}

// Columns returns channel names in insertion order.
func (t *Table) Columns() []string {
	return slices.Clone(t.names)
}

// ColumnsWithPrefix returns channel names starting with prefix, in insertion order.
func (t *Table) ColumnsWithPrefix(prefix string) []string {
	var names []string
	for _, name := range t.names {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// Has reports whether the channel exists.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the values of a channel. Callers must not modify the returned slice;
// use Set to replace a channel.
func (t *Table) Column(name string) ([]float64, error) {
	if name == TimeColumn {
		return t.time, nil
	}
	values, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrColumnNotFound)
	}
	return values, nil
}

// Set adds or replaces a channel.
func (t *Table) Set(name string, values []float64) error {
	if name == TimeColumn {
		return fmt.Errorf("%q is the time index and cannot be set", name)
	}
	if len(values) != len(t.time) {
		return fmt.Errorf("%q has %d values for %d rows: %w", name, len(values), len(t.time), ErrLengthMismatch)
	}
	if _, ok := t.columns[name]; !ok {
		t.names = append(t.names, name)
	}
	t.columns[name] = values
	return nil
}

// Rename changes the name of a channel, keeping its position.
func (t *Table) Rename(from, to string) error {
	values, ok := t.columns[from]
	if !ok {
		return fmt.Errorf("%q: %w", from, ErrColumnNotFound)
	}
	if _, exists := t.columns[to]; exists {
		return fmt.Errorf("cannot rename %q: %q already exists", from, to)
	}

	delete(t.columns, from)
	t.columns[to] = values
	t.names[slices.Index(t.names, from)] = to
	return nil
}

// Shift adds offset seconds to every timestamp.
func (t *Table) Shift(offset float64) {
	for i := range t.time {
		t.time[i] += offset
	}
}

// Mask evaluates fn over the time index.
func (t *Table) Mask(fn func(time float64) bool) []bool {
	mask := make([]bool, len(t.time))
	for i, ts := range t.time {
		mask[i] = fn(ts)
	}
	return mask
}

// Filter returns a new table holding only the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	var rows []int
	for i := range t.time {
		if keep(i) {
			rows = append(rows, i)
		}
	}

	out := &Table{
		time:    pick(t.time, rows),
		names:   slices.Clone(t.names),
		columns: make(map[string][]float64, len(t.columns)),
	}
	for name, values := range t.columns {
		out.columns[name] = pick(values, rows)
	}
	return out
}

// DropNaN returns a new table without the rows in which any of the named channels
// is NaN. Without names every channel is checked.
func (t *Table) DropNaN(names ...string) *Table {
	if len(names) == 0 {
		names = t.names
	}

	var checked [][]float64
	for _, name := range names {
		if values, ok := t.columns[name]; ok {
			checked = append(checked, values)
		}
	}
	return t.Filter(func(row int) bool {
		for _, values := range checked {
			if math.IsNaN(values[row]) {
				return false
			}
		}
		return true
	})
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		time:    slices.Clone(t.time),
		names:   slices.Clone(t.names),
		columns: make(map[string][]float64, len(t.columns)),
	}
	for name, values := range t.columns {
		out.columns[name] = slices.Clone(values)
	}
	return out
}

func pick(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = values[row]
	}
	return out
}
