package workbook

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Grid is a uniform time grid in seconds, both ends included.
type Grid struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// DefaultGrid is one sample per second over the first hour of the test.
func DefaultGrid() Grid {
	return Grid{Start: 0, End: 3600, Step: 1}
}

func (g *Grid) Validate() error {
	if !(g.Step > 0) {
		return fmt.Errorf("workbook.Grid: step must be positive: %v given", g.Step)
	}
	if !(g.End > g.Start) {
		return fmt.Errorf("workbook.Grid: end must be greater than start")
	}
	return nil
}

// Times returns the grid points.
func (g *Grid) Times() []float64 {
	n := int(math.Floor((g.End-g.Start)/g.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Start + float64(i)*g.Step
	}
	return out
}

// Consolidate resamples every channel whose name contains one of the selectors onto
// the grid, holding the end values outside the recorded range.
func Consolidate(t *table.Table, grid Grid, selectors []string) (*table.Table, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	out, err := table.New(grid.Times())
	if err != nil {
		return nil, err
	}
	for _, name := range t.Columns() {
		if !selected(name, selectors) {
			continue
		}

		values, _ := t.Column(name)
		resampled, err := signal.Resample(out.Time(), t.Time(), values, false)
		if err != nil {
			return nil, fmt.Errorf("resampling %s: %w", name, err)
		}
		if err = out.Set(name, resampled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func selected(name string, selectors []string) bool {
	for _, s := range selectors {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// NamedTable is a table written to its own sheet.
type NamedTable struct {
	Name  string
	Table *table.Table
}

// Write stores one sheet per table, time first, at path. The workbook is written to a
// temporary file next to path and renamed into place, so a failed write leaves any
// previous file untouched. Missing values are left blank.
func Write(path string, sheets []NamedTable) (err error) {
	if len(sheets) == 0 {
		return errors.New("no sheets to write")
	}

	f := excelize.NewFile()
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	for i, s := range sheets {
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), s.Name)
		} else {
			_, err = f.NewSheet(s.Name)
		}
		if err != nil {
			return fmt.Errorf("creating sheet %q: %w", s.Name, err)
		}
		if err = writeSheet(f, s); err != nil {
			return fmt.Errorf("writing sheet %q: %w", s.Name, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = f.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding workbook: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving workbook into place: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s NamedTable) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}

	names := s.Table.Columns()
	header := make([]interface{}, 0, len(names)+1)
	header = append(header, table.TimeColumn)
	for _, name := range names {
		header = append(header, name)
	}
	if err = sw.SetRow("A1", header); err != nil {
		return err
	}

	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i], _ = s.Table.Column(name)
	}

	for i, ts := range s.Table.Time() {
		row := make([]interface{}, 0, len(names)+1)
		row = append(row, ts)
		for _, c := range columns {
			if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
				row = append(row, nil)
				continue
			}
			row = append(row, c[i])
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err = sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}
