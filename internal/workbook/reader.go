// Package workbook reads the per-experiment door frame sheets and writes the
// consolidated 1 Hz results workbook.
package workbook

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roman-kulish/doorflow/internal/table"
)

// ErrNoHeader is returned when a block has no header row or lacks its time column.
var ErrNoHeader = errors.New("block header not found")

// Layout locates the door and gas analyser blocks on an experiment sheet. Column
// indexes are zero based; the first row holds the channel names.
type Layout struct {
	DoorColumns     int    `yaml:"doorColumns" json:"doorColumns"`
	GasColumnOffset int    `yaml:"gasColumnOffset" json:"gasColumnOffset"`
	DoorTimeColumn  string `yaml:"doorTimeColumn" json:"doorTimeColumn"`
	GasTimeColumn   string `yaml:"gasTimeColumn" json:"gasTimeColumn"`
}

// DefaultLayout is the layout of the door analysis workbook.
func DefaultLayout() Layout {
	return Layout{
		DoorColumns:     22,
		GasColumnOffset: 23,
		DoorTimeColumn:  "Time [min]",
		GasTimeColumn:   "Time",
	}
}

func (l *Layout) Validate() error {
	if l.DoorColumns <= 0 {
		return fmt.Errorf("workbook.Layout: door block must have columns: %d given", l.DoorColumns)
	}
	if l.GasColumnOffset < l.DoorColumns {
		return fmt.Errorf("workbook.Layout: gas block at column %d overlaps the door block", l.GasColumnOffset)
	}
	if l.DoorTimeColumn == "" || l.GasTimeColumn == "" {
		return errors.New("workbook.Layout: time column names are required")
	}
	return nil
}

// Sheet holds the two blocks of one experiment. Time is in seconds of testing time.
// Gas is nil when the sheet has no gas analyser block.
type Sheet struct {
	Name string
	Door *table.Table
	Gas  *table.Table
}

// Reader reads experiment sheets from a workbook.
type Reader struct {
	file   *excelize.File
	layout Layout
}

// Open opens a workbook for reading.
func Open(path string, layout Layout) (*Reader, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return &Reader{file: f, layout: layout}, nil
}

// Sheets returns the sheet names in workbook order.
func (r *Reader) Sheets() []string {
	return r.file.GetSheetList()
}

// Read parses the named experiment sheet.
func (r *Reader) Read(name string) (*Sheet, error) {
	rows, err := r.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}

	door, err := parseBlock(rows, 0, r.layout.DoorColumns, r.layout.DoorTimeColumn)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: door block: %w", name, err)
	}

	gas, err := parseBlock(rows, r.layout.GasColumnOffset, -1, r.layout.GasTimeColumn)
	if errors.Is(err, errEmptyBlock) {
		gas, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sheet %q: gas block: %w", name, err)
	}

	return &Sheet{Name: name, Door: door, Gas: gas}, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

var errEmptyBlock = errors.New("empty block")

// parseBlock reads columns [from, to) of rows; to < 0 reads to the end of each row.
// Blank rows are skipped, blank cells become NaN and the time column, in minutes, is
// converted to seconds.
func parseBlock(rows [][]string, from, to int, timeColumn string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, errEmptyBlock
	}

	header := cells(rows[0], from, to)
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, errEmptyBlock
	}
	width := len(header)

	timeIndex := -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if name == timeColumn {
			timeIndex = i
		}
	}
	if timeIndex < 0 {
		return nil, fmt.Errorf("%q: %w", timeColumn, ErrNoHeader)
	}

	var times []float64
	values := make([][]float64, width)
	for r := 1; r < len(rows); r++ {
		row := cells(rows[r], from, from+width)
		if blank(row) {
			continue
		}

		parsed := make([]float64, width)
		for c := range parsed {
			var raw string
			if c < len(row) {
				raw = strings.TrimSpace(row[c])
			}
			if raw == "" {
				if c == timeIndex {
					return nil, fmt.Errorf("%s: missing time", cellName(from+c, r))
				}
				parsed[c] = math.NaN()
				continue
			}

			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a number", cellName(from+c, r), raw)
			}
			parsed[c] = v
		}

		times = append(times, parsed[timeIndex]*60)
		for c, v := range parsed {
			values[c] = append(values[c], v)
		}
	}

	t, err := table.New(times)
	if err != nil {
		return nil, err
	}
	for c, name := range header {
		if c == timeIndex || name == "" {
			continue
		}
		if t.Has(name) {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if err = t.Set(name, values[c]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func cells(row []string, from, to int) []string {
	if from >= len(row) {
		return nil
	}
	if to < 0 || to > len(row) {
		to = len(row)
	}
	return slices.Clone(row[from:to])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return name
}
