package workbook

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roman-kulish/doorflow/internal/table"
)

var testLayout = Layout{
	DoorColumns:     3,
	GasColumnOffset: 4,
	DoorTimeColumn:  "Time [min]",
	GasTimeColumn:   "Time",
}

func writeInput(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { require.NoError(t, f.Close()) }()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReader_Read(t *testing.T) {
	path := writeInput(t, map[string][][]interface{}{
		"Gamma": {
			{"Time [min]", "P1.20", "TDD.40", nil, "Time", "O2", "CO", "CO2"},
			{-0.5, 1.5, 20, nil, 0, 20.9, 0, 0.04},
			{0, 1.6, nil, nil, 0.5, 20.1, 0.1, 0.5},
			{0.5, 1.7, 22, nil, nil, nil, nil, nil},
		},
	})

	r, err := Open(path, testLayout)
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	assert.Equal(t, []string{"Gamma"}, r.Sheets())

	s, err := r.Read("Gamma")
	require.NoError(t, err)
	assert.Equal(t, "Gamma", s.Name)

	assert.Equal(t, []float64{-30, 0, 30}, s.Door.Time())
	assert.Equal(t, []string{"P1.20", "TDD.40"}, s.Door.Columns())
	tdd, _ := s.Door.Column("TDD.40")
	assert.Equal(t, 20.0, tdd[0])
	assert.True(t, math.IsNaN(tdd[1]))

	require.NotNil(t, s.Gas)
	assert.Equal(t, []float64{0, 30}, s.Gas.Time())
	assert.Equal(t, []string{"O2", "CO", "CO2"}, s.Gas.Columns())
	co2, _ := s.Gas.Column("CO2")
	assert.Equal(t, []float64{0.04, 0.5}, co2)

	_, err = r.Read("Delta")
	assert.Error(t, err)
}

func TestReader_ReadWithoutGasBlock(t *testing.T) {
	path := writeInput(t, map[string][][]interface{}{
		"Alpha1": {
			{"Time [min]", "P1.20"},
			{0, 1},
			{1, 2},
		},
	})

	r, err := Open(path, testLayout)
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	s, err := r.Read("Alpha1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 60}, s.Door.Time())
	assert.Nil(t, s.Gas)
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		rows [][]interface{}
	}{
		{"no time column", [][]interface{}{{"Minutes", "P1.20"}, {0, 1}}},
		{"text value", [][]interface{}{{"Time [min]", "P1.20"}, {0, "broken"}}},
		{"missing time", [][]interface{}{{"Time [min]", "P1.20"}, {nil, 1}}},
		{"unordered time", [][]interface{}{{"Time [min]", "P1.20"}, {1, 1}, {0, 1}}},
		{"duplicate column", [][]interface{}{{"Time [min]", "P1.20", "P1.20"}, {0, 1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, map[string][][]interface{}{"Beta1": tt.rows})

			r, err := Open(path, testLayout)
			require.NoError(t, err)
			defer func() { assert.NoError(t, r.Close()) }()

			_, err = r.Read("Beta1")
			assert.Error(t, err)
		})
	}
}

func TestLayout_Validate(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())

	l.GasColumnOffset = 10
	assert.Error(t, l.Validate())

	l = DefaultLayout()
	l.DoorTimeColumn = ""
	assert.Error(t, l.Validate())
}

func TestConsolidate(t *testing.T) {
	src, err := table.New([]float64{-10, 0.5, 2.5})
	require.NoError(t, err)
	require.NoError(t, src.Set("V_20", []float64{1, 2, 4}))
	require.NoError(t, src.Set("TC_20", []float64{20, 20, 20}))
	require.NoError(t, src.Set("mass_in", []float64{0, 1, 0}))

	out, err := Consolidate(src, Grid{Start: 0, End: 4, Step: 1}, []string{"V_", "mass_in"})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 3, 4}, out.Time())
	assert.Equal(t, []string{"V_20", "mass_in"}, out.Columns())

	v, _ := out.Column("V_20")
	assert.InDeltaSlice(t, []float64{2 - 1.0/10.5, 2.5, 3.5, 4, 4}, v, 1e-12)

	_, err = Consolidate(src, Grid{Start: 0, End: 4}, nil)
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	a, err := table.New([]float64{0, 1})
	require.NoError(t, err)
	require.NoError(t, a.Set("V_20", []float64{1.5, math.NaN()}))
	require.NoError(t, a.Set("mass_in", []float64{0.25, 0.5}))

	b, err := table.New([]float64{0})
	require.NoError(t, err)
	require.NoError(t, b.Set("V_20", []float64{-1}))

	path := filepath.Join(t.TempDir(), "all_data.xlsx")
	require.NoError(t, Write(path, []NamedTable{{"Alpha2", a}, {"Beta1", b}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, f.Close()) }()

	assert.Equal(t, []string{"Alpha2", "Beta1"}, f.GetSheetList())

	rows, err := f.GetRows("Alpha2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"testing_time", "V_20", "mass_in"}, rows[0])
	assert.Equal(t, []string{"0", "1.5", "0.25"}, rows[1])
	assert.Equal(t, []string{"1", "", "0.5"}, rows[2])

	// no temporary files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, Write(path, nil))
}
