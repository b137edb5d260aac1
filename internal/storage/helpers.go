package storage

import (
	"database/sql"
	"errors"
	"math"

	"github.com/roman-kulish/doorflow/internal/flow"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// toSQLNullFloat maps both nil and NaN to NULL.
func toSQLNullFloat(f *float64) sql.NullFloat64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromSQLNullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func toRun(data *runData) *flow.Run {
	run := flow.Run{
		ID:        data.ID,
		StartTime: data.StartTime,
	}
	if data.Config.Valid {
		run.Config = &data.Config.String
	}
	return &run
}

func toExperiment(data *experimentData) *flow.Experiment {
	return &flow.Experiment{
		ID:                 data.ID,
		RunID:              data.RunID,
		Name:               data.Name,
		Rows:               data.Rows,
		AmbientTemperature: fromSQLNullFloat(data.AmbientTemperature),
		Policy:             data.Policy,
	}
}

func toSummaryData(p *flow.Profile) *summaryData {
	return &summaryData{
		TestingTime:        p.TestingTime,
		MassIn:             toSQLNullFloat(p.MassIn),
		MassOut:            toSQLNullFloat(p.MassOut),
		MassAverage:        toSQLNullFloat(p.MassAverage),
		NeutralPlane:       toSQLNullFloat(p.NeutralPlane),
		NeutralPlaneSmooth: toSQLNullFloat(p.NeutralPlaneSmooth),
		HRRAllMassIn:       toSQLNullFloat(p.HRRAllMassIn),
	}
}

func toHeightData(r *flow.HeightReading) *heightData {
	return &heightData{
		Height:      r.Height,
		Pressure:    toSQLNullFloat(r.Pressure),
		Temperature: toSQLNullFloat(r.Temperature),
		Density:     toSQLNullFloat(r.Density),
		Velocity:    toSQLNullFloat(r.Velocity),
		MassFlow:    toSQLNullFloat(r.MassFlow),
	}
}

func toGasSampleData(s *flow.GasSample) *gasSampleData {
	return &gasSampleData{
		TestingTime:     s.TestingTime,
		O2:              toSQLNullFloat(s.O2),
		CO:              toSQLNullFloat(s.CO),
		CO2:             toSQLNullFloat(s.CO2),
		MassAverage:     toSQLNullFloat(s.MassAverage),
		DepletionFactor: toSQLNullFloat(s.DepletionFactor),
		HRR:             toSQLNullFloat(s.HRR),
	}
}
