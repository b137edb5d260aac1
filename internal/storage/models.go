package storage

import (
	"database/sql"
	"time"
)

type runData struct {
	ID        string
	StartTime time.Time
	Config    sql.NullString
}

type experimentData struct {
	ID                 int64
	RunID              string
	Name               string
	Rows               int
	AmbientTemperature sql.NullFloat64
	Policy             string
}

type summaryData struct {
	TestingTime        float64
	MassIn             sql.NullFloat64
	MassOut            sql.NullFloat64
	MassAverage        sql.NullFloat64
	NeutralPlane       sql.NullFloat64
	NeutralPlaneSmooth sql.NullFloat64
	HRRAllMassIn       sql.NullFloat64
}

type heightData struct {
	Height      int
	Pressure    sql.NullFloat64
	Temperature sql.NullFloat64
	Density     sql.NullFloat64
	Velocity    sql.NullFloat64
	MassFlow    sql.NullFloat64
}

type gasSampleData struct {
	TestingTime     float64
	O2              sql.NullFloat64
	CO              sql.NullFloat64
	CO2             sql.NullFloat64
	MassAverage     sql.NullFloat64
	DepletionFactor sql.NullFloat64
	HRR             sql.NullFloat64
}
