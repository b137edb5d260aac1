package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  id,
                  start_time,
                  config)
VALUES (?, ?, ?)`

	selectRunSQL = `
SELECT 
    id, 
    start_time, 
    config 
FROM runs 
WHERE 
    id = ?`

	selectRunsSQL = `
SELECT 
    id, 
    start_time, 
    config 
FROM runs
ORDER BY start_time, id`

	insertExperimentSQL = `
INSERT INTO experiments (run_id,
                         name,
                         row_count,
                         ambient_temperature,
                         policy)
VALUES (?, ?, ?, ?, ?)`

	selectExperimentSQL = `
SELECT 
    e.id, 
    e.run_id, 
    e.name, 
    e.row_count, 
    e.ambient_temperature, 
    e.policy
FROM experiments e
    JOIN runs r ON r.id = e.run_id
WHERE 
    e.name = ?
    AND (? = '' OR e.run_id = ?)
ORDER BY r.start_time DESC, e.id DESC
LIMIT 1`

	selectExperimentByIDSQL = `
SELECT 
    id, 
    run_id, 
    name, 
    row_count, 
    ambient_temperature, 
    policy
FROM experiments
WHERE 
    id = ?`

	selectExperimentsSQL = `
SELECT 
    id, 
    run_id, 
    name, 
    row_count, 
    ambient_temperature, 
    policy
FROM experiments
WHERE 
    run_id = ?
ORDER BY id`

	insertSummarySQL = `
INSERT INTO door_summary (experiment_id,
                          testing_time,
                          mass_in,
                          mass_out,
                          mass_average,
                          neutral_plane,
                          neutral_plane_smooth,
                          hrr_all_mass_in)
VALUES `

	insertHeightSQL = `
INSERT INTO door_heights (experiment_id,
                          testing_time,
                          height,
                          pressure,
                          temperature,
                          density,
                          velocity,
                          mass_flow)
VALUES `

	insertGasSampleSQL = `
INSERT INTO gas_samples (experiment_id,
                         testing_time,
                         o2,
                         co,
                         co2,
                         mass_average,
                         depletion_factor,
                         hrr)
VALUES `

	selectGasSamplesSQL = `
SELECT 
    testing_time, 
    o2, 
    co, 
    co2, 
    mass_average, 
    depletion_factor, 
    hrr
FROM gas_samples
WHERE 
    experiment_id = ?
ORDER BY testing_time`

	selectTimeRangeSQL = `
SELECT 
    MIN(testing_time), 
    MAX(testing_time)
FROM door_summary
WHERE experiment_id = ?`

	selectProfilesSQL = `
SELECT 
    s.testing_time, 
    s.mass_in, 
    s.mass_out, 
    s.mass_average, 
    s.neutral_plane, 
    s.neutral_plane_smooth, 
    s.hrr_all_mass_in,
    h.height,
    h.pressure,
    h.temperature,
    h.density,
    h.velocity,
    h.mass_flow
FROM door_summary s
    LEFT JOIN door_heights h ON h.experiment_id = s.experiment_id AND h.testing_time = s.testing_time
WHERE 
    s.experiment_id = ?
    AND s.testing_time BETWEEN ? AND ?
ORDER BY s.testing_time, h.height`
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string
