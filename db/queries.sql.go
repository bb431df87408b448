package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertRun = `
INSERT INTO analysis_runs (id, source, row_count, patient_count, no_show_count)
VALUES ($1, $2, $3, $4, $5)
`

type InsertRunParams struct {
	ID           pgtype.UUID
	Source       string
	RowCount     int32
	PatientCount int32
	NoShowCount  int32
}

func (q *Queries) InsertRun(ctx context.Context, arg InsertRunParams) error {
	_, err := q.db.Exec(ctx, insertRun,
		arg.ID,
		arg.Source,
		arg.RowCount,
		arg.PatientCount,
		arg.NoShowCount,
	)
	return err
}

const getRun = `
SELECT id, source, row_count, patient_count, no_show_count, created_at
FROM analysis_runs
WHERE id = $1
`

func (q *Queries) GetRun(ctx context.Context, id pgtype.UUID) (AnalysisRun, error) {
	row := q.db.QueryRow(ctx, getRun, id)
	var i AnalysisRun
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.RowCount,
		&i.PatientCount,
		&i.NoShowCount,
		&i.CreatedAt,
	)
	return i, err
}

const insertAggregateGroup = `
INSERT INTO aggregate_groups (run_id, table_name, measure, position, label, no_shows, total, proportion)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertAggregateGroupParams struct {
	RunID      pgtype.UUID
	TableName  string
	Measure    string
	Position   int16
	Label      string
	NoShows    float64
	Total      float64
	Proportion pgtype.Float8
}

func (q *Queries) InsertAggregateGroup(ctx context.Context, arg InsertAggregateGroupParams) error {
	_, err := q.db.Exec(ctx, insertAggregateGroup,
		arg.RunID,
		arg.TableName,
		arg.Measure,
		arg.Position,
		arg.Label,
		arg.NoShows,
		arg.Total,
		arg.Proportion,
	)
	return err
}

const listAggregateGroups = `
SELECT run_id, table_name, measure, position, label, no_shows, total, proportion
FROM aggregate_groups
WHERE run_id = $1 AND table_name = $2
ORDER BY position
`

type ListAggregateGroupsParams struct {
	RunID     pgtype.UUID
	TableName string
}

func (q *Queries) ListAggregateGroups(ctx context.Context, arg ListAggregateGroupsParams) ([]AggregateGroup, error) {
	rows, err := q.db.Query(ctx, listAggregateGroups, arg.RunID, arg.TableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AggregateGroup
	for rows.Next() {
		var i AggregateGroup
		if err := rows.Scan(
			&i.RunID,
			&i.TableName,
			&i.Measure,
			&i.Position,
			&i.Label,
			&i.NoShows,
			&i.Total,
			&i.Proportion,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countDerivedAppointments = `
SELECT count(*) FROM derived_appointments WHERE run_id = $1
`

func (q *Queries) CountDerivedAppointments(ctx context.Context, runID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countDerivedAppointments, runID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const patientCounts = `
SELECT patient_total_appointments, patient_no_show_count
FROM derived_appointments
WHERE run_id = $1 AND patient_id = $2
`

type PatientCountsRow struct {
	PatientTotalAppointments int32
	PatientNoShowCount       int32
}

func (q *Queries) PatientCounts(ctx context.Context, runID pgtype.UUID, patientID int64) ([]PatientCountsRow, error) {
	rows, err := q.db.Query(ctx, patientCounts, runID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PatientCountsRow
	for rows.Next() {
		var i PatientCountsRow
		if err := rows.Scan(&i.PatientTotalAppointments, &i.PatientNoShowCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
