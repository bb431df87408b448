package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AnalysisRun struct {
	ID           pgtype.UUID
	Source       string
	RowCount     int32
	PatientCount int32
	NoShowCount  int32
	CreatedAt    pgtype.Timestamptz
}

type AggregateGroup struct {
	RunID      pgtype.UUID
	TableName  string
	Measure    string
	Position   int16
	Label      string
	NoShows    float64
	Total      float64
	Proportion pgtype.Float8
}
