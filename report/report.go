// Package report assembles the aggregate tables that answer the
// research questions and hands them to presenters.
package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"noshow/aggregate"
	"noshow/appointment"
)

// Table names, stable across runs.
const (
	RiskTable      = "risk_label"
	TimeOfDayTable = "time_of_day"
	DayOfWeekTable = "day_of_week"
)

// NamedTable is an aggregate table with its display title.
type NamedTable struct {
	Name  string
	Title string
	aggregate.Table
}

// Summary counts the input of a run.
type Summary struct {
	Rows     int
	Patients int
	NoShows  int
}

// Report is everything handed to presenters for one run.
type Report struct {
	RunID        uuid.UUID
	Source       string
	Summary      Summary
	Tables       []NamedTable
	Distribution aggregate.NoShowDistribution
	Rows         []appointment.Derived // per-row projections for distribution plots and exports
}

// Table returns the named table.
func (r *Report) Table(name string) (NamedTable, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return NamedTable{}, false
}

// Presenter consumes a finished report.
type Presenter interface {
	Present(ctx context.Context, r *Report) error
}

// DisplayOrder returns the label order used on a single-axis chart for
// dim. The same dimension always yields the same list.
func DisplayOrder(dim aggregate.Dimension) []string {
	return dim.Labels()
}

// Build runs the three analyses over derived rows:
//
//   - risk label, weighted by per-patient totals
//   - time-of-day bucket and weekday, counted per appointment
//   - spread of missed appointments across patients
func Build(source string, rows []appointment.Derived) *Report {
	patients := make(map[int64]struct{})
	noShows := 0
	for i := range rows {
		patients[rows[i].PatientID] = struct{}{}
		if rows[i].NoShow {
			noShows++
		}
	}

	return &Report{
		RunID:  uuid.New(),
		Source: source,
		Summary: Summary{
			Rows:     len(rows),
			Patients: len(patients),
			NoShows:  noShows,
		},
		Tables: []NamedTable{
			{
				Name:  RiskTable,
				Title: "Proportion of missed appointments per health risk rating",
				Table: aggregate.Aggregate(rows, aggregate.ByRiskLabel, aggregate.SumPatientCounts),
			},
			{
				Name:  TimeOfDayTable,
				Title: "Proportion of missed appointments per time of day",
				Table: aggregate.Aggregate(rows, aggregate.ByTimeBucket, aggregate.CountRows),
			},
			{
				Name:  DayOfWeekTable,
				Title: "Proportion of missed appointments per day of the week",
				Table: aggregate.Aggregate(rows, aggregate.ByDayOfWeek, aggregate.CountRows),
			},
		},
		Distribution: aggregate.Distribution(rows),
		Rows:         rows,
	}
}

// Emit hands r to every presenter in order and stops at the first error.
func Emit(ctx context.Context, r *Report, presenters ...Presenter) error {
	for _, p := range presenters {
		if err := p.Present(ctx, r); err != nil {
			return fmt.Errorf("present %T: %w", p, err)
		}
	}
	return nil
}
