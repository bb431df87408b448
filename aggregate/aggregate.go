// Package aggregate groups derived appointment rows by a categorical
// dimension and computes no-show proportions per group.
//
// Every table covers the dimension's full label domain. A label with no
// rows is reported with Total 0 and a NaN proportion, so consumers can
// tell "no data" apart from "nobody missed".
package aggregate

import (
	"math"
	"time"

	"noshow/appointment"
)

// Dimension selects the grouping key.
type Dimension int

const (
	ByRiskLabel Dimension = iota
	ByTimeBucket
	ByDayOfWeek
)

func (d Dimension) String() string {
	switch d {
	case ByRiskLabel:
		return "risk_label"
	case ByTimeBucket:
		return "time_bucket"
	case ByDayOfWeek:
		return "day_of_week"
	}
	return "unknown"
}

// Labels returns the dimension's full domain in display order: risk from
// Low to VeryHigh, buckets by hour with Unbucketed last, weekdays in
// calendar order from Monday.
func (d Dimension) Labels() []string {
	switch d {
	case ByRiskLabel:
		out := make([]string, len(appointment.RiskLabels))
		for i, l := range appointment.RiskLabels {
			out[i] = string(l)
		}
		return out
	case ByTimeBucket:
		out := make([]string, len(appointment.TimeBuckets))
		for i, b := range appointment.TimeBuckets {
			out[i] = string(b)
		}
		return out
	case ByDayOfWeek:
		out := make([]string, len(appointment.Weekdays))
		for i, w := range appointment.Weekdays {
			out[i] = w.String()
		}
		return out
	}
	return nil
}

// Key returns the row's label under d.
func (d Dimension) Key(r *appointment.Derived) string {
	switch d {
	case ByRiskLabel:
		return string(r.RiskLabel)
	case ByTimeBucket:
		return string(r.TimeBucket)
	case ByDayOfWeek:
		return r.DayOfWeek.String()
	}
	return ""
}

// Measure selects what is summed per group.
type Measure int

const (
	// CountRows counts appointments: the numerator is the number of rows
	// marked no-show, the total is the number of rows.
	CountRows Measure = iota
	// SumPatientCounts sums the broadcast per-patient columns: the
	// numerator is the sum of PatientNoShowCount, the total the sum of
	// PatientTotalAppointments. Patients with many appointments weigh in
	// once per appointment.
	SumPatientCounts
)

func (m Measure) String() string {
	if m == SumPatientCounts {
		return "patient_sums"
	}
	return "row_counts"
}

func (m Measure) values(r *appointment.Derived) (noShows, total float64) {
	if m == SumPatientCounts {
		return float64(r.PatientNoShowCount), float64(r.PatientTotalAppointments)
	}
	if r.NoShow {
		return 1, 1
	}
	return 0, 1
}

// Group is one label's aggregate.
type Group struct {
	Label      string
	NoShows    float64
	Total      float64
	Proportion float64 // NoShows / Total; NaN when Total is 0
}

// Empty reports whether the group saw no data.
func (g Group) Empty() bool { return g.Total == 0 }

// Table is the result of one aggregation.
type Table struct {
	Dimension Dimension
	Measure   Measure
	Groups    []Group // in Dimension.Labels order
}

// Aggregate reduces rows by dim and measure. Labels outside the
// dimension's domain are ignored; the result does not depend on row
// order.
func Aggregate(rows []appointment.Derived, dim Dimension, measure Measure) Table {
	labels := dim.Labels()
	pos := make(map[string]int, len(labels))
	groups := make([]Group, len(labels))
	for i, l := range labels {
		pos[l] = i
		groups[i].Label = l
	}

	for i := range rows {
		j, ok := pos[dim.Key(&rows[i])]
		if !ok {
			continue
		}
		ns, tot := measure.values(&rows[i])
		groups[j].NoShows += ns
		groups[j].Total += tot
	}

	for i := range groups {
		groups[i].Proportion = proportion(groups[i].NoShows, groups[i].Total)
	}
	return Table{Dimension: dim, Measure: measure, Groups: groups}
}

func proportion(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// Labels returns the table's labels in display order.
func (t Table) Labels() []string {
	out := make([]string, len(t.Groups))
	for i, g := range t.Groups {
		out[i] = g.Label
	}
	return out
}

// NoShows maps label to the no-show aggregate.
func (t Table) NoShows() map[string]float64 {
	out := make(map[string]float64, len(t.Groups))
	for _, g := range t.Groups {
		out[g.Label] = g.NoShows
	}
	return out
}

// Totals maps label to the total aggregate.
func (t Table) Totals() map[string]float64 {
	out := make(map[string]float64, len(t.Groups))
	for _, g := range t.Groups {
		out[g.Label] = g.Total
	}
	return out
}

// Proportions maps label to NoShows/Total, NaN for empty groups.
func (t Table) Proportions() map[string]float64 {
	out := make(map[string]float64, len(t.Groups))
	for _, g := range t.Groups {
		out[g.Label] = g.Proportion
	}
	return out
}

// Group returns the group for label.
func (t Table) Group(label string) (Group, bool) {
	for _, g := range t.Groups {
		if g.Label == label {
			return g, true
		}
	}
	return Group{}, false
}

// Sum returns the summed totals and no-shows over all groups.
func (t Table) Sum() (noShows, total float64) {
	for _, g := range t.Groups {
		noShows += g.NoShows
		total += g.Total
	}
	return noShows, total
}

// Filter returns the rows matching keep as a new slice.
func Filter(rows []appointment.Derived, keep func(*appointment.Derived) bool) []appointment.Derived {
	var out []appointment.Derived
	for i := range rows {
		if keep(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// NoShowsOnly keeps rows marked no-show.
func NoShowsOnly(r *appointment.Derived) bool { return r.NoShow }

// OnWeekday keeps rows scheduled on day.
func OnWeekday(day time.Weekday) func(*appointment.Derived) bool {
	return func(r *appointment.Derived) bool { return r.DayOfWeek == day }
}
