package aggregate

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noshow/appointment"
	"noshow/features"
	"noshow/loader"
)

func sampleRows(t *testing.T) []appointment.Derived {
	t.Helper()
	r, err := loader.NewCSVReader("../testdata/appointments.csv")
	require.NoError(t, err)
	defer r.Close()

	raw, err := r.ReadAll()
	require.NoError(t, err)
	records, err := loader.Normalize(raw)
	require.NoError(t, err)
	return features.Derive(records)
}

func TestAggregateTimeBucket(t *testing.T) {
	tbl := Aggregate(sampleRows(t), ByTimeBucket, CountRows)

	assert.Equal(t, []string{
		"EarlyMorning", "LateMorning", "EarlyAfternoon", "LateAfternoon", "Evening", "Unbucketed",
	}, tbl.Labels())
	assert.Equal(t, map[string]float64{
		"EarlyMorning": 2, "LateMorning": 1, "EarlyAfternoon": 2,
		"LateAfternoon": 5, "Evening": 1, "Unbucketed": 1,
	}, tbl.Totals())
	assert.Equal(t, map[string]float64{
		"EarlyMorning": 0, "LateMorning": 1, "EarlyAfternoon": 2,
		"LateAfternoon": 0, "Evening": 1, "Unbucketed": 0,
	}, tbl.NoShows())

	p := tbl.Proportions()
	assert.Equal(t, 1.0, p["EarlyAfternoon"])
	assert.Equal(t, 0.0, p["LateAfternoon"])
}

func TestAggregateDayOfWeekFullDomain(t *testing.T) {
	tbl := Aggregate(sampleRows(t), ByDayOfWeek, CountRows)

	assert.Equal(t, []string{
		"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
	}, tbl.Labels())

	totals := tbl.Totals()
	assert.Equal(t, 6.0, totals["Friday"])
	assert.Equal(t, 3.0, totals["Wednesday"])

	for _, day := range []string{"Thursday", "Sunday"} {
		g, ok := tbl.Group(day)
		require.True(t, ok)
		assert.True(t, g.Empty())
		assert.Zero(t, g.Total)
		assert.True(t, math.IsNaN(g.Proportion), "%s proportion should be NaN", day)
	}

	sat, _ := tbl.Group("Saturday")
	assert.Equal(t, 1.0, sat.Proportion)
}

func TestAggregateRiskLabelPatientSums(t *testing.T) {
	tbl := Aggregate(sampleRows(t), ByRiskLabel, SumPatientCounts)

	assert.Equal(t, []string{"Low", "Medium", "High", "VeryHigh"}, tbl.Labels())
	assert.Equal(t, map[string]float64{"Low": 14, "Medium": 2, "High": 1, "VeryHigh": 1}, tbl.Totals())
	assert.Equal(t, map[string]float64{"Low": 7, "Medium": 0, "High": 0, "VeryHigh": 1}, tbl.NoShows())
	assert.InDelta(t, 0.5, tbl.Proportions()["Low"], 1e-12)
}

func TestAggregateRiskLabelMissingLabels(t *testing.T) {
	// Only scores 0 and 1 present: High and VeryHigh must still appear.
	rows := features.Derive([]appointment.Record{
		{PatientID: 1, AppointmentID: 1, ScheduledAt: time.Date(2016, 5, 2, 10, 0, 0, 0, time.UTC), NoShow: true},
		{PatientID: 2, AppointmentID: 2, ScheduledAt: time.Date(2016, 5, 2, 10, 0, 0, 0, time.UTC), Diabetes: 1},
	})
	tbl := Aggregate(rows, ByRiskLabel, CountRows)

	require.Len(t, tbl.Groups, 4)
	for _, label := range []string{"High", "VeryHigh"} {
		g, ok := tbl.Group(label)
		require.True(t, ok, label)
		assert.Zero(t, g.Total)
		assert.True(t, math.IsNaN(g.Proportion))
	}
	low, _ := tbl.Group("Low")
	assert.Equal(t, Group{Label: "Low", NoShows: 1, Total: 1, Proportion: 1}, low)
}

func TestAggregateTotalsSumToRowCount(t *testing.T) {
	rows := sampleRows(t)
	for _, dim := range []Dimension{ByRiskLabel, ByTimeBucket, ByDayOfWeek} {
		t.Run(dim.String(), func(t *testing.T) {
			noShows, total := Aggregate(rows, dim, CountRows).Sum()
			assert.Equal(t, float64(len(rows)), total)
			assert.Equal(t, 4.0, noShows)
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	rows := sampleRows(t)
	shuffled := append([]appointment.Derived(nil), rows...)
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for _, dim := range []Dimension{ByRiskLabel, ByTimeBucket, ByDayOfWeek} {
		for _, m := range []Measure{CountRows, SumPatientCounts} {
			a := Aggregate(rows, dim, m)
			b := Aggregate(shuffled, dim, m)
			assert.Equal(t, a.Totals(), b.Totals(), "%s/%s", dim, m)
			assert.Equal(t, a.NoShows(), b.NoShows(), "%s/%s", dim, m)
		}
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	tbl := Aggregate(nil, ByTimeBucket, CountRows)
	require.Len(t, tbl.Groups, len(appointment.TimeBuckets))
	for _, g := range tbl.Groups {
		assert.True(t, math.IsNaN(g.Proportion))
	}
}

func TestFilter(t *testing.T) {
	rows := sampleRows(t)
	missed := Filter(rows, NoShowsOnly)
	assert.Len(t, missed, 4)
	assert.Len(t, rows, 12, "filter must not shrink its input")

	friday := Filter(rows, OnWeekday(time.Friday))
	assert.Len(t, friday, 6)
}

func TestDistribution(t *testing.T) {
	d := Distribution(sampleRows(t))

	assert.Equal(t, 4, d.MissedAppointments)
	require.Len(t, d.Patients, 3)
	assert.Equal(t, PatientNoShow{PatientID: 733688164476661, AppointmentID: 5630279, PatientNoShowCount: 2}, d.Patients[0])

	assert.Equal(t, 3, d.Count)
	assert.InDelta(t, 4.0/3.0, d.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1.0/3.0), d.Std, 1e-12)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 1.0, d.Q25)
	assert.Equal(t, 1.0, d.Median)
	assert.Equal(t, 1.5, d.Q75)
	assert.Equal(t, 2.0, d.Max)
	assert.Equal(t, []CountFreq{{Missed: 1, Patients: 2}, {Missed: 2, Patients: 1}}, d.Histogram)
}

func TestDistributionNoMisses(t *testing.T) {
	d := Distribution(features.Derive([]appointment.Record{{PatientID: 1, AppointmentID: 1}}))
	assert.Zero(t, d.Count)
	assert.True(t, math.IsNaN(d.Mean))
	assert.True(t, math.IsNaN(d.Median))
	assert.Empty(t, d.Histogram)
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(xs, 0))
	assert.Equal(t, 1.75, quantile(xs, 0.25))
	assert.Equal(t, 2.5, quantile(xs, 0.5))
	assert.Equal(t, 4.0, quantile(xs, 1))
}
