package aggregate

import (
	"math"
	"sort"

	"noshow/appointment"
)

// PatientNoShow is the per-row projection handed to distribution plots.
type PatientNoShow struct {
	PatientID          int64
	AppointmentID      int64
	PatientNoShowCount int
}

// CountFreq is one histogram bar: Patients patients missed Missed
// appointments each.
type CountFreq struct {
	Missed   int
	Patients int
}

// NoShowDistribution describes how missed appointments spread across the
// patients who missed at least one. Quartiles use linear interpolation
// between order statistics; Std is the sample standard deviation (NaN
// with fewer than two patients). Every statistic is NaN when no patient
// missed an appointment.
type NoShowDistribution struct {
	MissedAppointments int // no-show rows
	Patients           []PatientNoShow

	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64

	Histogram []CountFreq // ascending by Missed
}

// Distribution projects no-show rows to (patient, appointment,
// patient no-show count), keeps the first row of each patient, and
// summarizes the per-patient counts.
func Distribution(rows []appointment.Derived) NoShowDistribution {
	d := NoShowDistribution{}
	seen := make(map[int64]bool)

	for i := range rows {
		r := &rows[i]
		if !r.NoShow {
			continue
		}
		d.MissedAppointments++
		if seen[r.PatientID] {
			continue
		}
		seen[r.PatientID] = true
		d.Patients = append(d.Patients, PatientNoShow{
			PatientID:          r.PatientID,
			AppointmentID:      r.AppointmentID,
			PatientNoShowCount: r.PatientNoShowCount,
		})
	}

	values := make([]float64, len(d.Patients))
	freq := make(map[int]int)
	for i, p := range d.Patients {
		values[i] = float64(p.PatientNoShowCount)
		freq[p.PatientNoShowCount]++
	}
	sort.Float64s(values)

	d.Count = len(values)
	d.Mean = mean(values)
	d.Std = sampleStd(values, d.Mean)
	d.Min = quantile(values, 0)
	d.Q25 = quantile(values, 0.25)
	d.Median = quantile(values, 0.5)
	d.Q75 = quantile(values, 0.75)
	d.Max = quantile(values, 1)

	for missed, n := range freq {
		d.Histogram = append(d.Histogram, CountFreq{Missed: missed, Patients: n})
	}
	sort.Slice(d.Histogram, func(i, j int) bool { return d.Histogram[i].Missed < d.Histogram[j].Missed })
	return d
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
