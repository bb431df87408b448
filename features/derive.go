// Package features computes the derived columns of an appointment table:
// scheduling weekday, time-of-day bucket, health-risk score and label, and
// per-patient appointment and no-show counts broadcast onto every row of
// that patient.
package features

import "noshow/appointment"

// bucketEdges are the hour boundaries of the time-of-day buckets. Bucket
// i holds hours h with bucketEdges[i] < h <= bucketEdges[i+1], except
// that hour 21 and later is never bucketed. Hour 0 precedes the first
// edge and is Unbucketed as well.
var bucketEdges = [...]int{0, 9, 12, 15, 18, 21}

var bucketOrder = [...]appointment.TimeBucket{
	appointment.EarlyMorning,
	appointment.LateMorning,
	appointment.EarlyAfternoon,
	appointment.LateAfternoon,
	appointment.Evening,
}

// Bucket maps an hour of day to its time bucket.
//
//	1-9 EarlyMorning, 10-12 LateMorning, 13-15 EarlyAfternoon,
//	16-18 LateAfternoon, 19-20 Evening, 0 and 21-23 Unbucketed
func Bucket(hour int) appointment.TimeBucket {
	last := bucketEdges[len(bucketEdges)-1]
	if hour <= bucketEdges[0] || hour >= last {
		return appointment.Unbucketed
	}
	for i := 1; i < len(bucketEdges); i++ {
		if hour <= bucketEdges[i] {
			return bucketOrder[i-1]
		}
	}
	return appointment.Unbucketed
}

// Risk returns the record's risk score (number of hypertension, diabetes
// and alcoholism flags set) and its label. Any non-zero flag counts as
// set, so the score stays within 0..3 for records built outside the
// loader.
func Risk(r appointment.Record) (int, appointment.RiskLabel) {
	score := flag(r.Hypertension) + flag(r.Diabetes) + flag(r.Alcoholism)
	return score, appointment.RiskLabels[score]
}

func flag(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}

// PatientStats are the dataset-wide counts for one patient.
type PatientStats struct {
	Total   int
	NoShows int
}

// PatientIndex counts appointments and no-shows per patient.
func PatientIndex(records []appointment.Record) map[int64]PatientStats {
	idx := make(map[int64]PatientStats)
	for i := range records {
		s := idx[records[i].PatientID]
		s.Total++
		if records[i].NoShow {
			s.NoShows++
		}
		idx[records[i].PatientID] = s
	}
	return idx
}

// Derive computes every derived attribute. A patient's totals are only
// known once all rows have been seen, so the patient index is built in a
// full pass and then broadcast onto each row by lookup. records is not
// modified.
func Derive(records []appointment.Record) []appointment.Derived {
	idx := PatientIndex(records)

	out := make([]appointment.Derived, len(records))
	for i, rec := range records {
		score, label := Risk(rec)
		s := idx[rec.PatientID]
		out[i] = appointment.Derived{
			Record:                   rec,
			DayOfWeek:                rec.ScheduledAt.Weekday(),
			TimeBucket:               Bucket(rec.ScheduledAt.Hour()),
			RiskScore:                score,
			RiskLabel:                label,
			PatientTotalAppointments: s.Total,
			PatientNoShowCount:       s.NoShows,
		}
	}
	return out
}

// Rederive discards the derived attributes of rows and computes them
// again from the underlying records.
func Rederive(rows []appointment.Derived) []appointment.Derived {
	return Derive(appointment.Records(rows))
}
