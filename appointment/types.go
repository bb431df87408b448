// Package appointment holds the row types shared by every pipeline stage.
package appointment

import "time"

// Gender is the patient's recorded gender.
type Gender string

const (
	Female Gender = "F"
	Male   Gender = "M"
)

// Record is one scheduled appointment after column renaming and type
// coercion. A patient may own many records; AppointmentID is unique.
//
// Flag fields keep the source's 0/1 integer encoding so that a risk score
// is a plain sum. The validate tags are checked by the loader after
// coercion and double as documentation of each field's domain.
type Record struct {
	// ── Identity ──────────────────────────────────────────────────────
	PatientID     int64 `validate:"gte=0"`
	AppointmentID int64 `validate:"gte=0"`

	// ── Demographics ──────────────────────────────────────────────────
	Gender       Gender `validate:"oneof=M F"`
	Age          int    `validate:"gte=0"`
	Neighborhood string

	// ── Scheduling ────────────────────────────────────────────────────
	ScheduledAt     time.Time `validate:"required"` // when the booking was made, UTC as written
	AppointmentDate time.Time // visit day, midnight UTC

	// ── Flags ─────────────────────────────────────────────────────────
	WelfareEnrolled int `validate:"oneof=0 1"` // Bolsa Família enrollment
	Hypertension    int `validate:"oneof=0 1"`
	Diabetes        int `validate:"oneof=0 1"`
	Alcoholism      int `validate:"oneof=0 1"`
	HandicapLevel   int `validate:"gte=0,lte=4"`
	SMSReceived     int `validate:"oneof=0 1"`

	NoShow bool // true when the patient did not attend
}

// TimeBucket labels the hour of day an appointment was scheduled.
type TimeBucket string

const (
	EarlyMorning   TimeBucket = "EarlyMorning"
	LateMorning    TimeBucket = "LateMorning"
	EarlyAfternoon TimeBucket = "EarlyAfternoon"
	LateAfternoon  TimeBucket = "LateAfternoon"
	Evening        TimeBucket = "Evening"
	Unbucketed     TimeBucket = "Unbucketed"
)

// TimeBuckets lists every bucket in hour order, Unbucketed last.
var TimeBuckets = []TimeBucket{EarlyMorning, LateMorning, EarlyAfternoon, LateAfternoon, Evening, Unbucketed}

// RiskLabel names a risk score.
type RiskLabel string

const (
	RiskLow      RiskLabel = "Low"
	RiskMedium   RiskLabel = "Medium"
	RiskHigh     RiskLabel = "High"
	RiskVeryHigh RiskLabel = "VeryHigh"
)

// RiskLabels is indexed by risk score.
var RiskLabels = []RiskLabel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}

// Weekdays lists days in calendar order starting Monday.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Derived is a Record plus the attributes computed from it. The two
// Patient* fields are dataset-wide per-patient totals copied onto every
// row of that patient.
type Derived struct {
	Record

	DayOfWeek  time.Weekday
	TimeBucket TimeBucket
	RiskScore  int
	RiskLabel  RiskLabel

	PatientTotalAppointments int
	PatientNoShowCount       int
}

// Records returns the underlying records of rows, dropping derived values.
func Records(rows []Derived) []Record {
	out := make([]Record, len(rows))
	for i := range rows {
		out[i] = rows[i].Record
	}
	return out
}
