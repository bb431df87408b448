package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CopyDerivedAppointmentsParams struct {
	RunID                    pgtype.UUID
	AppointmentID            int64
	PatientID                int64
	Gender                   string
	ScheduledAt              pgtype.Timestamptz
	AppointmentDate          pgtype.Date
	Age                      int32
	Neighborhood             string
	WelfareEnrolled          int16
	Hypertension             int16
	Diabetes                 int16
	Alcoholism               int16
	HandicapLevel            int16
	SMSReceived              int16
	NoShow                   bool
	DayOfWeek                string
	TimeBucket               string
	RiskScore                int16
	RiskLabel                string
	PatientTotalAppointments int32
	PatientNoShowCount       int32
}

// iteratorForCopyDerivedAppointments implements pgx.CopyFromSource.
type iteratorForCopyDerivedAppointments struct {
	rows                 []CopyDerivedAppointmentsParams
	skippedFirstNextCall bool
}

func (r *iteratorForCopyDerivedAppointments) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForCopyDerivedAppointments) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].RunID,
		r.rows[0].AppointmentID,
		r.rows[0].PatientID,
		r.rows[0].Gender,
		r.rows[0].ScheduledAt,
		r.rows[0].AppointmentDate,
		r.rows[0].Age,
		r.rows[0].Neighborhood,
		r.rows[0].WelfareEnrolled,
		r.rows[0].Hypertension,
		r.rows[0].Diabetes,
		r.rows[0].Alcoholism,
		r.rows[0].HandicapLevel,
		r.rows[0].SMSReceived,
		r.rows[0].NoShow,
		r.rows[0].DayOfWeek,
		r.rows[0].TimeBucket,
		r.rows[0].RiskScore,
		r.rows[0].RiskLabel,
		r.rows[0].PatientTotalAppointments,
		r.rows[0].PatientNoShowCount,
	}, nil
}

func (r iteratorForCopyDerivedAppointments) Err() error {
	return nil
}

func (q *Queries) CopyDerivedAppointments(ctx context.Context, arg []CopyDerivedAppointmentsParams) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"derived_appointments"}, []string{
		"run_id", "appointment_id", "patient_id", "gender", "scheduled_at", "appointment_date",
		"age", "neighborhood", "welfare_enrolled", "hypertension", "diabetes", "alcoholism",
		"handicap_level", "sms_received", "no_show", "day_of_week", "time_bucket",
		"risk_score", "risk_label", "patient_total_appointments", "patient_no_show_count",
	}, &iteratorForCopyDerivedAppointments{rows: arg})
}
