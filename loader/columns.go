package loader

import (
	"sort"
	"strings"
)

// Canonical column names. Every stage after the loader refers to fields
// by these names only.
const (
	ColPatientID       = "patient_id"
	ColAppointmentID   = "appointment_id"
	ColGender          = "gender"
	ColScheduledAt     = "scheduled_at"
	ColAppointmentDate = "appointment_date"
	ColAge             = "age"
	ColNeighborhood    = "neighborhood"
	ColWelfareEnrolled = "welfare_enrolled"
	ColHypertension    = "hypertension"
	ColDiabetes        = "diabetes"
	ColAlcoholism      = "alcoholism"
	ColHandicapLevel   = "handicap_level"
	ColSMSReceived     = "sms_received"
	ColNoShow          = "no_show"
)

// RequiredColumns is the canonical vocabulary in source column order.
var RequiredColumns = []string{
	ColPatientID, ColAppointmentID, ColGender, ColScheduledAt, ColAppointmentDate,
	ColAge, ColNeighborhood, ColWelfareEnrolled, ColHypertension, ColDiabetes,
	ColAlcoholism, ColHandicapLevel, ColSMSReceived, ColNoShow,
}

// columnAliases maps a folded header (lowercase, no spaces, underscores or
// hyphens) to its canonical name. The source CSV spells some columns in
// Portuguese-influenced English ("Hipertension", "Handcap").
var columnAliases = map[string]string{
	"patientid":       ColPatientID,
	"appointmentid":   ColAppointmentID,
	"gender":          ColGender,
	"scheduledat":     ColScheduledAt,
	"scheduledday":    ColScheduledAt,
	"appointmentdate": ColAppointmentDate,
	"appointmentday":  ColAppointmentDate,
	"age":             ColAge,
	"neighborhood":    ColNeighborhood,
	"neighbourhood":   ColNeighborhood,
	"welfareenrolled": ColWelfareEnrolled,
	"scholarship":     ColWelfareEnrolled,
	"hypertension":    ColHypertension,
	"hipertension":    ColHypertension,
	"diabetes":        ColDiabetes,
	"alcoholism":      ColAlcoholism,
	"handicaplevel":   ColHandicapLevel,
	"handicap":        ColHandicapLevel,
	"handcap":         ColHandicapLevel,
	"smsreceived":     ColSMSReceived,
	"noshow":          ColNoShow,
}

// CanonicalColumn returns the canonical name for a raw header and whether
// the header is recognized at all.
// "No-show" → "no_show", "SMS_received" → "sms_received", " PatientId " → "patient_id"
func CanonicalColumn(raw string) (string, bool) {
	c, ok := columnAliases[foldHeader(raw)]
	return c, ok
}

func foldHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range strings.ToLower(h) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// canonicalize re-keys a raw row by canonical column name. Unknown
// columns are dropped. When several headers map to one column, the
// first in sorted header order wins.
func canonicalize(row RawRow) map[string]string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(RequiredColumns))
	for _, k := range keys {
		c, ok := CanonicalColumn(k)
		if !ok {
			continue
		}
		if _, seen := out[c]; !seen {
			out[c] = row[k]
		}
	}
	return out
}
