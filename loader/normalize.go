package loader

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"noshow/appointment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldColumn maps Record struct fields to the column they came from, so
// domain violations found by the validator name the input column.
var fieldColumn = map[string]string{
	"PatientID":       ColPatientID,
	"AppointmentID":   ColAppointmentID,
	"Gender":          ColGender,
	"Age":             ColAge,
	"ScheduledAt":     ColScheduledAt,
	"WelfareEnrolled": ColWelfareEnrolled,
	"Hypertension":    ColHypertension,
	"Diabetes":        ColDiabetes,
	"Alcoholism":      ColAlcoholism,
	"HandicapLevel":   ColHandicapLevel,
	"SMSReceived":     ColSMSReceived,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize coerces raw rows into records. It stops at the first
// violation: a missing column yields *SchemaError, a bad value
// *TypeCoercionError. rows is not modified.
func Normalize(rows []RawRow) ([]appointment.Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	// A column is present when any row carries it; a row lacking it
	// fails later with its own index.
	seen := make(map[string]bool, len(rows[0]))
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if err := CheckColumns(keys); err != nil {
		return nil, err
	}

	records := make([]appointment.Record, len(rows))
	for i, row := range rows {
		rec, err := NormalizeRow(i+1, row)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// NormalizeRow coerces a single raw row. rowIdx is reported in errors.
func NormalizeRow(rowIdx int, row RawRow) (appointment.Record, error) {
	p := rowParser{row: rowIdx, vals: canonicalize(row)}

	rec := appointment.Record{
		PatientID:       p.exactInt(ColPatientID),
		AppointmentID:   p.exactInt(ColAppointmentID),
		Gender:          appointment.Gender(strings.ToUpper(p.str(ColGender))),
		ScheduledAt:     p.timestamp(ColScheduledAt),
		AppointmentDate: p.date(ColAppointmentDate),
		Age:             p.integer(ColAge),
		Neighborhood:    p.str(ColNeighborhood),
		WelfareEnrolled: p.integer(ColWelfareEnrolled),
		Hypertension:    p.integer(ColHypertension),
		Diabetes:        p.integer(ColDiabetes),
		Alcoholism:      p.integer(ColAlcoholism),
		HandicapLevel:   p.integer(ColHandicapLevel),
		SMSReceived:     p.integer(ColSMSReceived),
		NoShow:          p.boolean(ColNoShow),
	}
	if p.err != nil {
		return appointment.Record{}, p.err
	}

	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			col := fieldColumn[fe.Field()]
			return appointment.Record{}, &TypeCoercionError{
				Row:   rowIdx,
				Field: col,
				Value: p.vals[col],
				Err:   fmt.Errorf("violates %s=%s", fe.Tag(), fe.Param()),
			}
		}
		return appointment.Record{}, fmt.Errorf("row %d: validate: %w", rowIdx, err)
	}
	return rec, nil
}

// rowParser accumulates the first coercion error of a row so that record
// construction reads as a single literal.
type rowParser struct {
	row  int
	vals map[string]string
	err  error
}

func (p *rowParser) fail(col, val string, err error) {
	if p.err == nil {
		p.err = &TypeCoercionError{Row: p.row, Field: col, Value: val, Err: err}
	}
}

var errMissing = errors.New("missing value")

// required returns the value of col, failing on absent or empty values.
func (p *rowParser) required(col string) (string, bool) {
	v, ok := p.vals[col]
	if !ok || v == "" {
		p.fail(col, v, errMissing)
		return "", false
	}
	return v, true
}

func (p *rowParser) str(col string) string {
	v, _ := p.required(col)
	return v
}

func (p *rowParser) integer(col string) int {
	v, ok := p.required(col)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(col, v, errors.New("not an integer"))
		return 0
	}
	return n
}

func (p *rowParser) exactInt(col string) int64 {
	v, ok := p.required(col)
	if !ok {
		return 0
	}
	n, err := ParseExactInt(v)
	if err != nil {
		p.fail(col, v, err)
		return 0
	}
	return n
}

func (p *rowParser) timestamp(col string) time.Time {
	v, ok := p.required(col)
	if !ok {
		return time.Time{}
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		p.fail(col, v, err)
		return time.Time{}
	}
	return t
}

func (p *rowParser) date(col string) time.Time {
	t := p.timestamp(col)
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p *rowParser) boolean(col string) bool {
	v, ok := p.required(col)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1":
		return true
	case "no", "n", "false", "0":
		return false
	}
	p.fail(col, v, errors.New("not a yes/no value"))
	return false
}

// ParseExactInt parses an integer written as an integer, a decimal or in
// scientific notation without passing through float64, so ids above 2^53
// survive intact. Fractional values are truncated toward zero.
// "29872499824296", "2.9872499824296e+13", "29872499824296.0" → 29872499824296
func ParseExactInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, errors.New("not a number")
	}
	n := new(big.Int).Quo(r.Num(), r.Denom())
	if !n.IsInt64() {
		return 0, errors.New("out of int64 range")
	}
	return n.Int64(), nil
}

// ParseTimestamp accepts RFC 3339 and a few common date-time layouts.
// Layouts without a zone are read as UTC. A written offset is kept, so
// Hour reports the clock time as recorded.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("not a timestamp")
}
