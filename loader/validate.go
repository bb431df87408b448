package loader

import (
	"sort"
	"strconv"
	"strings"
)

// DuplicateID is an appointment_id seen on more than one row.
type DuplicateID struct {
	AppointmentID string
	Rows          []int // 1-based data row indexes
}

// MissingField is a required value that is absent or empty.
type MissingField struct {
	Row   int
	Field string
}

// Report is the outcome of Validate. It describes problems; it never
// changes the input.
type Report struct {
	Rows              int
	MissingColumns    []string
	DuplicateIDs      []DuplicateID
	MissingFields     []MissingField
	DuplicateRowCount int // rows identical in every field to an earlier row
}

// OK reports whether no problem was found.
func (r Report) OK() bool {
	return len(r.MissingColumns) == 0 && len(r.DuplicateIDs) == 0 &&
		len(r.MissingFields) == 0 && r.DuplicateRowCount == 0
}

// ProblemCount is the total number of findings.
func (r Report) ProblemCount() int {
	return len(r.MissingColumns) + len(r.DuplicateIDs) + len(r.MissingFields) + r.DuplicateRowCount
}

// Validate inspects raw rows for duplicate appointment ids, missing
// required values, missing columns and fully duplicated rows.
// Appointment ids are compared after exact integer parsing when
// possible, so "5642903" and "5.642903e+06" collide.
func Validate(rows []RawRow) Report {
	rep := Report{Rows: len(rows)}

	seenCols := make(map[string]bool, len(RequiredColumns))
	idRows := make(map[string][]int)
	var idOrder []string
	rowSeen := make(map[string]bool, len(rows))

	for i, raw := range rows {
		rowIdx := i + 1
		vals := canonicalize(raw)

		for _, col := range RequiredColumns {
			v, ok := vals[col]
			if ok {
				seenCols[col] = true
			}
			if !ok || v == "" {
				rep.MissingFields = append(rep.MissingFields, MissingField{Row: rowIdx, Field: col})
			}
		}

		if v := vals[ColAppointmentID]; v != "" {
			key := v
			if n, err := ParseExactInt(v); err == nil {
				key = strconv.FormatInt(n, 10)
			}
			if _, ok := idRows[key]; !ok {
				idOrder = append(idOrder, key)
			}
			idRows[key] = append(idRows[key], rowIdx)
		}

		fp := fingerprint(vals)
		if rowSeen[fp] {
			rep.DuplicateRowCount++
		}
		rowSeen[fp] = true
	}

	if len(rows) > 0 {
		for _, col := range RequiredColumns {
			if !seenCols[col] {
				rep.MissingColumns = append(rep.MissingColumns, col)
			}
		}
		// A column missing everywhere is reported once, not per row.
		if len(rep.MissingColumns) > 0 {
			missing := make(map[string]bool, len(rep.MissingColumns))
			for _, c := range rep.MissingColumns {
				missing[c] = true
			}
			kept := rep.MissingFields[:0]
			for _, mf := range rep.MissingFields {
				if !missing[mf.Field] {
					kept = append(kept, mf)
				}
			}
			rep.MissingFields = kept
		}
	}

	for _, id := range idOrder {
		if r := idRows[id]; len(r) > 1 {
			rep.DuplicateIDs = append(rep.DuplicateIDs, DuplicateID{AppointmentID: id, Rows: r})
		}
	}
	return rep
}

func fingerprint(vals map[string]string) string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(vals[k])
		b.WriteByte('\x00')
	}
	return b.String()
}
