// Package export writes a finished report out of the process: derived
// rows to Parquet, and the run with its aggregate tables to Postgres.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"noshow/appointment"
	"noshow/report"
)

// DerivedRow is the flat Parquet layout of one derived appointment.
// Low-cardinality strings are dictionary encoded.
type DerivedRow struct {
	AppointmentID            int64     `parquet:"appointment_id"`
	PatientID                int64     `parquet:"patient_id"`
	Gender                   string    `parquet:"gender,dict"`
	ScheduledAt              time.Time `parquet:"scheduled_at,timestamp"`
	AppointmentDate          time.Time `parquet:"appointment_date,timestamp"`
	Age                      int32     `parquet:"age"`
	Neighborhood             string    `parquet:"neighborhood,dict"`
	WelfareEnrolled          int32     `parquet:"welfare_enrolled"`
	Hypertension             int32     `parquet:"hypertension"`
	Diabetes                 int32     `parquet:"diabetes"`
	Alcoholism               int32     `parquet:"alcoholism"`
	HandicapLevel            int32     `parquet:"handicap_level"`
	SMSReceived              int32     `parquet:"sms_received"`
	NoShow                   bool      `parquet:"no_show"`
	DayOfWeek                string    `parquet:"day_of_week,dict"`
	TimeBucket               string    `parquet:"time_bucket,dict"`
	RiskScore                int32     `parquet:"risk_score"`
	RiskLabel                string    `parquet:"risk_label,dict"`
	PatientTotalAppointments int32     `parquet:"patient_total_appointments"`
	PatientNoShowCount       int32     `parquet:"patient_no_show_count"`
}

// FromDerived flattens a derived appointment.
func FromDerived(d *appointment.Derived) DerivedRow {
	return DerivedRow{
		AppointmentID:            d.AppointmentID,
		PatientID:                d.PatientID,
		Gender:                   string(d.Gender),
		ScheduledAt:              d.ScheduledAt,
		AppointmentDate:          d.AppointmentDate,
		Age:                      int32(d.Age),
		Neighborhood:             d.Neighborhood,
		WelfareEnrolled:          int32(d.WelfareEnrolled),
		Hypertension:             int32(d.Hypertension),
		Diabetes:                 int32(d.Diabetes),
		Alcoholism:               int32(d.Alcoholism),
		HandicapLevel:            int32(d.HandicapLevel),
		SMSReceived:              int32(d.SMSReceived),
		NoShow:                   d.NoShow,
		DayOfWeek:                d.DayOfWeek.String(),
		TimeBucket:               string(d.TimeBucket),
		RiskScore:                int32(d.RiskScore),
		RiskLabel:                string(d.RiskLabel),
		PatientTotalAppointments: int32(d.PatientTotalAppointments),
		PatientNoShowCount:       int32(d.PatientNoShowCount),
	}
}

// ParquetWriter writes DerivedRow records to a zstd-compressed Parquet file
// with page statistics on every column.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[DerivedRow]
	count  int
}

// NewParquetWriter creates filename, truncating any existing file.
func NewParquetWriter(filename string) (*ParquetWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[DerivedRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.WriteBufferSize(64*1024*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("noshow", "1.0", ""),
	)

	return &ParquetWriter{
		file:   file,
		writer: writer,
	}, nil
}

// Write writes a batch of rows.
func (w *ParquetWriter) Write(rows []DerivedRow) (int, error) {
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the total number of rows written.
func (w *ParquetWriter) Count() int {
	return w.count
}

// ReadParquet reads every row of a file written by ParquetWriter.
func ReadParquet(path string) ([]DerivedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[DerivedRow](f)
	defer reader.Close()

	rows := make([]DerivedRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows[:n], nil
}

const writeBatch = 10_000

// Parquet is a presenter that writes the derived rows of a report.
type Parquet struct {
	Path string
}

func (p Parquet) Present(ctx context.Context, r *report.Report) error {
	w, err := NewParquetWriter(p.Path)
	if err != nil {
		return err
	}

	batch := make([]DerivedRow, 0, min(writeBatch, len(r.Rows)))
	for i := range r.Rows {
		batch = append(batch, FromDerived(&r.Rows[i]))
		if len(batch) == writeBatch {
			if err := ctx.Err(); err != nil {
				w.Close()
				return err
			}
			if _, err := w.Write(batch); err != nil {
				w.Close()
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
