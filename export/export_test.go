package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noshow/features"
	"noshow/loader"
	"noshow/report"
)

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	r, err := loader.NewCSVReader("../testdata/appointments.csv")
	require.NoError(t, err)
	defer r.Close()

	raw, err := r.ReadAll()
	require.NoError(t, err)
	records, err := loader.Normalize(raw)
	require.NoError(t, err)
	return report.Build("appointments.csv", features.Derive(records))
}

func TestParquetRoundTrip(t *testing.T) {
	rep := sampleReport(t)
	path := filepath.Join(t.TempDir(), "derived.parquet")

	require.NoError(t, Parquet{Path: path}.Present(context.Background(), rep))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))

	rows, err := ReadParquet(path)
	require.NoError(t, err)
	require.Len(t, rows, len(rep.Rows))

	for i := range rows {
		want := FromDerived(&rep.Rows[i])
		got := rows[i]

		assert.True(t, want.ScheduledAt.Equal(got.ScheduledAt), "row %d scheduled_at: want %s got %s", i, want.ScheduledAt, got.ScheduledAt)
		assert.True(t, want.AppointmentDate.Equal(got.AppointmentDate), "row %d appointment_date", i)
		want.ScheduledAt, got.ScheduledAt = time.Time{}, time.Time{}
		want.AppointmentDate, got.AppointmentDate = time.Time{}, time.Time{}
		assert.Equal(t, want, got, "row %d", i)
	}
}

func TestParquetWriterCount(t *testing.T) {
	rep := sampleReport(t)
	path := filepath.Join(t.TempDir(), "count.parquet")

	w, err := NewParquetWriter(path)
	require.NoError(t, err)

	batch := []DerivedRow{FromDerived(&rep.Rows[0]), FromDerived(&rep.Rows[1])}
	n, err := w.Write(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = w.Write(batch[:1])
	require.NoError(t, err)
	assert.Equal(t, 3, w.Count())
	require.NoError(t, w.Close())

	rows, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParquetEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, Parquet{Path: path}.Present(context.Background(), &report.Report{}))

	rows, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFromDerived(t *testing.T) {
	rep := sampleReport(t)
	row := FromDerived(&rep.Rows[0])

	assert.Equal(t, rep.Rows[0].AppointmentID, row.AppointmentID)
	assert.Equal(t, rep.Rows[0].DayOfWeek.String(), row.DayOfWeek)
	assert.Equal(t, string(rep.Rows[0].RiskLabel), row.RiskLabel)
	assert.Equal(t, int32(rep.Rows[0].PatientTotalAppointments), row.PatientTotalAppointments)
}

func TestReadParquetMissingFile(t *testing.T) {
	_, err := ReadParquet(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.ErrorContains(t, err, "open parquet")
}
