package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"noshow/export"
	"noshow/loader"
	"noshow/metrics"
	"noshow/report"
)

const sample = "../testdata/appointments.csv"

// withDuplicate copies the sample and appends its first data row again.
func withDuplicate(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(sample)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lines = append(lines, lines[1])

	path := filepath.Join(t.TempDir(), "dup.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.New()
	parquetPath := filepath.Join(t.TempDir(), "out.parquet")

	res, err := Run(context.Background(), Config{File: sample, Metrics: m},
		report.NewTerminal(&buf, false), export.Parquet{Path: parquetPath})
	require.NoError(t, err)

	assert.True(t, res.Validation.OK())
	assert.Equal(t, "appointments.csv", res.Report.Source)
	assert.Equal(t, report.Summary{Rows: 12, Patients: 10, NoShows: 4}, res.Report.Summary)
	assert.Contains(t, buf.String(), "per time of day")

	rows, err := export.ReadParquet(parquetPath)
	require.NoError(t, err)
	assert.Len(t, rows, 12)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.BucketRows.WithLabelValues("LateAfternoon")))
	assert.Equal(t, 6, testutil.CollectAndCount(m.StageDuration))
}

func TestRunDuplicatesLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	res, err := Run(context.Background(), Config{File: withDuplicate(t), Log: zap.New(core)})
	require.NoError(t, err)

	assert.False(t, res.Validation.OK())
	assert.Equal(t, 1, res.Validation.DuplicateRowCount)
	require.Len(t, res.Validation.DuplicateIDs, 1)
	assert.Equal(t, 13, res.Report.Summary.Rows)

	assert.Equal(t, 1, logs.FilterMessage("duplicate appointment id").Len())
	assert.Equal(t, 1, logs.FilterMessage("validation found problems").Len())
}

func TestRunStrict(t *testing.T) {
	res, err := Run(context.Background(), Config{File: withDuplicate(t), Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Nil(t, res.Report)
	assert.Equal(t, 2, res.Validation.ProblemCount())
}

func TestRunSchemaError(t *testing.T) {
	path := writeCSV(t, "PatientId,AppointmentID\n1,2\n")
	_, err := Run(context.Background(), Config{File: path})

	var se *loader.SchemaError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, loader.ColGender, se.Column)
}

func TestRunSchemaErrorHeaderOnly(t *testing.T) {
	path := writeCSV(t, "PatientId,AppointmentID\n")
	_, err := Run(context.Background(), Config{File: path})

	var se *loader.SchemaError
	assert.True(t, errors.As(err, &se), "got %v", err)
}

func TestRunCoercionError(t *testing.T) {
	data, err := os.ReadFile(sample)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	// Gender is the third column.
	fields := strings.Split(lines[1], ",")
	fields[2] = "X"
	lines[1] = strings.Join(fields, ",")

	_, err = Run(context.Background(), Config{File: writeCSV(t, strings.Join(lines, "\n"))})
	var ce *loader.TypeCoercionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, 1, ce.Row)
}

func TestRunMissingFile(t *testing.T) {
	_, err := Run(context.Background(), Config{File: filepath.Join(t.TempDir(), "nope.csv")})
	assert.ErrorContains(t, err, "nope.csv")
}

type failingPresenter struct{}

func (failingPresenter) Present(context.Context, *report.Report) error {
	return errors.New("disk full")
}

func TestRunPresenterError(t *testing.T) {
	res, err := Run(context.Background(), Config{File: sample}, failingPresenter{})
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, res.Report)
}

func TestReadFile(t *testing.T) {
	headers, rows, err := ReadFile(context.Background(), sample, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 12)
	assert.Equal(t, "PatientId", headers[0])
}
