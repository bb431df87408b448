package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noshow/appointment"
	"noshow/features"
	"noshow/loader"
)

func TestRecordRows(t *testing.T) {
	m := New()
	rows := features.Derive([]appointment.Record{
		{PatientID: 1, AppointmentID: 1, ScheduledAt: time.Date(2016, 4, 29, 8, 0, 0, 0, time.UTC)},
		{PatientID: 1, AppointmentID: 2, ScheduledAt: time.Date(2016, 4, 29, 8, 30, 0, 0, time.UTC)},
		{PatientID: 2, AppointmentID: 3, ScheduledAt: time.Date(2016, 4, 29, 23, 0, 0, 0, time.UTC)},
	})
	m.RecordRows(rows)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, len(appointment.TimeBuckets), testutil.CollectAndCount(m.BucketRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BucketRows.WithLabelValues(string(appointment.EarlyMorning))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BucketRows.WithLabelValues(string(appointment.Unbucketed))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BucketRows.WithLabelValues(string(appointment.Evening))))
}

func TestRecordValidation(t *testing.T) {
	m := New()
	m.RecordValidation(loader.Report{
		MissingColumns:    []string{"Gender"},
		DuplicateIDs:      []loader.DuplicateID{{AppointmentID: "1", Rows: []int{1, 2}}},
		DuplicateRowCount: 3,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationProblems.WithLabelValues("missing_column")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationProblems.WithLabelValues("duplicate_id")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ValidationProblems.WithLabelValues("missing_field")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ValidationProblems.WithLabelValues("duplicate_row")))
}

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("load", time.Now().Add(-time.Second))
	m.ObserveStage("derive", time.Now())
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.RowsLoaded.Add(12)
	require.NoError(t, m.Push(context.Background(), srv.URL, "noshow"))
	assert.Equal(t, "/metrics/job/noshow", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "noshow")
	assert.ErrorContains(t, err, "push metrics")
}
