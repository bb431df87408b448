// Package metrics records run counters on a private registry and pushes
// them to a Prometheus Pushgateway on request.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"noshow/appointment"
	"noshow/loader"
)

type Metrics struct {
	Registry *prometheus.Registry

	RowsLoaded         prometheus.Counter
	BucketRows         *prometheus.CounterVec
	ValidationProblems *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "noshow_rows_loaded_total",
				Help: "Appointment rows normalized",
			},
		),
		BucketRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noshow_bucket_rows_total",
				Help: "Derived rows per time-of-day bucket",
			},
			[]string{"bucket"},
		),
		ValidationProblems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noshow_validation_problems_total",
				Help: "Validation problems by kind",
			},
			[]string{"kind"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "noshow_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
	}
	m.Registry.MustRegister(m.RowsLoaded, m.BucketRows, m.ValidationProblems, m.StageDuration)
	return m
}

// ObserveStage records the time since start under stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordRows counts derived rows, including every bucket so empty ones
// still export a zero series.
func (m *Metrics) RecordRows(rows []appointment.Derived) {
	m.RowsLoaded.Add(float64(len(rows)))
	for _, b := range appointment.TimeBuckets {
		m.BucketRows.WithLabelValues(string(b))
	}
	for i := range rows {
		m.BucketRows.WithLabelValues(string(rows[i].TimeBucket)).Inc()
	}
}

func (m *Metrics) RecordValidation(rep loader.Report) {
	m.ValidationProblems.WithLabelValues("missing_column").Add(float64(len(rep.MissingColumns)))
	m.ValidationProblems.WithLabelValues("duplicate_id").Add(float64(len(rep.DuplicateIDs)))
	m.ValidationProblems.WithLabelValues("missing_field").Add(float64(len(rep.MissingFields)))
	m.ValidationProblems.WithLabelValues("duplicate_row").Add(float64(rep.DuplicateRowCount))
}

// Push sends every metric to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
