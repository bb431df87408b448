// Package pipeline runs one analysis: read, validate, normalize,
// derive, aggregate, then hand the report to each presenter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"noshow/features"
	"noshow/loader"
	"noshow/metrics"
	"noshow/report"
)

// ErrValidation is returned in strict mode when validation finds
// problems.
var ErrValidation = errors.New("validation failed")

// Config drives one run.
type Config struct {
	File    string
	Strict  bool
	Log     *zap.Logger      // nil logs nothing
	Metrics *metrics.Metrics // nil records nothing
}

// Result is the outcome of a run.
type Result struct {
	Validation loader.Report
	Report     *report.Report
}

// ReadFile reads the header and every data row of a delimited file.
func ReadFile(ctx context.Context, path string, log *zap.Logger) (headers []string, rows []loader.RawRow, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	r, err := loader.NewCSVReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	lastLog := time.Now()
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read CSV row %d: %w", r.RowNum(), err)
		}
		rows = append(rows, row)

		if time.Since(lastLog) >= 5*time.Second {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			elapsed := time.Since(start).Seconds()
			log.Info("progress",
				zap.Int("rows", len(rows)),
				zap.Float64("rows_per_sec", float64(len(rows))/elapsed))
			lastLog = time.Now()
		}
	}
	return r.Headers(), rows, nil
}

// Run executes the pipeline over cfg.File. Validation problems are
// logged, and fatal in strict mode. The first coercion error is fatal.
// Presenters run in order after the report is built.
func Run(ctx context.Context, cfg Config, presenters ...report.Presenter) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	start := time.Now()
	headers, raw, err := ReadFile(ctx, cfg.File, log)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.File, err)
	}
	m.ObserveStage("read", start)
	log.Info("read input", zap.String("file", cfg.File), zap.Int("rows", len(raw)))

	res := &Result{}

	start = time.Now()
	res.Validation = loader.Validate(raw)
	m.RecordValidation(res.Validation)
	m.ObserveStage("validate", start)
	LogValidation(log, res.Validation)
	if cfg.Strict && !res.Validation.OK() {
		return res, fmt.Errorf("%w: %d problems", ErrValidation, res.Validation.ProblemCount())
	}

	if err := loader.CheckColumns(headers); err != nil {
		return res, fmt.Errorf("normalize: %w", err)
	}
	start = time.Now()
	records, err := loader.Normalize(raw)
	if err != nil {
		return res, fmt.Errorf("normalize: %w", err)
	}
	m.ObserveStage("normalize", start)

	start = time.Now()
	rows := features.Derive(records)
	m.RecordRows(rows)
	m.ObserveStage("derive", start)

	start = time.Now()
	res.Report = report.Build(filepath.Base(cfg.File), rows)
	m.ObserveStage("aggregate", start)
	log.Info("report built",
		zap.String("run_id", res.Report.RunID.String()),
		zap.Int("rows", res.Report.Summary.Rows),
		zap.Int("patients", res.Report.Summary.Patients),
		zap.Int("no_shows", res.Report.Summary.NoShows))

	start = time.Now()
	if err := report.Emit(ctx, res.Report, presenters...); err != nil {
		return res, err
	}
	m.ObserveStage("present", start)
	return res, nil
}

// LogValidation writes one warning per finding, or a single info line
// when the input is clean.
func LogValidation(log *zap.Logger, rep loader.Report) {
	if rep.OK() {
		log.Info("validation passed", zap.Int("rows", rep.Rows))
		return
	}
	for _, col := range rep.MissingColumns {
		log.Warn("missing column", zap.String("column", col))
	}
	for _, d := range rep.DuplicateIDs {
		log.Warn("duplicate appointment id", zap.String("appointment_id", d.AppointmentID), zap.Ints("rows", d.Rows))
	}
	for _, f := range rep.MissingFields {
		log.Warn("missing value", zap.Int("row", f.Row), zap.String("field", f.Field))
	}
	if rep.DuplicateRowCount > 0 {
		log.Warn("duplicate rows", zap.Int("count", rep.DuplicateRowCount))
	}
	log.Warn("validation found problems", zap.Int("problems", rep.ProblemCount()))
}
