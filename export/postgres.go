package export

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"noshow/appointment"
	"noshow/db"
	"noshow/report"
)

// DefaultBatchSize is the number of derived rows per COPY.
const DefaultBatchSize = 5000

// Connect opens a small pool and checks the server is reachable.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Postgres is a presenter that loads a run into Postgres: one
// analysis_runs row, the derived rows, and every aggregate group. The
// whole run is written in one transaction.
type Postgres struct {
	pool      *pgxpool.Pool
	batchSize int
	log       *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, batchSize int, log *zap.Logger) *Postgres {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{pool: pool, batchSize: batchSize, log: log}
}

func (p *Postgres) Present(ctx context.Context, r *report.Report) error {
	start := time.Now()
	runID := pgtype.UUID{Bytes: r.RunID, Valid: true}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	q := db.New(p.pool).WithTx(tx)

	if err := q.InsertRun(ctx, db.InsertRunParams{
		ID:           runID,
		Source:       r.Source,
		RowCount:     int32(r.Summary.Rows),
		PatientCount: int32(r.Summary.Patients),
		NoShowCount:  int32(r.Summary.NoShows),
	}); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	var (
		copied  int64
		lastLog = time.Now()
		batch   = make([]db.CopyDerivedAppointmentsParams, 0, min(p.batchSize, len(r.Rows)))
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := q.CopyDerivedAppointments(ctx, batch)
		if err != nil {
			return fmt.Errorf("copy derived appointments: %w", err)
		}
		copied += n
		batch = batch[:0]

		if time.Since(lastLog) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			p.log.Info("progress",
				zap.Int64("rows", copied),
				zap.Int("total", len(r.Rows)),
				zap.Float64("rows_per_sec", float64(copied)/elapsed))
			lastLog = time.Now()
		}
		return nil
	}

	for i := range r.Rows {
		batch = append(batch, copyParams(runID, &r.Rows[i]))
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	groups := 0
	for _, nt := range r.Tables {
		for i, g := range nt.Groups {
			if err := q.InsertAggregateGroup(ctx, db.InsertAggregateGroupParams{
				RunID:      runID,
				TableName:  nt.Name,
				Measure:    nt.Measure.String(),
				Position:   int16(i),
				Label:      g.Label,
				NoShows:    g.NoShows,
				Total:      g.Total,
				Proportion: nullableFloat(g.Proportion),
			}); err != nil {
				return fmt.Errorf("insert group %s/%s: %w", nt.Name, g.Label, err)
			}
			groups++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.log.Info("postgres export done",
		zap.String("run_id", r.RunID.String()),
		zap.Int64("rows", copied),
		zap.Int("groups", groups),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}

func copyParams(runID pgtype.UUID, d *appointment.Derived) db.CopyDerivedAppointmentsParams {
	return db.CopyDerivedAppointmentsParams{
		RunID:                    runID,
		AppointmentID:            d.AppointmentID,
		PatientID:                d.PatientID,
		Gender:                   string(d.Gender),
		ScheduledAt:              pgtype.Timestamptz{Time: d.ScheduledAt, Valid: true},
		AppointmentDate:          pgtype.Date{Time: d.AppointmentDate, Valid: true},
		Age:                      int32(d.Age),
		Neighborhood:             d.Neighborhood,
		WelfareEnrolled:          int16(d.WelfareEnrolled),
		Hypertension:             int16(d.Hypertension),
		Diabetes:                 int16(d.Diabetes),
		Alcoholism:               int16(d.Alcoholism),
		HandicapLevel:            int16(d.HandicapLevel),
		SMSReceived:              int16(d.SMSReceived),
		NoShow:                   d.NoShow,
		DayOfWeek:                d.DayOfWeek.String(),
		TimeBucket:               string(d.TimeBucket),
		RiskScore:                int16(d.RiskScore),
		RiskLabel:                string(d.RiskLabel),
		PatientTotalAppointments: int32(d.PatientTotalAppointments),
		PatientNoShowCount:       int32(d.PatientNoShowCount),
	}
}

// nullableFloat maps NaN, the proportion of an empty group, to NULL.
func nullableFloat(f float64) pgtype.Float8 {
	if math.IsNaN(f) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}
