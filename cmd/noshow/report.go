package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noshow/db"
	"noshow/export"
	"noshow/metrics"
	"noshow/pipeline"
	"noshow/report"
)

type reportFlags struct {
	file     string
	parquet  string
	pg       string
	initDB   bool
	batch    int
	strict   bool
	noCharts bool
}

func newReportCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print no-show proportions and export derived rows",
		Long: `Run the full analysis over a CSV file and print the proportion of
missed appointments per health risk rating, time of day and weekday,
plus the distribution of no-shows among patients.

Examples:
  # Terminal report only
  noshow report --file KaggleV2-May-2016.csv

  # Also write derived rows to Parquet and load the run into Postgres
  noshow report --file data.csv --parquet derived.parquet \
    --pg postgres://localhost/noshow --init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "input CSV file")
	flags.StringVar(&f.parquet, "parquet", "", "write derived rows to this Parquet file")
	flags.StringVar(&f.pg, "pg", "", "PostgreSQL connection string to load the run into")
	flags.BoolVar(&f.initDB, "init", false, "create the export schema before loading")
	flags.IntVar(&f.batch, "batch", 0, "rows per COPY batch")
	flags.BoolVar(&f.strict, "strict", false, "abort when validation finds problems")
	flags.BoolVar(&f.noCharts, "no-charts", false, "print tables without bar charts")
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, f reportFlags) error {
	cfg := a.cfg
	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Input.File = f.file
	}
	if flags.Changed("parquet") {
		cfg.Output.Parquet = f.parquet
	}
	if flags.Changed("pg") {
		cfg.Postgres.URL = f.pg
	}
	if flags.Changed("init") {
		cfg.Postgres.InitSchema = f.initDB
	}
	if flags.Changed("batch") {
		cfg.Postgres.BatchSize = f.batch
	}
	if flags.Changed("strict") {
		cfg.Input.Strict = f.strict
	}
	if flags.Changed("no-charts") {
		cfg.Output.Charts = !f.noCharts
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Input.File == "" {
		return errors.New("no input file: use --file or input.file")
	}

	ctx := cmd.Context()
	presenters := []report.Presenter{report.NewTerminal(cmd.OutOrStdout(), cfg.Output.Charts)}

	if cfg.Output.Parquet != "" {
		presenters = append(presenters, export.Parquet{Path: cfg.Output.Parquet})
	}

	if cfg.Postgres.URL != "" {
		pool, err := export.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		a.log.Info("connected to postgres")

		if cfg.Postgres.InitSchema {
			if err := db.ApplySchema(ctx, pool); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
			a.log.Info("schema applied")
		}
		presenters = append(presenters, export.NewPostgres(pool, cfg.Postgres.BatchSize, a.log.Named("postgres")))
	}

	m := metrics.New()
	res, err := pipeline.Run(ctx, pipeline.Config{
		File:    cfg.Input.File,
		Strict:  cfg.Input.Strict,
		Log:     a.log,
		Metrics: m,
	}, presenters...)

	if cfg.Metrics.Pushgateway != "" {
		if perr := m.Push(ctx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); perr != nil {
			a.log.Warn("metrics push failed", zap.Error(perr))
		}
	}
	if err != nil {
		return err
	}

	if cfg.Output.Parquet != "" {
		a.log.Info("parquet written", zap.String("path", cfg.Output.Parquet), zap.Int("rows", len(res.Report.Rows)))
	}
	return nil
}
