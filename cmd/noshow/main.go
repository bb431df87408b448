// Package main implements the noshow CLI: analyze appointment no-shows
// from a CSV export and optionally hand the results to Parquet and
// Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noshow/config"
	"noshow/logging"
)

var version = "dev"

// app holds state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		log := a.log
		if log == nil {
			log, _ = logging.New(logging.Config{Format: "console"})
		}
		log.Error("noshow failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "noshow",
		Short: "Analyze missed medical appointments",
		Long: `noshow reads a medical appointment export, derives per-appointment
features (weekday, time-of-day bucket, health risk, per-patient totals)
and reports the proportion of missed appointments along each of them.

Configuration is read from defaults, an optional YAML file, NOSHOW_*
environment variables (a .env file in the working directory is loaded
first) and finally flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(newReportCmd(a))
	root.AddCommand(newValidateCmd(a))
	return root
}

// setup loads configuration, applies persistent flags and builds the
// logger. Subcommand flags are applied by the subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}
