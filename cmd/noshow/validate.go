package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"noshow/loader"
	"noshow/pipeline"
)

func newValidateCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a CSV file for schema problems, duplicates and missing values",
		Long: `Inspect a CSV file without normalizing it. Reports columns missing from
the header, duplicate appointment ids, empty required values and fully
duplicated rows. Exits non-zero when anything is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("file") {
				a.cfg.Input.File = file
			}
			if a.cfg.Input.File == "" {
				return errors.New("no input file: use --file or input.file")
			}
			return a.runValidate(cmd)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input CSV file")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command) error {
	headers, rows, err := pipeline.ReadFile(cmd.Context(), a.cfg.Input.File, a.log)
	if err != nil {
		return err
	}

	rep := loader.Validate(rows)
	schemaErr := loader.CheckColumns(headers)
	pipeline.LogValidation(a.log, rep)

	out := cmd.OutOrStdout()
	printValidation(out, a.cfg.Input.File, rep, schemaErr)

	if schemaErr != nil || !rep.OK() {
		return fmt.Errorf("%w: %s", pipeline.ErrValidation, a.cfg.Input.File)
	}
	return nil
}

func printValidation(w io.Writer, file string, rep loader.Report, schemaErr error) {
	fmt.Fprintf(w, "File:  %s\n", file)
	fmt.Fprintf(w, "Rows:  %d\n", rep.Rows)

	if schemaErr != nil {
		fmt.Fprintf(w, "  schema: %v\n", schemaErr)
	}
	for _, col := range rep.MissingColumns {
		fmt.Fprintf(w, "  missing column: %s\n", col)
	}
	for _, d := range rep.DuplicateIDs {
		fmt.Fprintf(w, "  duplicate appointment id %s on rows %v\n", d.AppointmentID, d.Rows)
	}
	for _, mf := range rep.MissingFields {
		fmt.Fprintf(w, "  row %d: missing %s\n", mf.Row, mf.Field)
	}
	if rep.DuplicateRowCount > 0 {
		fmt.Fprintf(w, "  duplicate rows: %d\n", rep.DuplicateRowCount)
	}

	if schemaErr == nil && rep.OK() {
		fmt.Fprintln(w, "OK")
		return
	}
	n := rep.ProblemCount()
	if schemaErr != nil {
		n++
	}
	fmt.Fprintf(w, "Problems: %d\n", n)
}
