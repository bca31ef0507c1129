package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/records"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every student",
		Long:  "Delete every student. Nothing happens unless --yes is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			removed := ws.store.Len()
			err = ws.session.ClearAll(cmd.Context(), yes)
			if errors.Is(err, records.ErrClearNotConfirmed) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("refusing to delete %d students without --yes", removed))
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot clear students", err)
			}

			return ws.out.Print(map[string]int{"removed": removed}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d students.\n", removed)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every student")

	return cmd
}

// exportSummary is printed after writing an export file.
type exportSummary struct {
	File     string `json:"file"     yaml:"file"`
	Students int    `json:"students" yaml:"students"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every student as CSV or a workbook",
		Long: `Export every student, in storage order.

Without --output the CSV is written to stdout. An --output path ending in
.xlsx produces a workbook; any other path gets CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, output, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.csv or .xlsx)")

	return cmd
}

func runExport(opts *RootOptions, output string, cmd *cobra.Command) error {
	ws, closeFn, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if output == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), ws.session.ExportAll())
		return err
	}

	if isWorkbook(output) {
		err = writeWorkbook(ws.session, output)
	} else {
		err = os.WriteFile(output, []byte(ws.session.ExportAll()), 0o644)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot write export", err)
	}

	summary := exportSummary{File: output, Students: ws.store.Len()}
	return ws.out.Print(summary, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d students to %s\n", summary.Students, summary.File)
	})
}

func writeWorkbook(sess *app.Session, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return sess.ExportXLSX(f)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge students from a CSV file or workbook",
		Long: `Merge students from a .csv or .xlsx file.

Rows that fail validation are reported and skipped. Rows whose roll and
email match an existing student are skipped as duplicates. A file that
cannot be parsed imports nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	ws, closeFn, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	var report app.ImportReport
	if isWorkbook(path) {
		f, ferr := os.Open(path)
		if ferr != nil {
			return WrapExitError(ExitCommandError, "cannot read import file", ferr)
		}
		defer f.Close()
		report, err = ws.session.ImportXLSX(cmd.Context(), f)
	} else {
		text, rerr := os.ReadFile(path)
		if rerr != nil {
			return WrapExitError(ExitCommandError, "cannot read import file", rerr)
		}
		report, err = ws.session.ImportFrom(cmd.Context(), string(text))
	}

	switch {
	case errors.Is(err, app.ErrMalformedImport):
		return WrapExitError(ExitFailure, "nothing imported", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "cannot save imported students", err)
	}

	return ws.out.Print(report, func(w io.Writer) { writeReport(w, report) })
}

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}
