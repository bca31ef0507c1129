// Package cli implements studentctl, the command line front end to the
// student record store. It opens the same storage the HTTP service uses,
// so both can share one database file.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/logging"
	"github.com/aanand-mishra/student-records/internal/records"
	"github.com/aanand-mishra/student-records/internal/storage/backend"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json" | "yaml"
	Verbose    bool
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// NewRootCommand creates the root command for studentctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "studentctl",
		Short: "Manage student records",
		Long: `studentctl adds, edits, searches, imports and exports student records.

The storage backend is read from the same YAML configuration file the
HTTP service uses (--config, or the CONFIG_PATH environment variable).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to the configuration YAML file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log storage activity to stderr")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// workspace is everything a command needs once storage is open.
type workspace struct {
	session *app.Session
	store   *records.Store
	out     *OutputFormatter
}

// open loads the configuration and the record store. The returned close
// function must be called when the command is done.
func (o *RootOptions) open(cmd *cobra.Command) (*workspace, func(), error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "cannot load configuration", err)
	}

	log := logging.Quiet(cmd.ErrOrStderr())
	if o.Verbose {
		log = logging.New(cfg.Env, cmd.ErrOrStderr())
	}

	st, err := backend.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "cannot open storage", err)
	}

	store, err := records.Open(cmd.Context(), st, cfg.Storage.Key, log)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "cannot load students", err)
	}

	ws := &workspace{
		session: app.NewSession(store, log),
		store:   store,
		out:     &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()},
	}
	closeFn := func() {
		if err := store.Close(cmd.Context()); err != nil {
			log.Warn("closing storage", slog.String("error", err.Error()))
		}
	}
	return ws, closeFn, nil
}
