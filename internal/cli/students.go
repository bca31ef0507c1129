package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/types"
)

// studentFlags binds the editable fields to command flags.
type studentFlags struct {
	in types.StudentInput
}

func (f *studentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in.Name, "name", "", "full name (at least 2 characters)")
	cmd.Flags().StringVar(&f.in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&f.in.Roll, "roll", "", "roll number (letters, digits, dashes)")
	cmd.Flags().StringVar(&f.in.ClassName, "class", "", "class or section")
	cmd.Flags().StringVar(&f.in.Notes, "notes", "", "free-form notes")
}

// applyTo overwrites the fields of base whose flags were given.
func (f *studentFlags) applyTo(cmd *cobra.Command, base types.StudentInput) types.StudentInput {
	if cmd.Flags().Changed("name") {
		base.Name = f.in.Name
	}
	if cmd.Flags().Changed("email") {
		base.Email = f.in.Email
	}
	if cmd.Flags().Changed("roll") {
		base.Roll = f.in.Roll
	}
	if cmd.Flags().Changed("class") {
		base.ClassName = f.in.ClassName
	}
	if cmd.Flags().Changed("notes") {
		base.Notes = f.in.Notes
	}
	return base
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &studentFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		Example: `  studentctl add --name "Ann Lee" --email ann@school.edu --roll A-1 --class 10B`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, cmd, app.Form{StudentInput: flags.in})
		},
	}
	flags.register(cmd)

	return cmd
}

// NewEditCommand creates the edit command. Only the given flags change.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &studentFlags{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(rootOpts, cmd, args[0], flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runEdit(opts *RootOptions, cmd *cobra.Command, id string, flags *studentFlags) error {
	ws, closeFn, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	current, ok := ws.session.SelectForEdit(id)
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("student %s not found", id))
	}

	return submit(ws, cmd, app.Form{ID: id, StudentInput: flags.applyTo(cmd, current.Input())})
}

func runSubmit(opts *RootOptions, cmd *cobra.Command, form app.Form) error {
	ws, closeFn, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	return submit(ws, cmd, form)
}

func submit(ws *workspace, cmd *cobra.Command, form app.Form) error {
	res, err := ws.session.Submit(cmd.Context(), form)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot save student", err)
	}

	switch {
	case len(res.Errors) > 0:
		if err := ws.out.Print(map[string][]string{"errors": res.Errors}, func(w io.Writer) {
			writeErrors(w, res.Errors)
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	case res.NotFound:
		return NewExitError(ExitFailure, fmt.Sprintf("student %s not found", form.ID))
	}

	return ws.out.Print(res.Student, func(w io.Writer) {
		if res.Created {
			fmt.Fprintln(w, "Student added.")
		} else {
			fmt.Fprintln(w, "Student updated.")
		}
		writeStudent(w, res.Student)
	})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			s, ok := ws.store.Get(args[0])
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("student %s not found", args[0]))
			}
			return ws.out.Print(s, func(w io.Writer) { writeStudent(w, s) })
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			ok, err := ws.session.Delete(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot delete student", err)
			}
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("student %s not found", args[0]))
			}
			return ws.out.Print(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s.\n", args[0])
			})
		},
	}
}

// listOptions holds the list command's flags.
type listOptions struct {
	query string
	sort  string
	dir   string
	page  int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search, sort and page through students",
		Long: fmt.Sprintf(`List one page of %d students.

--query matches name, email, roll and class, ignoring case.
--sort is one of %v.`, query.PageSize, query.SortKeys),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "search text")
	cmd.Flags().StringVar(&opts.sort, "sort", string(query.SortByName), "sort key")
	cmd.Flags().StringVar(&opts.dir, "dir", string(query.Asc), "sort direction (asc|desc)")
	cmd.Flags().IntVar(&opts.page, "page", 1, "1-based page number")

	return cmd
}

func runList(rootOpts *RootOptions, opts *listOptions, cmd *cobra.Command) error {
	key, ok := query.ParseSortKey(opts.sort)
	if !ok {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid sort key %q: must be one of %v", opts.sort, query.SortKeys))
	}

	ws, closeFn, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ws.session.Search(opts.query)
	ws.session.Sort(key, query.ParseDirection(opts.dir))
	ws.session.GotoPage(opts.page)
	page := ws.session.View()

	return ws.out.Print(page, func(w io.Writer) { writePage(w, page) })
}
