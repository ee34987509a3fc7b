package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/formstep/internal/config"
	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
)

// FormsOptions holds flags shared by the forms subcommands.
type FormsOptions struct {
	*RootOptions
	Database string // default: FORMSTEP_DB
	Status   string // list filter
}

// ImportResult reports one imported form.
type ImportResult struct {
	ID        string `json:"id"`
	Created   bool   `json:"created"`
	Unchanged bool   `json:"unchanged,omitempty"`
	Warnings  int    `json:"warnings"`
}

// NewFormsCommand creates the forms command and its subcommands.
func NewFormsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Manage stored forms and their submissions",
		Long: `Manage the forms and submissions kept in a formstep database.

The database defaults to $FORMSTEP_DB (formstep.db).`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $FORMSTEP_DB)")

	cmd.AddCommand(&cobra.Command{
		Use:           "import <path>",
		Short:         "Validate and store form definitions (insert or replace)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				return runImport(ctx, st, out, args[0])
			})
		},
	})

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored forms",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				return runList(ctx, st, out, form.Status(opts.Status))
			})
		},
	}
	list.Flags().StringVar(&opts.Status, "status", "", "only forms with this status (draft|scheduled|published)")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:           "show <id>",
		Short:         "Print a stored form definition",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				return runShow(ctx, st, out, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a form and its submissions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				if err := st.DeleteForm(ctx, args[0]); err != nil {
					return storeError(out, err, args[0])
				}
				return out.Text(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ deleted %s\n", args[0])
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "submissions <id>",
		Short:         "List the submissions of a form",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				return runSubmissions(ctx, st, out, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "seed",
		Short:         "Store the default registration form when the database is empty",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, out *OutputFormatter) error {
				n, err := st.SeedDefaults(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "seed failed", err)
				}
				return out.Text(map[string]int{"seeded": n}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ seeded %d form(s)\n", n)
				})
			})
		},
	})

	return cmd
}

// withStore opens the database for one subcommand and closes it after.
func withStore(opts *FormsOptions, cmd *cobra.Command, fn func(context.Context, *store.Store, *OutputFormatter) error) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path, err := resolveDatabase(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	formatter.VerboseLog("Using database %s", path)

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("failed to open database %s", path), err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st, formatter)
}

// resolveDatabase returns flag when set, otherwise the configured path.
func resolveDatabase(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.DBPath, nil
}

func runImport(ctx context.Context, st *store.Store, out *OutputFormatter, path string) error {
	loadResult, loadErrors := LoadForms(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return exitForLoadErrors(out, loadErrors)
	}

	validation := ValidateForms(loadResult.Forms)
	if !validation.Valid {
		_ = out.Text(validation, func(w io.Writer) { printValidation(w, validation) })
		return NewExitError(ExitFailure, fmt.Sprintf("%s: nothing imported, %d form(s) invalid", ErrCodeInvalidForm, countInvalid(validation)))
	}

	results := make([]ImportResult, 0, len(loadResult.Forms))
	for i, f := range loadResult.Forms {
		result := ImportResult{ID: f.ID, Warnings: len(validation.Forms[i].Findings)}

		same, err := sameAsStored(ctx, st, f)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to compare form %s", f.ID), err)
		}
		if same {
			result.Unchanged = true
			results = append(results, result)
			continue
		}

		result.Created, err = st.PutForm(ctx, f)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to store form %s", f.ID), err)
		}
		results = append(results, result)
	}

	return out.Text(results, func(w io.Writer) {
		for _, r := range results {
			verb := "updated"
			switch {
			case r.Unchanged:
				verb = "unchanged"
			case r.Created:
				verb = "created"
			}
			fmt.Fprintf(w, "✓ %s %s", verb, r.ID)
			if r.Warnings > 0 {
				fmt.Fprintf(w, " (%d warning(s))", r.Warnings)
			}
			fmt.Fprintln(w)
		}
	})
}

// sameAsStored reports whether the store already holds an identical
// definition of f. f is normalized in place.
func sameAsStored(ctx context.Context, st *store.Store, f *form.Form) (bool, error) {
	f.Normalize()
	stored, err := st.GetForm(ctx, f.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	want, err := form.Fingerprint(f)
	if err != nil {
		return false, err
	}
	have, err := form.Fingerprint(stored)
	if err != nil {
		return false, err
	}
	return want == have, nil
}

func runList(ctx context.Context, st *store.Store, out *OutputFormatter, status form.Status) error {
	if status != "" && !form.ValidStatuses[status] {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown status %q", status))
	}
	forms, err := st.ListForms(ctx, status)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list forms", err)
	}

	return out.Text(forms, func(w io.Writer) {
		if len(forms) == 0 {
			fmt.Fprintln(w, "No forms.")
			return
		}
		for _, f := range forms {
			fmt.Fprintf(w, "%-24s %-10s %2d question(s)  %s\n", f.ID, f.Status, len(f.Questions), f.Title)
		}
	})
}

func runShow(ctx context.Context, st *store.Store, out *OutputFormatter, id string) error {
	f, err := st.GetForm(ctx, id)
	if err != nil {
		return storeError(out, err, id)
	}

	return out.Text(f, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s [%s]\n", f.ID, f.Title, f.Status)
		if f.Description != "" {
			fmt.Fprintf(w, "  %s\n", f.Description)
		}
		for _, q := range f.Questions {
			req := ""
			if q.Required {
				req = " *"
			}
			fmt.Fprintf(w, "  - %s (%s)%s %s", q.ID, q.Type, req, q.Label)
			if q.Group != "" {
				fmt.Fprintf(w, " [group %s]", q.Group)
			}
			if q.Branching != nil {
				fmt.Fprintf(w, " [%s if %d condition(s)]", q.Branching.Action, len(q.Branching.Conditions))
			}
			fmt.Fprintln(w)
		}
	})
}

func runSubmissions(ctx context.Context, st *store.Store, out *OutputFormatter, id string) error {
	if _, err := st.GetForm(ctx, id); err != nil {
		return storeError(out, err, id)
	}
	subs, err := st.ListSubmissions(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list submissions", err)
	}

	return out.Text(subs, func(w io.Writer) {
		if len(subs) == 0 {
			fmt.Fprintln(w, "No submissions.")
			return
		}
		for _, sub := range subs {
			fmt.Fprintf(w, "#%d %s %s\n", sub.Seq, sub.ID, sub.SubmittedAt.Format("2006-01-02 15:04:05"))
			for _, qid := range sub.Answers.SortedIDs() {
				fmt.Fprintf(w, "  %s: %s\n", qid, form.Join(sub.Answers[qid]))
			}
		}
	})
}

// storeError maps a store error for a form id onto an exit error.
func storeError(out *OutputFormatter, err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		_ = out.Error(ErrCodeNoForm, fmt.Sprintf("form %s not found", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: form %s not found", ErrCodeNoForm, id))
	}
	_ = out.Error(ErrCodeStore, err.Error(), nil)
	return WrapExitError(ExitCommandError, "database error", err)
}
