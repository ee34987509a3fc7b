package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/ident"
	"github.com/roach88/formstep/internal/sink"
	"github.com/roach88/formstep/internal/store"
)

// FillOptions holds flags for the fill command.
type FillOptions struct {
	*RootOptions
	FormID   string
	Database string // optional: store the submission

	// IDs overrides the submission id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs ident.Generator
}

// Input commands understood at every prompt.
const (
	fillBack = ":back"
	fillQuit = ":quit"
	fillSkip = "-"
)

var errFillQuit = errors.New("quit")

// NewFillCommand creates the fill command.
func NewFillCommand(rootOpts *RootOptions) *cobra.Command {
	return newFillCommand(&FillOptions{RootOptions: rootOpts})
}

func newFillCommand(opts *FillOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <form-file>",
		Short: "Fill in a form interactively",
		Long: `Walk through a form in the terminal, one step at a time.

At each prompt:
  <text>    answer (select: option number or value;
            multiselect: comma-separated numbers or values)
  <enter>   keep the current answer
  -         clear the answer
  :back     return to the previous step
  :quit     stop without submitting

With --db the completed answers are stored as a submission; the form
must already be in that database (see "formstep forms import").`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFill(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FormID, "form", "", "form id when the file holds several")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the submission in this SQLite database")

	return cmd
}

func runFill(opts *FillOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	f, err := requireValid(formatter, path, opts.FormID)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var deliver sink.Sink = sink.Discard
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		if _, err := st.GetForm(ctx, f.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s: form %s is not in %s, import it first", ErrCodeNoForm, f.ID, opts.Database))
			}
			return WrapExitError(ExitCommandError, "failed to read form", err)
		}
		deliver = sink.NewStoreSink(st)
	}

	// Prompts go to stderr in JSON mode so stdout stays parseable.
	prompt := formatter.Writer
	if formatter.IsJSON() {
		prompt = formatter.GetErrWriter()
	}

	var final form.Answers
	session := engine.NewSession(f, func(answers form.Answers) {
		final = answers
	})

	w := &wizard{
		session: session,
		in:      bufio.NewScanner(cmd.InOrStdin()),
		out:     prompt,
	}
	if err := w.run(); err != nil {
		if errors.Is(err, errFillQuit) {
			return NewExitError(ExitFailure, "form not submitted")
		}
		return WrapExitError(ExitFailure, "form not submitted", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = ident.UUIDv7Generator{}
	}
	sub := store.Submission{
		ID:          ids.Generate(),
		FormID:      f.ID,
		Answers:     final,
		SubmittedAt: time.Now().UTC(),
	}
	if err := deliver.Deliver(ctx, sub); err != nil {
		return WrapExitError(ExitCommandError, "failed to store submission", err)
	}

	return formatter.Text(sub, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s submitted (%s)\n", f.Title, sub.ID)
		for _, qid := range final.SortedIDs() {
			fmt.Fprintf(w, "  %s: %s\n", qid, form.Join(final[qid]))
		}
	})
}

// wizard asks the questions of one session on a line-based terminal.
type wizard struct {
	session *engine.Session
	in      *bufio.Scanner
	out     io.Writer
}

func (w *wizard) run() error {
	for !w.session.Completed() {
		step := w.session.CurrentDisplay()
		w.header(step)

		back, moved, err := w.askStep(step)
		if err != nil {
			return err
		}
		if back {
			if !w.session.Retreat() {
				fmt.Fprintln(w.out, "  (already at the first step)")
			}
			continue
		}
		if moved {
			// The answers hid this step; show the one now in its place.
			continue
		}

		current := w.session.CurrentDisplay()
		for _, q := range current.Questions {
			for _, msg := range current.Issues[q.ID] {
				fmt.Fprintf(w.out, "  ! %s: %s\n", q.ID, msg)
			}
		}

		if w.session.Advance() == engine.OutcomeBlocked {
			missing := engine.MissingRequired(w.session.CurrentDisplay().Questions, w.session.Answers())
			fmt.Fprintf(w.out, "  required: %s\n", strings.Join(missing, ", "))
		}
	}
	return nil
}

// askStep prompts for the questions of step that are still displayed,
// re-reading the display after every answer. moved is true when the
// answers hid the step itself.
func (w *wizard) askStep(step engine.Step) (back, moved bool, err error) {
	asked := make(map[string]bool, len(step.Questions))
	for {
		current := w.session.CurrentDisplay()
		if !sameStep(step, current) {
			return false, true, nil
		}

		var next *form.Question
		for i := range current.Questions {
			if !asked[current.Questions[i].ID] {
				next = &current.Questions[i]
				break
			}
		}
		if next == nil {
			return false, false, nil
		}

		asked[next.ID] = true
		if back, err = w.ask(*next); err != nil || back {
			return back, false, err
		}
	}
}

// sameStep reports whether two displays show the same step. A group stays
// the same step when its first member is hidden.
func sameStep(a, b engine.Step) bool {
	if a.Group != nil && b.Group != nil {
		return a.Group.ID == b.Group.ID
	}
	return a.Group == nil && b.Group == nil && a.Index == b.Index
}

func (w *wizard) header(step engine.Step) {
	fmt.Fprintf(w.out, "\n[%d%%]", step.Progress)
	if step.Group != nil {
		fmt.Fprintf(w.out, " %s", step.Group.Title)
	}
	fmt.Fprintln(w.out)
}

// ask prompts for one question and records the answer. It reports
// whether the user asked to go back.
func (w *wizard) ask(q form.Question) (back bool, err error) {
	label := q.Label
	if label == "" {
		label = q.ID
	}
	if q.Required {
		label += " *"
	}
	fmt.Fprintf(w.out, "%s\n", label)
	for i, opt := range q.Options {
		fmt.Fprintf(w.out, "  %d) %s\n", i+1, opt.Label)
	}
	if current, ok := w.session.Answer(q.ID); ok {
		fmt.Fprintf(w.out, "  [%s]\n", form.Join(current))
	}
	fmt.Fprint(w.out, "> ")

	if !w.in.Scan() {
		if err := w.in.Err(); err != nil {
			return false, err
		}
		return false, errors.New("input ended before the form was completed")
	}
	line := strings.TrimSpace(w.in.Text())

	switch line {
	case "":
		return false, nil
	case fillQuit:
		return false, errFillQuit
	case fillBack:
		return true, nil
	case fillSkip:
		w.session.ClearAnswer(q.ID)
		return false, nil
	}

	v, err := parseAnswer(q, line)
	if err != nil {
		fmt.Fprintf(w.out, "  ! %v\n", err)
		return w.ask(q)
	}
	w.session.RecordAnswer(q.ID, v)
	return false, nil
}

// parseAnswer turns terminal input into a value for q. Options may be
// given by their 1-based number or by value.
func parseAnswer(q form.Question, line string) (form.Value, error) {
	if len(q.Options) == 0 {
		return form.Single(line), nil
	}
	switch q.Type {
	case form.TypeSelect:
		return pickOption(q, line)
	case form.TypeMultiselect:
		var selected form.Multiple
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := pickOption(q, part)
			if err != nil {
				return nil, err
			}
			selected = append(selected, string(v))
		}
		return selected, nil
	default:
		return form.Single(line), nil
	}
}

func pickOption(q form.Question, input string) (form.Single, error) {
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(q.Options) {
			return "", fmt.Errorf("choose 1-%d", len(q.Options))
		}
		return optionValue(q.Options[n-1]), nil
	}
	for _, opt := range q.Options {
		if form.Single(input) == optionValue(opt) || input == opt.ID {
			return optionValue(opt), nil
		}
	}
	return "", fmt.Errorf("unknown option %q", input)
}

// optionValue is what selecting opt records; the id when no value is set.
func optionValue(opt form.Option) form.Single {
	if opt.Value != "" {
		return form.Single(opt.Value)
	}
	return form.Single(opt.ID)
}
