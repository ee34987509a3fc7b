package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/formstep/internal/form"
)

// FormReport holds the validation findings of one form.
type FormReport struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Valid    bool                   `json:"valid"`
	Findings []form.ValidationError `json:"findings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool         `json:"valid"`
	Forms      []FormReport `json:"forms"`
	LoadErrors []string     `json:"load_errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate form definitions",
		Long: `Validate form definitions in a file or directory.

Reads .cue, .json, .yaml and .yml definitions, checks them against the
form schema and reports every finding. Warnings describe definitions
that still work; errors fail the command.

Exit codes:
  0 - All forms valid (warnings allowed)
  1 - At least one definition failed to load or has errors
  2 - Command error (path not found, no definitions)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadForms(path, LoadModeCollectAll)
	if loadResult == nil {
		return exitForLoadErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d definition file(s) in %s", loadResult.FileCount, path)

	result := ValidateForms(loadResult.Forms)
	for _, err := range loadErrors {
		result.LoadErrors = append(result.LoadErrors, err.Error())
		result.Valid = false
	}

	if err := formatter.Text(result, func(w io.Writer) { printValidation(w, result) }); err != nil {
		return err
	}
	if !result.Valid {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d form(s) invalid, %d load error(s)",
			countInvalid(result), len(result.LoadErrors)))
	}
	return nil
}

// ValidateForms runs definition validation over every form. Form ids
// defined more than once are reported on the later definitions.
func ValidateForms(forms []*form.Form) ValidationResult {
	result := ValidationResult{Valid: true, Forms: make([]FormReport, 0, len(forms))}
	seen := make(map[string]bool, len(forms))

	for _, f := range forms {
		findings := form.Validate(f)
		if seen[f.ID] {
			findings = append(findings, form.ValidationError{
				Field:    "id",
				Message:  fmt.Sprintf("form id %q is defined more than once", f.ID),
				Code:     ErrCodeInvalidForm,
				Severity: form.SeverityError,
			})
		}
		seen[f.ID] = true

		report := FormReport{
			ID:       f.ID,
			Title:    f.Title,
			Valid:    !form.HasErrors(findings),
			Findings: findings,
		}
		if !report.Valid {
			result.Valid = false
		}
		result.Forms = append(result.Forms, report)
	}
	return result
}

func printValidation(w io.Writer, result ValidationResult) {
	for _, r := range result.Forms {
		mark := "✓"
		if !r.Valid {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", mark, r.ID, r.Title)
		for _, f := range r.Findings {
			fmt.Fprintf(w, "  %s %s %s: %s\n", f.Code, f.Severity, f.Field, f.Message)
		}
	}
	for _, e := range result.LoadErrors {
		fmt.Fprintf(w, "✗ %s\n", e)
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ All forms valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
}

func countInvalid(result ValidationResult) int {
	n := 0
	for _, r := range result.Forms {
		if !r.Valid {
			n++
		}
	}
	return n
}

// requireValid loads one form and rejects it when validation finds errors.
// Used by commands that run or store a form.
func requireValid(formatter *OutputFormatter, path, id string) (*form.Form, error) {
	f, err := LoadForm(path, id)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, exitForLoadErrors(formatter, []error{loadErr})
		}
		return nil, WrapExitError(ExitCommandError, "load form", err)
	}

	findings := form.Validate(f)
	if form.HasErrors(findings) {
		_ = formatter.Error(ErrCodeInvalidForm, fmt.Sprintf("form %s is invalid", f.ID), findings)
		return nil, NewExitError(ExitFailure, fmt.Sprintf("%s: form %s is invalid", ErrCodeInvalidForm, f.ID))
	}
	for _, finding := range findings {
		formatter.VerboseLog("warning: %s", finding.Error())
	}
	return f, nil
}
