package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formstep/internal/form"
)

//go:embed schema.cue
var schemaSource string

// CompileForm turns a CUE value into a Form.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value is unified with the embedded #Form schema, which is closed:
// unknown fields are errors. The value must be concrete. When the form has
// no id, the last label of the value's path becomes the id, so
//
//	form: signup: { title: "Sign up", questions: [...] }
//
// compiles to a form with id "signup".
//
// CompileForm checks structure only. Semantic checks (duplicate ids,
// unknown types, dangling references) are form.Validate's job.
func CompileForm(v cue.Value) (*form.Form, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := formSchema(v.Context())
	if err != nil {
		return nil, err
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var f form.Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &CompileError{
			Field:   "form",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	if f.ID == "" {
		f.ID = lastLabel(v)
	}
	f.Normalize()
	return &f, nil
}

// formSchema builds the #Form definition in the given context. Values
// from different contexts cannot be unified.
func formSchema(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile form schema: %w", err)
	}
	return schema.LookupPath(cue.ParsePath("#Form")), nil
}

// lastLabel returns the unquoted last selector of v's path, or "".
func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	label := sels[len(sels)-1].String()
	if unquoted, err := strconv.Unquote(label); err == nil {
		return unquoted
	}
	return label
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
