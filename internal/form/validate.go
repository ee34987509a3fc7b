package form

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation error codes (F100-F199)
const (
	// Form errors (F101, F114-F115)
	ErrTitleEmpty     = "F101" // title is required
	ErrDuplicateGroup = "F114" // duplicate group id
	ErrUnknownStatus  = "F115" // status not draft/scheduled/published

	// Question errors (F102-F109)
	ErrQuestionIDEmpty    = "F102" // question id is required
	ErrDuplicateQuestion  = "F103" // duplicate question id
	ErrUnknownType        = "F104" // unknown question type
	ErrDuplicateOption    = "F105" // duplicate option id within a question
	ErrOptionsNotAllowed  = "F106" // options on a type that ignores them
	ErrMissingOptions     = "F107" // select/multiselect without options
	ErrDanglingGroup      = "F108" // group reference without a group
	ErrNonContiguousGroup = "F109" // group members split by other questions

	// Branching errors (F110-F112)
	ErrUnknownConditionRef = "F110" // condition references unknown question
	ErrUnknownOperator     = "F111" // operator the evaluator does not know
	ErrUnknownAction       = "F112" // branching action not show/hide

	// Advisory metadata errors (F113, F116-F117)
	ErrInvalidPattern = "F113" // validation pattern does not compile
	ErrLengthRange    = "F116" // min_length greater than max_length
	ErrUnknownLayout  = "F117" // group layout not vertical/horizontal/grid
)

// Severity levels for validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a definition validation finding.
// Warnings describe definitions the engine degrades gracefully;
// errors describe definitions a form loader should reject.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a form definition against the model rules.
// Returns all findings (does not fail-fast).
func Validate(f *Form) []ValidationError {
	var errs []ValidationError
	add := func(severity, code, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
			Code:     code,
			Severity: severity,
		})
	}

	// F101: title is required
	if strings.TrimSpace(f.Title) == "" {
		add(SeverityError, ErrTitleEmpty, "title", "title is required and must be non-empty")
	}

	// F115: status
	if f.Status != "" && !ValidStatuses[f.Status] {
		add(SeverityError, ErrUnknownStatus, "status", "unknown status %q", f.Status)
	}

	groupIDs := make(map[string]bool, len(f.Groups))
	for i, g := range f.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if groupIDs[g.ID] {
			add(SeverityError, ErrDuplicateGroup, field+".id", "duplicate group id: %q", g.ID)
		}
		groupIDs[g.ID] = true

		if g.Layout != "" && !ValidLayouts[g.Layout] {
			add(SeverityWarning, ErrUnknownLayout, field+".layout", "unknown layout %q, rendered as vertical", g.Layout)
		}
	}

	questionIDs := make(map[string]bool, len(f.Questions))
	for _, q := range f.Questions {
		questionIDs[q.ID] = true
	}

	seen := make(map[string]bool, len(f.Questions))
	for i, q := range f.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		// F102, F103: identity
		if strings.TrimSpace(q.ID) == "" {
			add(SeverityError, ErrQuestionIDEmpty, field+".id", "question id is required")
		} else if seen[q.ID] {
			add(SeverityError, ErrDuplicateQuestion, field+".id", "duplicate question id: %q", q.ID)
		}
		seen[q.ID] = true

		// F104: type
		if !ValidQuestionTypes[q.Type] {
			add(SeverityError, ErrUnknownType, field+".type", "unknown question type %q", q.Type)
		}

		errs = append(errs, validateOptions(field, q)...)

		// F108: dangling group reference degrades to ungrouped
		if q.Group != "" && !groupIDs[q.Group] {
			add(SeverityWarning, ErrDanglingGroup, field+".group",
				"group %q does not exist, question is shown on its own", q.Group)
		}

		if q.Branching != nil {
			errs = append(errs, validateBranching(field, q, questionIDs)...)
		}

		if q.Validation != nil {
			errs = append(errs, validateAdvisory(field, q.Validation)...)
		}
	}

	errs = append(errs, validateContiguity(f, groupIDs)...)

	return errs
}

// validateOptions checks the option list of one question.
func validateOptions(field string, q Question) []ValidationError {
	var errs []ValidationError

	if !q.Type.HasOptions() {
		if len(q.Options) > 0 && ValidQuestionTypes[q.Type] {
			errs = append(errs, ValidationError{
				Field:    field + ".options",
				Message:  fmt.Sprintf("options are ignored for %s questions", q.Type),
				Code:     ErrOptionsNotAllowed,
				Severity: SeverityWarning,
			})
		}
		return errs
	}

	if len(q.Options) == 0 {
		errs = append(errs, ValidationError{
			Field:    field + ".options",
			Message:  fmt.Sprintf("%s question %q has no options", q.Type, q.ID),
			Code:     ErrMissingOptions,
			Severity: SeverityWarning,
		})
	}

	optionIDs := make(map[string]bool, len(q.Options))
	for j, opt := range q.Options {
		if optionIDs[opt.ID] {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("%s.options[%d].id", field, j),
				Message:  fmt.Sprintf("duplicate option id: %q", opt.ID),
				Code:     ErrDuplicateOption,
				Severity: SeverityError,
			})
		}
		optionIDs[opt.ID] = true
	}
	return errs
}

// validateBranching checks operators, actions and condition references.
// All findings are warnings: the evaluator degrades instead of failing.
func validateBranching(field string, q Question, questionIDs map[string]bool) []ValidationError {
	var errs []ValidationError
	b := q.Branching

	if len(b.Conditions) > 0 && b.Action != ActionShow && b.Action != ActionHide {
		errs = append(errs, ValidationError{
			Field:    field + ".branching.action",
			Message:  fmt.Sprintf("unknown action %q, treated as hide", b.Action),
			Code:     ErrUnknownAction,
			Severity: SeverityWarning,
		})
	}

	for k, c := range b.Conditions {
		cfield := fmt.Sprintf("%s.branching.conditions[%d]", field, k)
		if !questionIDs[c.QuestionID] {
			errs = append(errs, ValidationError{
				Field:    cfield + ".question_id",
				Message:  fmt.Sprintf("condition references unknown question %q, it never holds", c.QuestionID),
				Code:     ErrUnknownConditionRef,
				Severity: SeverityWarning,
			})
		}
		if !KnownOperators[c.Operator] {
			errs = append(errs, ValidationError{
				Field:    cfield + ".operator",
				Message:  fmt.Sprintf("unknown operator %q, the condition always holds", c.Operator),
				Code:     ErrUnknownOperator,
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateAdvisory checks pattern and length metadata.
func validateAdvisory(field string, v *Validation) []ValidationError {
	var errs []ValidationError
	if v.Pattern != "" {
		if _, err := regexp.Compile(v.Pattern); err != nil {
			errs = append(errs, ValidationError{
				Field:    field + ".validation.pattern",
				Message:  fmt.Sprintf("pattern does not compile, it is ignored: %v", err),
				Code:     ErrInvalidPattern,
				Severity: SeverityWarning,
			})
		}
	}
	if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
		errs = append(errs, ValidationError{
			Field:    field + ".validation",
			Message:  fmt.Sprintf("min_length %d exceeds max_length %d", *v.MinLength, *v.MaxLength),
			Code:     ErrLengthRange,
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateContiguity rejects groups whose members are split by other
// questions. Navigation treats each contiguous run as one step, so a split
// group would be shown more than once.
func validateContiguity(f *Form, groupIDs map[string]bool) []ValidationError {
	var errs []ValidationError
	closed := make(map[string]bool)
	reported := make(map[string]bool)
	prev := ""

	for i, q := range f.Questions {
		g := q.Group
		if !groupIDs[g] {
			g = ""
		}
		if prev != "" && g != prev {
			closed[prev] = true
		}
		if g != "" && closed[g] && !reported[g] {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("questions[%d].group", i),
				Message:  fmt.Sprintf("members of group %q must be adjacent in question order", g),
				Code:     ErrNonContiguousGroup,
				Severity: SeverityError,
			})
			reported[g] = true
		}
		prev = g
	}
	return errs
}
