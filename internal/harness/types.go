package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/formstep/internal/form"
)

// TraceEvent records one session operation and the screen after it.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Action   string `json:"action"`
	Question string `json:"question,omitempty"`
	Value    string `json:"value,omitempty"` // rendered answer or toggled option

	Outcome string `json:"outcome,omitempty"` // advance only
	Moved   *bool  `json:"moved,omitempty"`   // retreat only

	Pointer   int      `json:"pointer"`
	Questions []string `json:"questions"`
	Group     string   `json:"group,omitempty"`
	Completed bool     `json:"completed,omitempty"`
}

// String renders the event as one trace line:
//
//	3 record role "dev" -> pointer=1 step=[lang]
//	4 advance -> advanced pointer=3 step=[email,phone] group=contact
func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Seq, e.Action)
	if e.Question != "" {
		b.WriteString(" " + e.Question)
	}
	if e.Value != "" {
		b.WriteString(" " + e.Value)
	}
	b.WriteString(" ->")
	if e.Outcome != "" {
		b.WriteString(" " + e.Outcome)
	}
	if e.Moved != nil {
		b.WriteString(" moved=" + strconv.FormatBool(*e.Moved))
	}
	fmt.Fprintf(&b, " pointer=%d step=[%s]", e.Pointer, strings.Join(e.Questions, ","))
	if e.Group != "" {
		b.WriteString(" group=" + e.Group)
	}
	if e.Completed {
		b.WriteString(" completed")
	}
	return b.String()
}

// Result is the outcome of a scenario execution.
type Result struct {
	// FormID is the id of the walked form.
	FormID string `json:"form_id"`

	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Trace has one event for the session start and one per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Completions counts completion callback invocations.
	Completions int `json:"completions"`

	// Answers is what the completion callback received, nil when the
	// session did not complete.
	Answers form.Answers `json:"answers,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// formatValue renders an answer for the trace: strings quoted, lists
// bracketed.
func formatValue(v form.Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case form.Single:
		return strconv.Quote(string(val))
	case form.Multiple:
		quoted := make([]string, len(val))
		for i, s := range val {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ",") + "]"
	default:
		return fmt.Sprint(v)
	}
}
