package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
)

// checkStep compares the screen after a step with the expectation and
// returns one message per mismatch.
func checkStep(exp *StepExpect, display engine.Step, ev TraceEvent) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	if exp.Questions != nil {
		got := display.QuestionIDs()
		if !slices.Equal(exp.Questions, got) {
			mismatch("questions", exp.Questions, got)
		}
	}
	if exp.Group != nil && *exp.Group != ev.Group {
		mismatch("group", quoteOrNone(*exp.Group), quoteOrNone(ev.Group))
	}
	if exp.CanAdvance != nil && *exp.CanAdvance != display.CanAdvance {
		mismatch("can_advance", *exp.CanAdvance, display.CanAdvance)
	}
	if exp.First != nil && *exp.First != display.IsFirstStep {
		mismatch("first", *exp.First, display.IsFirstStep)
	}
	if exp.Last != nil && *exp.Last != display.IsLastStep {
		mismatch("last", *exp.Last, display.IsLastStep)
	}
	if exp.Pointer != nil && *exp.Pointer != ev.Pointer {
		mismatch("pointer", *exp.Pointer, ev.Pointer)
	}
	if exp.Progress != nil && *exp.Progress != display.Progress {
		mismatch("progress", *exp.Progress, display.Progress)
	}
	if exp.Outcome != "" && exp.Outcome != ev.Outcome {
		mismatch("outcome", exp.Outcome, ev.Outcome)
	}
	if exp.Moved != nil && ev.Moved != nil && *exp.Moved != *ev.Moved {
		mismatch("moved", *exp.Moved, *ev.Moved)
	}
	return errs
}

// checkCompletion compares the completion callback's record with the
// expectation. The callback must run exactly once for a completed walk and
// never otherwise.
func checkCompletion(result *Result, exp *CompletionExpect) error {
	if !exp.Completed {
		if result.Completions != 0 {
			result.AddError(fmt.Sprintf("completion: expected none, got %d", result.Completions))
		}
		return nil
	}

	if result.Completions != 1 {
		result.AddError(fmt.Sprintf("completion: expected exactly 1, got %d", result.Completions))
		return nil
	}
	if exp.Answers == nil {
		return nil
	}

	want := form.NewAnswers()
	for qid, raw := range exp.Answers {
		v, err := form.ValueFromAny(raw)
		if err != nil {
			return fmt.Errorf("expect_completion.answers.%s: %w", qid, err)
		}
		want.Set(qid, v)
	}

	for _, qid := range want.SortedIDs() {
		got, ok := result.Answers.Lookup(qid)
		if !ok {
			result.AddError(fmt.Sprintf("completion: answer %s: expected %s, got none", qid, formatValue(want[qid])))
			continue
		}
		if formatValue(got) != formatValue(want[qid]) {
			result.AddError(fmt.Sprintf("completion: answer %s: expected %s, got %s", qid, formatValue(want[qid]), formatValue(got)))
		}
	}
	for _, qid := range result.Answers.SortedIDs() {
		if _, ok := want[qid]; !ok {
			result.AddError(fmt.Sprintf("completion: unexpected answer %s = %s", qid, formatValue(result.Answers[qid])))
		}
	}
	return nil
}

func quoteOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return fmt.Sprintf("%q", s)
}
