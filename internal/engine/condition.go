package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/formstep/internal/form"
)

// Evaluate checks a single branching condition against the answer set.
//
// The referenced answer and the comparison value are both flattened with
// form.Join before comparing:
//   - equals / not_equals: exact, case-sensitive string comparison
//   - contains / not_contains: case-insensitive substring test
//
// A condition is never satisfied by a missing or empty answer, whatever the
// operator. That includes references to question ids the form does not have.
//
// POLICY: an unknown operator evaluates to true. Definitions written for a
// newer operator set keep their questions reachable instead of hiding them.
func Evaluate(c form.Condition, answers form.Answers) bool {
	answer, ok := answers.Lookup(c.QuestionID)
	if !ok {
		return false
	}

	got := form.Join(answer)
	want := form.Join(c.Value)

	switch c.Operator {
	case form.OpEquals:
		return got == want
	case form.OpNotEquals:
		return got != want
	case form.OpContains:
		return containsFold(got, want)
	case form.OpNotContains:
		return !containsFold(got, want)
	default:
		return true
	}
}

// containsFold reports whether s contains substr, ignoring case.
// A Caser is stateful, so one is created per call.
func containsFold(s, substr string) bool {
	lower := cases.Lower(language.Und)
	return strings.Contains(lower.String(s), lower.String(substr))
}
