package engine

import "github.com/roach88/formstep/internal/form"

// IsVisible reports whether a question qualifies for display given the
// live answer set.
//
// A question without branching, or with an empty condition list, is always
// visible. Otherwise every condition must hold (logical AND):
//   - action "show": visible iff all conditions hold
//   - any other action (including "hide"): hidden iff all conditions hold
//
// A condition may reference the question's own id; it is evaluated against
// whatever answer that question currently has.
func IsVisible(q form.Question, answers form.Answers) bool {
	if q.Branching == nil || len(q.Branching.Conditions) == 0 {
		return true
	}

	all := true
	for _, c := range q.Branching.Conditions {
		if !Evaluate(c, answers) {
			all = false
			break
		}
	}

	if q.Branching.Action == form.ActionShow {
		return all
	}
	return !all
}
