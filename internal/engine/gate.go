package engine

import "github.com/roach88/formstep/internal/form"

// CanAdvance reports whether the displayed questions allow forward
// navigation: every required question must have a present, non-empty
// answer. Optional questions never block. Pattern and length metadata are
// not consulted.
//
// An empty display set can always advance.
func CanAdvance(displayed []form.Question, answers form.Answers) bool {
	for _, q := range displayed {
		if q.Required && !answers.Has(q.ID) {
			return false
		}
	}
	return true
}

// MissingRequired returns the ids of displayed required questions that
// still lack an answer, in display order.
func MissingRequired(displayed []form.Question, answers form.Answers) []string {
	var missing []string
	for _, q := range displayed {
		if q.Required && !answers.Has(q.ID) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
