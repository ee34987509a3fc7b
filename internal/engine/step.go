package engine

import "github.com/roach88/formstep/internal/form"

// Step is everything a renderer needs to draw the current screen and
// enable or disable its controls.
type Step struct {
	Index       int                 `json:"index"`
	Questions   []form.Question     `json:"questions"`
	Group       *form.Group         `json:"group,omitempty"`
	CanAdvance  bool                `json:"can_advance"`
	IsFirstStep bool                `json:"is_first_step"`
	IsLastStep  bool                `json:"is_last_step"`
	Progress    int                 `json:"progress"` // percent of the flat question list
	Issues      map[string][]string `json:"issues,omitempty"`
}

// QuestionIDs returns the ids of the displayed questions in order.
func (s Step) QuestionIDs() []string {
	ids := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Outcome is the result of a forward navigation attempt.
type Outcome string

const (
	// OutcomeAdvanced means the pointer moved to the next visible step.
	OutcomeAdvanced Outcome = "advanced"

	// OutcomeCompleted means no visible step remained; the answers were
	// handed to the completion callback.
	OutcomeCompleted Outcome = "completed"

	// OutcomeBlocked means a displayed required question is unanswered.
	OutcomeBlocked Outcome = "blocked"

	// OutcomeClosed means the session already completed.
	OutcomeClosed Outcome = "closed"
)
