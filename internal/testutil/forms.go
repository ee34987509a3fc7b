package testutil

import "github.com/roach88/formstep/internal/form"

// ShowIf returns branching that shows a question when questionID equals
// value.
func ShowIf(questionID, value string) *form.Branching {
	return &form.Branching{
		Action: form.ActionShow,
		Conditions: []form.Condition{
			{QuestionID: questionID, Operator: form.OpEquals, Value: form.Single(value)},
		},
	}
}

// HideIf returns branching that hides a question when questionID equals
// value.
func HideIf(questionID, value string) *form.Branching {
	b := ShowIf(questionID, value)
	b.Action = form.ActionHide
	return b
}

// GateForm builds a three-question form:
//
//	q1    text, required
//	q2    text, shown when q1 == "x"
//	tags  multiselect (a, b), shown when q1 == "tags"
//
// It exercises the required gate, skipping of hidden questions and
// multiselect toggling.
func GateForm(id string, status form.Status) *form.Form {
	return &form.Form{
		ID:     id,
		Title:  "Gate",
		Status: status,
		Questions: []form.Question{
			{ID: "q1", Type: form.TypeText, Label: "First", Required: true},
			{ID: "q2", Type: form.TypeText, Label: "Second", Branching: ShowIf("q1", "x")},
			{ID: "tags", Type: form.TypeMultiselect, Label: "Tags", Options: []form.Option{
				{ID: "a", Label: "A", Value: "a"},
				{ID: "b", Label: "B", Value: "b"},
			}, Branching: ShowIf("q1", "tags")},
		},
	}
}
