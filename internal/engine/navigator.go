package engine

import "github.com/roach88/formstep/internal/form"

// Navigator sequences the steps of one form.
//
// The pointer it works with is an index into the flat question list. A
// step is either one standalone question or every question of a group; a
// grouped step is represented by the index of one of its members. Members
// of a group must be adjacent in question order (form.Validate enforces
// this with F109). With split groups, each member the scan reaches shows
// the whole group again.
//
// A question whose group id has no Group is treated as standalone.
//
// Navigator holds no mutable state and never modifies the form.
type Navigator struct {
	questions []form.Question
	groups    map[string]*form.Group
}

// Display is what the navigator resolves a pointer to.
type Display struct {
	// Index is the resolved pointer. Equal to the clamped input when
	// nothing at or after it is visible.
	Index int

	// Questions are the visible questions of the step, in form order.
	// Empty when the form has no questions or nothing visible remains.
	Questions []form.Question

	// Group is the step's group, nil for standalone questions.
	Group *form.Group
}

// NewNavigator creates a navigator over the form's questions and groups.
// When group ids repeat, the first group wins.
func NewNavigator(f *form.Form) *Navigator {
	n := &Navigator{
		questions: append([]form.Question(nil), f.Questions...),
		groups:    make(map[string]*form.Group, len(f.Groups)),
	}
	for i := range f.Groups {
		g := f.Groups[i]
		if _, dup := n.groups[g.ID]; !dup {
			n.groups[g.ID] = &g
		}
	}
	return n
}

// Len returns the number of questions in the flat list.
func (n *Navigator) Len() int {
	return len(n.questions)
}

// Next returns the first index after the current step whose question is
// visible. ok is false when the scan reaches the end without finding one;
// the returned index is then the (clamped) current index, which is the
// terminal signal a session turns into completion.
//
// Next never returns an index lower than current.
func (n *Navigator) Next(current int, answers form.Answers) (next int, ok bool) {
	if len(n.questions) == 0 {
		return 0, false
	}
	current = n.clamp(current)

	for j := current + 1; j < len(n.questions); j++ {
		if n.sameStep(current, j) {
			continue
		}
		if IsVisible(n.questions[j], answers) {
			return j, true
		}
	}
	return current, false
}

// Prev returns the start of the closest visible step before the current
// one. For a grouped step that is its earliest visible member. ok is false
// when no earlier step is visible; the returned index is then 0.
//
// Prev never returns an index higher than current.
func (n *Navigator) Prev(current int, answers form.Answers) (prev int, ok bool) {
	if len(n.questions) == 0 {
		return 0, false
	}
	current = n.clamp(current)

	for j := current - 1; j >= 0; j-- {
		if n.sameStep(current, j) || !IsVisible(n.questions[j], answers) {
			continue
		}
		start := j
		for k := j - 1; k >= 0 && n.sameStep(j, k); k-- {
			if IsVisible(n.questions[k], answers) {
				start = k
			}
		}
		return start, true
	}
	return 0, false
}

// Resolve returns the first index at or after pointer whose question is
// visible. It is the side-effect free form of "snap forward": callers
// decide whether to store the result. ok is false when nothing at or after
// pointer is visible.
func (n *Navigator) Resolve(pointer int, answers form.Answers) (index int, ok bool) {
	if len(n.questions) == 0 {
		return 0, false
	}
	pointer = n.clamp(pointer)

	for j := pointer; j < len(n.questions); j++ {
		if IsVisible(n.questions[j], answers) {
			return j, true
		}
	}
	return pointer, false
}

// Display resolves pointer and returns the visible questions of that step.
func (n *Navigator) Display(pointer int, answers form.Answers) Display {
	idx, ok := n.Resolve(pointer, answers)
	if !ok {
		return Display{Index: idx, Questions: []form.Question{}}
	}

	g := n.groupOf(idx)
	if g == nil {
		return Display{Index: idx, Questions: []form.Question{n.questions[idx]}}
	}

	questions := make([]form.Question, 0, 4)
	for _, q := range n.questions {
		if q.Group == g.ID && IsVisible(q, answers) {
			questions = append(questions, q)
		}
	}
	group := *g
	return Display{Index: idx, Questions: questions, Group: &group}
}

// groupOf returns the group of the question at i, nil when it is
// standalone or references a group that does not exist.
func (n *Navigator) groupOf(i int) *form.Group {
	id := n.questions[i].Group
	if id == "" {
		return nil
	}
	return n.groups[id]
}

// sameStep reports whether indices i and j are displayed as one step.
func (n *Navigator) sameStep(i, j int) bool {
	if i == j {
		return true
	}
	gi := n.groupOf(i)
	return gi != nil && gi == n.groupOf(j)
}

func (n *Navigator) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(n.questions) {
		return len(n.questions) - 1
	}
	return i
}
