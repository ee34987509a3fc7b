package engine

import (
	"log/slog"

	"github.com/roach88/formstep/internal/form"
)

// CompletionFunc receives the final answer set when a session completes.
// The answers are a copy the callee may keep.
type CompletionFunc func(answers form.Answers)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger used for navigation events.
// Default: slog.Default()
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is one respondent's pass through one form.
//
// It owns the answer set and the step pointer. The pointer is only moved by
// Advance, Retreat and Sync; CurrentDisplay computes the resolved step
// without storing it, so reading the display never changes state.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
type Session struct {
	form       *form.Form
	nav        *Navigator
	answers    form.Answers
	pointer    int
	completed  bool
	onComplete CompletionFunc
	logger     *slog.Logger
}

// NewSession starts a session at the first question with an empty answer
// set. onComplete may be nil. The form must not be modified while the
// session is alive.
func NewSession(f *form.Form, onComplete CompletionFunc, opts ...SessionOption) *Session {
	s := &Session{
		form:       f,
		nav:        NewNavigator(f),
		answers:    form.NewAnswers(),
		onComplete: onComplete,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Form returns the definition the session walks.
func (s *Session) Form() *form.Form {
	return s.form
}

// Pointer returns the stored step pointer. It may reference a question
// that is currently hidden; CurrentDisplay resolves it.
func (s *Session) Pointer() int {
	return s.pointer
}

// Completed reports whether the session has handed its answers off.
func (s *Session) Completed() bool {
	return s.completed
}

// Answers returns a copy of the current answer set.
func (s *Session) Answers() form.Answers {
	return s.answers.Clone()
}

// Answer returns the stored answer for a question.
func (s *Session) Answer(questionID string) (form.Value, bool) {
	return s.answers.Lookup(questionID)
}

// RecordAnswer upserts the answer to a question. An empty value removes the
// entry. Answers recorded after completion are ignored.
//
// Recording never moves the pointer; visibility of every question is
// recomputed from the new answer set on the next read.
func (s *Session) RecordAnswer(questionID string, v form.Value) {
	if s.completed {
		s.logger.Debug("answer ignored: session completed", "form", s.form.ID, "question", questionID)
		return
	}
	s.answers.Set(questionID, v)
}

// ClearAnswer removes the answer to a question.
func (s *Session) ClearAnswer(questionID string) {
	s.RecordAnswer(questionID, nil)
}

// ToggleOption adds option to a multiselect answer, or removes it when it
// is already selected. Selection order is preserved.
func (s *Session) ToggleOption(questionID, option string) {
	current := form.Strings(s.answers[questionID])

	next := make(form.Multiple, 0, len(current)+1)
	found := false
	for _, v := range current {
		if v == option {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, option)
	}
	s.RecordAnswer(questionID, next)
}

// CurrentDisplay returns the step at the resolved pointer.
func (s *Session) CurrentDisplay() Step {
	d := s.nav.Display(s.pointer, s.answers)

	_, hasPrev := s.nav.Prev(d.Index, s.answers)
	_, hasNext := s.nav.Next(d.Index, s.answers)
	if len(d.Questions) == 0 {
		hasPrev, hasNext = false, false
	}

	return Step{
		Index:       d.Index,
		Questions:   d.Questions,
		Group:       d.Group,
		CanAdvance:  CanAdvance(d.Questions, s.answers),
		IsFirstStep: !hasPrev,
		IsLastStep:  !hasNext,
		Progress:    s.progress(d),
		Issues:      s.issues(d.Questions),
	}
}

// Sync stores the resolved pointer, snapping forward past questions that
// became hidden. It returns the new pointer.
func (s *Session) Sync() int {
	if idx, ok := s.nav.Resolve(s.pointer, s.answers); ok {
		s.pointer = idx
	}
	return s.pointer
}

// Advance moves forward one step.
//
// Blocked while a displayed required question is unanswered. When no
// visible step remains the session completes: the completion callback is
// invoked exactly once with a copy of the answers.
func (s *Session) Advance() Outcome {
	if s.completed {
		return OutcomeClosed
	}

	d := s.nav.Display(s.pointer, s.answers)
	if !CanAdvance(d.Questions, s.answers) {
		s.logger.Debug("advance blocked",
			"form", s.form.ID,
			"pointer", d.Index,
			"missing", MissingRequired(d.Questions, s.answers))
		return OutcomeBlocked
	}

	next, ok := s.nav.Next(d.Index, s.answers)
	if !ok || len(d.Questions) == 0 {
		s.completed = true
		s.pointer = d.Index
		s.logger.Debug("session completed", "form", s.form.ID, "answers", len(s.answers))
		if s.onComplete != nil {
			s.onComplete(s.answers.Clone())
		}
		return OutcomeCompleted
	}

	s.logger.Debug("session advanced", "form", s.form.ID, "from", d.Index, "to", next)
	s.pointer = next
	return OutcomeAdvanced
}

// Retreat moves back one visible step. It reports whether the pointer
// moved; at the first visible step it is a no-op.
func (s *Session) Retreat() bool {
	if s.completed {
		return false
	}

	idx, _ := s.nav.Resolve(s.pointer, s.answers)
	prev, ok := s.nav.Prev(idx, s.answers)
	if !ok {
		return false
	}

	s.logger.Debug("session retreated", "form", s.form.ID, "from", idx, "to", prev)
	s.pointer = prev
	return true
}

// progress is the resolved position as a percentage of the flat list.
func (s *Session) progress(d Display) int {
	n := s.nav.Len()
	if n == 0 || len(d.Questions) == 0 {
		return 100
	}
	return (d.Index + 1) * 100 / n
}

// issues collects advisory validation messages for answered questions.
func (s *Session) issues(displayed []form.Question) map[string][]string {
	var out map[string][]string
	for _, q := range displayed {
		v, ok := s.answers.Lookup(q.ID)
		if !ok {
			continue
		}
		msgs := q.Validation.Check(v)
		if len(msgs) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[q.ID] = msgs
	}
	return out
}
