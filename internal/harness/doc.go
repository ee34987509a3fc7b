// Package harness runs scripted walks through a form as executable tests.
//
// A scenario names a form, performs session operations one step at a time
// and checks the screen after each. Every run produces a trace with one
// line per operation, suitable for golden comparison.
//
// # Scenario Format
//
//	name: contact_branching
//	description: "Developers are asked for a language, not for feedback"
//	form: ../forms/survey.yaml      # or an inline definition: {...}
//	steps:
//	  - action: advance
//	    expect: {outcome: advanced, questions: [role]}
//	  - action: record
//	    question: role
//	    value: dev
//	  - action: advance
//	    expect: {questions: [lang], last: false}
//	expect_completion:
//	  completed: true
//	  answers: {role: dev, lang: go}
//
// Actions are record, clear, toggle, advance, retreat and sync. Step
// expectations are subset matches: only the fields present are checked.
//
// # Determinism
//
// The session runs with logging discarded and no clock or id source, so
// the same scenario always yields the same trace.
package harness
