// Package engine implements form traversal: condition evaluation,
// question visibility, the required-answer gate and step navigation.
//
// The engine is pure with respect to its inputs. Every decision is a
// function of the form definition and the live answer set; nothing is
// cached between calls, so changing an answer immediately changes what is
// visible.
//
// LAYERS:
//
//	Evaluate        one condition against the answers
//	IsVisible       one question (AND over its conditions, show/hide)
//	CanAdvance      the displayed questions' required answers
//	Navigator       step sequencing over the flat question list
//	Session         answers + pointer + completion for one respondent
//
// Navigation:
// The pointer is an index into the flat question list. Reading the current
// step resolves the pointer forward to the first visible question without
// storing the result. Advance and Retreat move between steps and skip
// hidden questions; a group counts as one step. When Advance finds no
// further visible step the session completes and the completion callback
// runs exactly once.
//
// CRITICAL PATTERNS:
//
// Monotonic navigation:
// Advance never moves the pointer backward and Retreat never moves it
// forward.
//
// Read-only display:
// CurrentDisplay computes, Sync stores. Calling CurrentDisplay any number
// of times leaves the session unchanged.
package engine
