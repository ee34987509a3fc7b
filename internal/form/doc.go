// Package form provides the form definition model for formstep.
//
// This package contains type definitions, answer values and definition
// validation only. All other internal packages import form; form imports
// nothing internal.
//
// Key design constraints:
//   - Answer values are a sealed variant: Single or Multiple, nothing else
//   - Answers never hold an entry for an unanswered question
//   - A Form is treated as immutable once a session starts
//   - All JSON tags use snake_case
package form
