package form

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Answers maps question id to the respondent's answer.
//
// INVARIANT: an entry exists only for answered questions. Set with an
// empty value deletes the entry instead of storing it.
type Answers map[string]Value

// NewAnswers creates an empty answer set.
func NewAnswers() Answers {
	return make(Answers)
}

// Lookup returns the answer for a question if it is present and non-empty.
func (a Answers) Lookup(questionID string) (Value, bool) {
	v, ok := a[questionID]
	if !ok || IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// Has reports whether the question has a present, non-empty answer.
func (a Answers) Has(questionID string) bool {
	_, ok := a.Lookup(questionID)
	return ok
}

// Set upserts an answer. Empty values remove the entry.
func (a Answers) Set(questionID string, v Value) {
	if IsEmpty(v) {
		delete(a, questionID)
		return
	}
	if m, ok := v.(Multiple); ok {
		v = append(Multiple(nil), m...)
	}
	a[questionID] = v
}

// Clone returns a deep copy; callers may keep it after the session moves on.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if m, ok := v.(Multiple); ok {
			out[k] = append(Multiple(nil), m...)
			continue
		}
		out[k] = v
	}
	return out
}

// SortedIDs returns the answered question ids in lexical order.
func (a Answers) SortedIDs() []string {
	ids := make([]string, 0, len(a))
	for k := range a {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// UnmarshalJSON implements json.Unmarshaler for Answers.
// Null and empty entries are dropped to keep the invariant.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = make(Answers, len(raw))
	for k, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("answer %q: %w", k, err)
		}
		a.Set(k, val)
	}
	return nil
}
