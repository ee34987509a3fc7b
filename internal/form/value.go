package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a sealed interface representing an answer or comparison value.
// Only Single and Multiple implement this.
type Value interface {
	answerValue() // Sealed - only these types implement it
}

// Single is a one-string answer (text, email, phone, select, date).
type Single string

func (Single) answerValue() {}

// Multiple is an ordered list of strings (multiselect).
type Multiple []string

func (Multiple) answerValue() {}

// MarshalJSON implements json.Marshaler for Multiple.
// A nil Multiple encodes as [] so it never round-trips into null.
func (m Multiple) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(m))
}

// Join flattens a value into the single string used for comparisons.
// Multiple values are joined with a comma in their existing order.
func Join(v Value) string {
	switch val := v.(type) {
	case Single:
		return string(val)
	case Multiple:
		return strings.Join(val, ",")
	default:
		return ""
	}
}

// IsEmpty reports whether a value counts as "no answer": nil, an empty
// Single, or a Multiple with zero elements.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case Single:
		return val == ""
	case Multiple:
		return len(val) == 0
	default:
		return true
	}
}

// Strings returns the value as a list: a Single becomes one element.
func Strings(v Value) []string {
	switch val := v.(type) {
	case Single:
		if val == "" {
			return nil
		}
		return []string{string(val)}
	case Multiple:
		return append([]string(nil), val...)
	default:
		return nil
	}
}

// DecodeValue decodes a JSON string or array of strings into a Value.
// JSON null decodes to a nil Value.
func DecodeValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Single(s), nil

	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("value list must contain only strings: %w", err)
		}
		return Multiple(list), nil

	case 'n':
		return nil, nil

	default:
		return nil, fmt.Errorf("value must be a string or a list of strings: %s", string(data))
	}
}

// ValueFromAny converts a decoded YAML or JSON value into a Value.
// Scalars become Single (numbers and booleans via their text form),
// lists become Multiple. Nested lists and maps are rejected.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Value:
		return val, nil
	case string:
		return Single(val), nil
	case bool, int, int64, float64:
		return Single(fmt.Sprint(val)), nil
	case []string:
		return Multiple(append([]string(nil), val...)), nil
	case []any:
		list := make(Multiple, 0, len(val))
		for i, elem := range val {
			switch e := elem.(type) {
			case string:
				list = append(list, e)
			case bool, int, int64, float64:
				list = append(list, fmt.Sprint(e))
			default:
				return nil, fmt.Errorf("list[%d]: unsupported element type %T", i, elem)
			}
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// Condition compares another question's answer against a value.
type Condition struct {
	QuestionID string   `json:"question_id"`
	Operator   Operator `json:"operator"`
	Value      Value    `json:"value"`
}

// UnmarshalJSON implements json.Unmarshaler for Condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID string          `json:"question_id"`
		Operator   Operator        `json:"operator"`
		Value      json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.QuestionID = raw.QuestionID
	c.Operator = raw.Operator
	c.Value = nil
	if len(raw.Value) > 0 {
		val, err := DecodeValue(raw.Value)
		if err != nil {
			return fmt.Errorf("condition on %q: %w", raw.QuestionID, err)
		}
		c.Value = val
	}
	return nil
}
