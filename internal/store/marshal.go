package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/formstep/internal/form"
)

// encodeJSON serializes v with HTML escaping disabled so stored text
// matches what clients sent (custom CSS, patterns with < and >).
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalForm converts a form to JSON TEXT for storage.
func marshalForm(f *form.Form) (string, error) {
	data, err := encodeJSON(f)
	if err != nil {
		return "", fmt.Errorf("marshal form: %w", err)
	}
	return data, nil
}

// unmarshalForm parses a stored definition.
func unmarshalForm(data string) (*form.Form, error) {
	var f form.Form
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("unmarshal form: %w", err)
	}
	f.Normalize()
	return &f, nil
}

// marshalAnswers converts an answer set to JSON TEXT for storage.
func marshalAnswers(a form.Answers) (string, error) {
	if a == nil {
		a = form.NewAnswers()
	}
	data, err := encodeJSON(a)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	return data, nil
}

// unmarshalAnswers parses stored answers through form.Answers, which
// restores Single and Multiple values.
func unmarshalAnswers(data string) (form.Answers, error) {
	if data == "" || data == "{}" {
		return form.NewAnswers(), nil
	}
	var a form.Answers
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
