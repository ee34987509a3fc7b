package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintForm() *Form {
	minLen := 2
	return &Form{
		ID:     "fp",
		Title:  "Caf\u00e9 <menu>",
		Status: StatusPublished,
		Questions: []Question{
			{ID: "name", Type: TypeText, Label: "Name", Required: true, Validation: &Validation{MinLength: &minLen}},
			{ID: "diet", Type: TypeSelect, Label: "Diet", Options: []Option{{ID: "veg", Label: "Veg", Value: "veg"}}},
			{ID: "why", Type: TypeText, Label: "Why?", Branching: &Branching{
				Action:     ActionShow,
				Conditions: []Condition{{QuestionID: "diet", Operator: OpEquals, Value: Single("veg")}},
			}},
		},
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a, err := Fingerprint(fingerprintForm())
	require.NoError(t, err)
	b, err := Fingerprint(fingerprintForm())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	base, err := Fingerprint(fingerprintForm())
	require.NoError(t, err)

	changed := fingerprintForm()
	changed.Questions[1].Options[0].Label = "Vegetarian"
	other, err := Fingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	reordered := fingerprintForm()
	reordered.Questions[0], reordered.Questions[1] = reordered.Questions[1], reordered.Questions[0]
	other, err = Fingerprint(reordered)
	require.NoError(t, err)
	assert.NotEqual(t, base, other, "question order is part of the definition")
}

func TestFingerprint_NFCEquivalentTitles(t *testing.T) {
	composed := fingerprintForm()
	decomposed := fingerprintForm()
	decomposed.Title = "Cafe\u0301 <menu>"

	a, err := Fingerprint(composed)
	require.NoError(t, err)
	b, err := Fingerprint(decomposed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprint_NormalizeMakesLoadedAndStoredEqual(t *testing.T) {
	loaded := &Form{ID: "n", Title: "N", Questions: []Question{{ID: "q", Type: TypeText}}}
	stored := &Form{ID: "n", Title: "N", Questions: []Question{{ID: "q", Type: TypeText}}}
	stored.Normalize()

	a, err := Fingerprint(loaded)
	require.NoError(t, err)
	b, err := Fingerprint(stored)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	loaded.Normalize()
	a, err = Fingerprint(loaded)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUTF16SortedKeys(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...), which sorts before
	// U+FF5E in UTF-16 but after it in UTF-8.
	keys := utf16SortedKeys(map[string]any{"～": 1, "\U0001F600": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "～"}, keys)
}
