package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
// Its clock starts at testutil.Epoch and ticks one second per call.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	s.now = testutil.NewClock().Now
	return s
}

// createTestForm creates a minimal valid form.
func createTestForm(id string, status form.Status) *form.Form {
	return &form.Form{
		ID:     id,
		Title:  "Form " + id,
		Status: status,
		Questions: []form.Question{
			{ID: "name", Type: form.TypeText, Label: "Name", Required: true},
			{
				ID: "skills", Type: form.TypeMultiselect, Label: "Skills",
				Options: []form.Option{{ID: "go", Label: "Go", Value: "go"}},
			},
		},
	}
}
