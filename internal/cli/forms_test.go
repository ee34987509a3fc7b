package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
)

func runFormsCmd(t *testing.T, format string, dbPath string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewFormsCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--db", dbPath))
	err := cmd.Execute()
	return buf.String(), err
}

func TestForms_ImportListShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")

	out, err := runFormsCmd(t, "text", dbPath, "import", filepath.Join("testdata", "forms", "valid"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ created contact")
	assert.Contains(t, out, "✓ created poll")

	out, err = runFormsCmd(t, "text", dbPath, "import", filepath.Join("testdata", "forms", "valid", "poll.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ unchanged poll")

	changed := filepath.Join(t.TempDir(), "poll.json")
	copyFixture(t, filepath.Join("testdata", "forms", "valid", "poll.json"), changed)
	data, err := os.ReadFile(changed)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(changed, bytes.ReplaceAll(data, []byte("Quick poll"), []byte("Slow poll")), 0o644))

	out, err = runFormsCmd(t, "text", dbPath, "import", changed)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ updated poll")

	out, err = runFormsCmd(t, "text", dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "contact")
	assert.Contains(t, out, "poll")

	out, err = runFormsCmd(t, "text", dbPath, "list", "--status", "published")
	require.NoError(t, err)
	assert.Contains(t, out, "contact")
	assert.NotContains(t, out, "poll")

	out, err = runFormsCmd(t, "text", dbPath, "show", "contact")
	require.NoError(t, err)
	assert.Contains(t, out, "contact: Contact us [published]")
	assert.Contains(t, out, "  - order (text) Order number [show if 1 condition(s)]")
	assert.Contains(t, out, "  - name (text) * Your name")
}

func TestForms_ShowJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")
	_, err := runFormsCmd(t, "text", dbPath, "import", contactForm)
	require.NoError(t, err)

	out, err := runFormsCmd(t, "json", dbPath, "show", "contact")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   form.Form `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "contact", resp.Data.ID)
	assert.Len(t, resp.Data.Questions, 4)
	assert.Equal(t, "#10B981", resp.Data.Theme.PrimaryColor)
}

func TestForms_ImportRejectsInvalid(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")

	out, err := runFormsCmd(t, "text", dbPath, "import", filepath.Join("testdata", "forms", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing imported")
	assert.Contains(t, out, "F109")

	out, err = runFormsCmd(t, "text", dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No forms.")
}

func TestForms_UnknownStatus(t *testing.T) {
	_, err := runFormsCmd(t, "text", filepath.Join(t.TempDir(), "forms.db"), "list", "--status", "archived")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestForms_DeleteAndMissing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")
	_, err := runFormsCmd(t, "text", dbPath, "import", contactForm)
	require.NoError(t, err)

	out, err := runFormsCmd(t, "text", dbPath, "delete", "contact")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deleted contact")

	out, err = runFormsCmd(t, "text", dbPath, "show", "contact")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoForm)
	assert.Contains(t, out, "form contact not found")
}

func TestForms_Submissions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")
	_, err := runFormsCmd(t, "text", dbPath, "import", contactForm)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.WriteSubmission(context.Background(), store.Submission{
		ID:          "sub-1",
		FormID:      "contact",
		Answers:     form.Answers{"name": form.Single("Ada"), "channels": form.Multiple{"email", "phone"}},
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runFormsCmd(t, "text", dbPath, "submissions", "contact")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 sub-1")
	assert.Contains(t, out, "  channels: email,phone")
	assert.Contains(t, out, "  name: Ada")

	_, err = runFormsCmd(t, "text", dbPath, "submissions", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoForm)
}

func TestForms_Seed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forms.db")

	out, err := runFormsCmd(t, "text", dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ seeded 1 form(s)")

	out, err = runFormsCmd(t, "text", dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ seeded 0 form(s)")

	out, err = runFormsCmd(t, "text", dbPath, "show", form.DefaultFormID)
	require.NoError(t, err)
	assert.Contains(t, out, "User Registration")
}
