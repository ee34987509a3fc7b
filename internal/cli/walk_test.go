package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	harnessGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

func runWalkCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewWalkCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestWalk_AllScenariosPass(t *testing.T) {
	out, err := runWalkCmd(t, &RootOptions{Format: "text"}, harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ developer_path")
	assert.Contains(t, out, "✓ manager_path")
	assert.Contains(t, out, "✓ hidden_pointer")
	assert.Contains(t, out, "✓ toggle_topics")
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
}

func TestWalk_FilterJSON(t *testing.T) {
	out, err := runWalkCmd(t, &RootOptions{Format: "json"}, harnessScenarios, "--golden", harnessGolden, "--filter", "*_path")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   WalkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Equal(t, "developer_path", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "manager_path", resp.Data.Scenarios[1].Name)
}

func TestWalk_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, filepath.Join(harnessScenarios, "hidden_pointer.yaml"), filepath.Join(dir, "hidden_pointer.yaml"))

	_, err := runWalkCmd(t, &RootOptions{Format: "text"}, dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "hidden_pointer.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "hidden_pointer.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	out, err := runWalkCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestWalk_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, filepath.Join(harnessScenarios, "hidden_pointer.yaml"), filepath.Join(dir, "hidden_pointer.yaml"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "hidden_pointer.golden"), []byte("stale\n"), 0o644))

	out, err := runWalkCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ hidden_pointer")
	assert.Contains(t, out, "does not match golden file")
}

func TestWalk_FailingExpectation(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_outcome
definition:
  id: one
  title: One
  questions:
    - {id: q, type: text, required: true}
steps:
  - action: advance
    expect: {outcome: advanced}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_outcome.yaml"), []byte(scenario), 0o644))

	out, err := runWalkCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ wrong_outcome")
	assert.Contains(t, out, "outcome: expected advanced, got blocked")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestWalk_MissingDirectory(t *testing.T) {
	_, err := runWalkCmd(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWalk_EmptyDirectory(t *testing.T) {
	out, err := runWalkCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
