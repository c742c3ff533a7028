package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const burstScenario = `name: tiny_burst
macros:
  - name: tiny
    trigger: f6
    repeat: 2
    interval: 1ms
steps:
  - press: f6
  - settle: true
expect:
  sent: 2
  final_status: idle
golden: true
`

const failingScenario = `name: wrong_count
macros:
  - name: tiny
    trigger: f6
    repeat: 2
    interval: 1ms
steps:
  - press: f6
  - settle: true
expect:
  sent: 7
`

func TestTestCommand_HarnessScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ master_toggle_cap")
	assert.Contains(t, stdout, "✓ macro_burst")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "test",
		filepath.Join("..", "harness", "testdata", "scenarios"), "--filter", "02_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "macro_burst", resp.Data.Scenarios[0].Name)
	assert.Equal(t, int64(4), resp.Data.Scenarios[0].Sent)
}

func TestTestCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", failingScenario)

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong_count")
	assert.Contains(t, stdout, "1 failed")
}

func TestTestCommand_FailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", failingScenario)

	stdout, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tiny.yaml", burstScenario)

	_, _, err := execute(t, "test", dir)
	require.Error(t, err, "golden file does not exist yet")

	stdout, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "tiny_burst.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "tiny_burst"`)
	assert.Contains(t, string(golden), `"sent": 2`)

	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommand_BadScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "name: bad\nsteps:\n  - jump: f6\n")

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ bad.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommand_Empty(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	file := filepath.Join(scenarios, "a.yaml")

	assert.Equal(t, filepath.Join(scenarios, "golden", "a.golden"), goldenFilePath(file, "a"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "golden"), 0o755))
	assert.Equal(t, filepath.Join(root, "golden", "a.golden"), goldenFilePath(file, "a"))

	require.NoError(t, os.MkdirAll(filepath.Join(scenarios, "golden"), 0o755))
	assert.Equal(t, filepath.Join(scenarios, "golden", "a.golden"), goldenFilePath(file, "a"))
}
