package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mintScenario = `name: mint_one
description: mint a single record
flow:
  - invoke: mint
    args: {recipient: alice, name: blade}
    expect: {case: Success, result: {id: 1}}
assertions:
  - type: next_id
    value: 2
`

const failingScenario = `name: wrong_expectation
description: expects burn to succeed, which it never does
flow:
  - invoke: burn
    caller: alice
    args: {id: 1}
    expect: {case: Success}
assertions:
  - type: trace_count
    action: burn
    count: 1
`

func writeScenario(t *testing.T, dir, file, body string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", t.TempDir())
	require.NoError(t, err)

	data := responseData(t, out)
	assert.Equal(t, float64(0), data["total"])
	assert.Empty(t, data["scenarios"])
}

func TestTestCommandReferenceScenarios(t *testing.T) {
	out, _, err := execute(t, "test", filepath.Join("..", "harness", "testdata"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS initialize_and_mint")
	assert.Contains(t, out, "PASS kill_token")
	assert.Contains(t, out, "Test Summary: 7 passed, 0 failed, 7 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", filepath.Join("..", "harness", "testdata"), "--filter", "rank_*")
	require.NoError(t, err)

	data := responseData(t, out)
	assert.Equal(t, float64(2), data["total"])
	for _, s := range data["scenarios"].([]any) {
		assert.Equal(t, "match", s.(map[string]any)["golden"])
	}
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "mint_one.yaml", mintScenario)

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS mint_one")
	_, statErr := os.Stat(filepath.Join(dir, "golden", "mint_one.golden"))
	assert.True(t, os.IsNotExist(statErr), "golden files are only written with --update")

	out, _, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS mint_one (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "mint_one.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"mint_one"`)

	out, _, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	scenarios := responseData(t, out)["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "match", scenarios[0].(map[string]any)["golden"])
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "mint_one.yaml", mintScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "mint_one.golden"), []byte(`{}`), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL mint_one")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "mint_one.yaml", mintScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "E_TEST_FAILED", resp["error"].(map[string]any)["code"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["passed"])
	assert.Equal(t, float64(1), data["failed"])

	failed := data["scenarios"].([]any)[1].(map[string]any)
	assert.Equal(t, "wrong_expectation", failed["name"])
	assert.Equal(t, []any{"flow[0] burn: expected case Success, got BurnDisabled"}, failed["errors"])
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nflow:\n  - invoke: teleport\n")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestHelpText(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	assert.Equal(t, "test <scenarios-dir>", cmd.Use)
	assert.Contains(t, cmd.Long, "golden")
	assert.Contains(t, cmd.Long, "Exit codes")
}
