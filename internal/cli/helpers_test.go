package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the rankvault root command with args and returns what it
// wrote to stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// newTestDB initializes a registry with the default config.
func newTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vault.db")
	_, _, err := execute(t, "init", "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

// mustInvoke runs invoke and fails the test on any error.
func mustInvoke(t *testing.T, dbPath, action string, extra ...string) string {
	t.Helper()
	args := append([]string{"invoke", action, "--db", dbPath}, extra...)
	out, _, err := execute(t, args...)
	require.NoError(t, err, "invoke %s: %s", action, out)
	return out
}

// decodeResponse parses a --format json response.
func decodeResponse(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// responseData returns the data member of a --format json response.
func responseData(t *testing.T, out string) map[string]any {
	t.Helper()
	data, ok := decodeResponse(t, out)["data"].(map[string]any)
	require.True(t, ok, "no data object in %s", out)
	return data
}
