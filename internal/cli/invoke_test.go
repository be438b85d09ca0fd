package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeMint(t *testing.T) {
	dbPath := newTestDB(t)

	out := mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)
	assert.Contains(t, out, "mint {name=blade, recipient=alice} -> Success")
	assert.Contains(t, out, "Result: {id=1}")
	assert.Contains(t, out, "Caller: owner  Epoch: 0")
	assert.Contains(t, out, "Seq:    1")
}

func TestInvokeJSON(t *testing.T) {
	dbPath := newTestDB(t)

	out, _, err := execute(t, "--format", "json", "invoke", "mint", "--db", dbPath,
		"--flow", "flow-a", "--epoch", "5",
		"--args", `{"recipient":"alice","name":"blade"}`)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp["status"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "mint", data["action"])
	assert.Equal(t, "Success", data["case"])
	assert.Equal(t, "flow-a", data["flow_token"])
	assert.Equal(t, float64(1), data["seq"])
	assert.Equal(t, float64(5), data["epoch"])
	assert.Equal(t, map[string]any{"id": float64(1)}, data["result"])
}

func TestInvokeEpochDefaultsToLastSeen(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--epoch", "500", "--args", `{"recipient":"alice","name":"blade"}`)

	out, _, err := execute(t, "--format", "json", "invoke", "ownerOf", "--db", dbPath, "--args", `{"id":1}`)
	require.NoError(t, err)
	data := responseData(t, out)
	assert.Equal(t, float64(500), data["epoch"])
	assert.Equal(t, map[string]any{"owner": "alice"}, data["result"])
}

func TestInvokeReadIsNotJournaled(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)

	out, _, err := execute(t, "--format", "json", "invoke", "balanceOf", "--db", dbPath, "--args", `{"owner":"alice"}`)
	require.NoError(t, err)
	data := responseData(t, out)
	assert.NotContains(t, data, "seq")
	assert.NotContains(t, data, "flow_token")
	assert.Equal(t, map[string]any{"balance": float64(1)}, data["result"])

	out, _, err = execute(t, "--format", "json", "stats", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, float64(1), responseData(t, out)["last_seq"])
}

func TestInvokeFailureOutcome(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)
	mustInvoke(t, dbPath, "lock", "--caller", "alice", "--args", `{"id":1,"days":2}`)

	out, _, err := execute(t, "--format", "json", "invoke", "unlock", "--db", dbPath,
		"--caller", "alice", "--epoch", "8640", "--args", `{"id":1}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "LockNotExpired", resp["error"].(map[string]any)["code"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "LockNotExpired", data["case"])
	assert.Equal(t, float64(3), data["seq"], "failed calls are journaled")
}

func TestInvokeLockUnlockCycle(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)

	out := mustInvoke(t, dbPath, "lock", "--caller", "alice", "--epoch", "100", "--args", `{"id":1,"days":1}`)
	assert.Contains(t, out, "Result: {locked=false}")

	out = mustInvoke(t, dbPath, "unlock", "--caller", "alice", "--epoch", "8740", "--args", `{"id":1}`)
	assert.Contains(t, out, "unlock {id=1} -> Success")

	out = mustInvoke(t, dbPath, "lockRecord", "--args", `{"id":1}`)
	assert.Contains(t, out, "Result: {locked=true}")
}

func TestInvokeUnknownAction(t *testing.T) {
	dbPath := newTestDB(t)

	_, _, err := execute(t, "invoke", "teleport", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "UNKNOWN_ACTION")
}

func TestInvokeInvalidArgs(t *testing.T) {
	dbPath := newTestDB(t)

	_, _, err := execute(t, "invoke", "mint", "--db", dbPath, "--args", `{"recipient":"alice"}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "INVALID_ARGS")
}

func TestInvokeNegativeEpoch(t *testing.T) {
	dbPath := newTestDB(t)

	_, _, err := execute(t, "invoke", "currentTokenId", "--db", dbPath, "--epoch", "-5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "INVALID_EPOCH")
}

func TestInvokeCommandInvalidJSON(t *testing.T) {
	dbPath := newTestDB(t)

	_, _, err := execute(t, "invoke", "mint", "--db", dbPath, "--args", "not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --args JSON")
}

func TestInvokeCommandMissingAction(t *testing.T) {
	_, _, err := execute(t, "invoke", "--db", "vault.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestInvokeHelpText(t *testing.T) {
	cmd := NewInvokeCommand(&RootOptions{Format: "text"})
	assert.Equal(t, "invoke <action>", cmd.Use)
	assert.Contains(t, cmd.Long, "journaled")
	assert.Contains(t, cmd.Long, "administrator")
}
