package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowEmptyRegistry(t *testing.T) {
	dbPath := newTestDB(t)

	out, _, err := execute(t, "show", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SolicyNFT (HNFT)  admin=owner")
	assert.Contains(t, out, "Next id: 1  Last epoch: 0")
	assert.Contains(t, out, "(no records)")
}

func TestShowAllRecords(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"bob","name":"shield"}`)

	out, _, err := execute(t, "--format", "json", "show", "--db", dbPath)
	require.NoError(t, err)

	data := responseData(t, out)
	assert.Equal(t, float64(3), data["next_id"])
	records := data["records"].([]any)
	require.Len(t, records, 2)
	first := records[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "alice", first["owner"])
	assert.Equal(t, "available", first["state"])
}

func TestShowOneRecord(t *testing.T) {
	dbPath := newTestDB(t)
	mustInvoke(t, dbPath, "mint", "--args", `{"recipient":"alice","name":"blade"}`)
	mustInvoke(t, dbPath, "lock", "--caller", "alice", "--args", `{"id":1,"days":3}`)

	out, _, err := execute(t, "show", "1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 blade owner=alice locked days=3 exp=0 rank=0")
	assert.Contains(t, out, "uri: https://ipfs.io/ipfs/QmSsP68DJ3BrXSFFb3e5t7xtLnXZ2mRMutrUkvYiL5yXK6/1.json")
}

func TestShowUnknownRecord(t *testing.T) {
	dbPath := newTestDB(t)

	out, _, err := execute(t, "--format", "json", "show", "7", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "UnknownRecord", resp["error"].(map[string]any)["code"])
}

func TestShowInvalidID(t *testing.T) {
	dbPath := newTestDB(t)

	_, _, err := execute(t, "show", "abc", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
