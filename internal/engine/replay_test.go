package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rankvault/internal/ir"
)

// runMixedHistory produces a journal with successes and failures of every
// mutating action.
func runMixedHistory(t *testing.T, e *Engine) {
	t.Helper()
	a := mint(t, e, account1, "A")
	b := mint(t, e, account2, "B")
	mustExec(t, e, call("mint", admin, 0, ir.Object{"recipient": ir.String(admin), "name": ir.String("X")}))
	mustExec(t, e, call("lock", admin, day, ir.Object{"id": ir.Int(a), "days": ir.Int(11)}))
	mustExec(t, e, call("unlock", account1, 2*day, ir.Object{"id": ir.Int(a)}))
	mustExec(t, e, call("claimExperience", account1, 7*day, ir.Object{"id": ir.Int(a)}))
	mustExec(t, e, call("addExperience", account1, 7*day, ir.Object{"id": ir.Int(a), "amount": ir.Int(1234)}))
	mustExec(t, e, call("rankUp", account1, 7*day, ir.Object{"id": ir.Int(a)}))
	mustExec(t, e, call("transfer", account2, 8*day, ir.Object{
		"from": ir.String(account2), "to": ir.String(account1), "id": ir.Int(b),
	}))
	mustExec(t, e, call("killToken", admin, 8*day, ir.Object{"id": ir.Int(b), "receiver_id": ir.Int(a)}))
	mustExec(t, e, call("burn", account1, 8*day, ir.Object{"id": ir.Int(a)}))
}

func TestReplay_Clean(t *testing.T) {
	e, _, m := newTestEngine(t)
	runMixedHistory(t, e)

	res, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK(), "mismatches: %+v", res.Mismatches)
	assert.Equal(t, 11, res.Entries)
	assert.Equal(t, res.LiveDigest, res.FinalDigest)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replays.WithLabelValues("match")))
}

func TestReplay_Empty(t *testing.T) {
	e, _, _ := newTestEngine(t)

	res, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 0, res.Entries)
}

func TestReplay_Deterministic(t *testing.T) {
	e, _, _ := newTestEngine(t)
	runMixedHistory(t, e)

	r1, err := e.Replay(context.Background())
	require.NoError(t, err)
	r2, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestReplay_DetectsTamperedCase(t *testing.T) {
	e, s, m := newTestEngine(t)
	runMixedHistory(t, e)

	// seq 11 is the burn; pretend it succeeded.
	_, err := s.DB().Exec(`UPDATE journal SET output_case = 'Success' WHERE seq = 11`)
	require.NoError(t, err)

	res, err := e.Replay(context.Background())
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Equal(t, Mismatch{Seq: 11, Field: "case", Want: "Success", Got: "BurnDisabled"}, res.Mismatches[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replays.WithLabelValues("mismatch")))
}

func TestReplay_DetectsTamperedArgs(t *testing.T) {
	e, s, _ := newTestEngine(t)
	runMixedHistory(t, e)

	// Double the experience credited at seq 7.
	_, err := s.DB().Exec(`UPDATE journal SET args = '{"amount":2468,"id":1}' WHERE seq = 7`)
	require.NoError(t, err)

	res, err := e.Replay(context.Background())
	require.NoError(t, err)
	require.False(t, res.OK())

	fields := map[string]bool{}
	for _, m := range res.Mismatches {
		fields[m.Field] = true
	}
	assert.True(t, fields["result"])
	assert.True(t, fields["state_digest"])
	assert.True(t, fields["final_state"])
}

func TestReplay_DetectsTamperedRecord(t *testing.T) {
	e, s, _ := newTestEngine(t)
	runMixedHistory(t, e)

	_, err := s.DB().Exec(`UPDATE records SET rank = 5 WHERE id = 1`)
	require.NoError(t, err)

	// Reopen so the live registry reflects the tampered row.
	e2, err := Open(context.Background(), s, WithLogger(discardLogger()))
	require.NoError(t, err)

	res, err := e2.Replay(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "final_state", res.Mismatches[0].Field)
}

func TestReplay_UnknownJournaledAction(t *testing.T) {
	e, s, _ := newTestEngine(t)
	mint(t, e, account1, "A")

	_, err := s.DB().Exec(`UPDATE journal SET action = 'ownerOf' WHERE seq = 1`)
	require.NoError(t, err)

	res, err := e.Replay(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Mismatches)
	assert.Equal(t, "action", res.Mismatches[0].Field)
}
