package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCall() Call {
	return Call{
		Action: "lockToken",
		Caller: "owner",
		Epoch:  8640,
		Args:   Object{"token_id": Int(1), "days": Int(11)},
	}
}

func TestEntryIDDeterminism(t *testing.T) {
	out := Outcome{Case: "Success", Result: Object{}}

	id1, err := EntryID("flow-1", 1, testCall(), out)
	require.NoError(t, err)
	id2, err := EntryID("flow-1", 1, testCall(), out)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
	_, err = hex.DecodeString(id1)
	assert.NoError(t, err)
}

func TestEntryIDChangesWithInput(t *testing.T) {
	out := Outcome{Case: "Success"}
	base, err := EntryID("flow-1", 1, testCall(), out)
	require.NoError(t, err)

	otherSeq, err := EntryID("flow-1", 2, testCall(), out)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSeq)

	otherFlow, err := EntryID("flow-2", 1, testCall(), out)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherFlow)

	failed, err := EntryID("flow-1", 1, testCall(), Outcome{Case: "NotOwner"})
	require.NoError(t, err)
	assert.NotEqual(t, base, failed)

	c := testCall()
	c.Args["days"] = Int(12)
	otherArgs, err := EntryID("flow-1", 1, c, out)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherArgs)
}

func TestEntryIDNilAndEmptyArgsMatch(t *testing.T) {
	c := testCall()
	c.Args = nil
	a, err := EntryID("f", 1, c, Outcome{Case: "Success"})
	require.NoError(t, err)

	c.Args = Object{}
	b, err := EntryID("f", 1, c, Outcome{Case: "Success", Result: Object{}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	got := hashWithDomain("d", []byte("x"))
	sum := sha256.Sum256([]byte("d\x00x"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainEntry, data), hashWithDomain(DomainState, data))
}

func TestStateDigest(t *testing.T) {
	s1 := Object{"next_id": Int(2), "records": Array{}}
	s2 := Object{"records": Array{}, "next_id": Int(2)}

	d1, err := StateDigest(s1)
	require.NoError(t, err)
	d2, err := StateDigest(s2)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	s2["next_id"] = Int(3)
	d3, err := StateDigest(s2)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestOutcomeOK(t *testing.T) {
	assert.True(t, Outcome{Case: "Success"}.OK())
	assert.False(t, Outcome{Case: "BurnDisabled"}.OK())
}
