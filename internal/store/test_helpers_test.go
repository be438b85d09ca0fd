package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createInitializedStore creates a store holding an empty test collection.
func createInitializedStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.Init(context.Background(), testGenesis()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return s
}

func testGenesis() registry.State {
	return registry.State{
		Collection: registry.Collection{
			Name:          "SolicyNFT",
			Symbol:        "HNFT",
			BaseURI:       "ipfs://base/",
			Administrator: "owner",
		},
		Policy:  registry.DefaultPolicy(),
		NextID:  1,
		Records: []registry.Record{},
	}
}

// createTestEntry creates a journal entry with minimal required fields.
func createTestEntry(seq int64, flowToken, action, outputCase string) ir.Entry {
	return ir.Entry{
		ID:          fmt.Sprintf("entry-%s-%d", action, seq),
		Seq:         seq,
		FlowToken:   flowToken,
		Call:        ir.Call{Action: action, Caller: "account_1", Epoch: seq, Args: ir.Object{"id": ir.Int(1)}},
		Outcome:     ir.Outcome{Case: outputCase, Result: ir.Object{}},
		StateDigest: "digest",
	}
}
