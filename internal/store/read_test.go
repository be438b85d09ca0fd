package store

import (
	"context"
	"testing"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

func seedJournal(t *testing.T, s *Store) {
	t.Helper()
	entries := []ir.Entry{
		createTestEntry(1, "flow-b", "mint", "Success"),
		createTestEntry(2, "flow-b", "lock", "Success"),
		createTestEntry(3, "flow-a", "burn", "BurnDisabled"),
		createTestEntry(4, "flow-a", "lock", "InvalidDuration"),
		createTestEntry(5, "flow-b", "burn", "BurnDisabled"),
	}
	for _, e := range entries {
		if err := s.Commit(context.Background(), Commit{Entry: e, NextID: 2}); err != nil {
			t.Fatalf("Commit(seq %d) failed: %v", e.Seq, err)
		}
	}
}

func seqs(entries []ir.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Seq
	}
	return out
}

func equalSeqs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadJournal_OrderedBySeq(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	entries, err := s.ReadJournal(context.Background())
	if err != nil {
		t.Fatalf("ReadJournal() failed: %v", err)
	}
	if got := seqs(entries); !equalSeqs(got, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("seqs = %v", got)
	}

	e := entries[0]
	if e.Call.Action != "mint" || e.Call.Caller != "account_1" || e.Call.Epoch != 1 {
		t.Errorf("call = %+v", e.Call)
	}
	if v, ok := e.Call.Args["id"].(ir.Int); !ok || v != 1 {
		t.Errorf("args = %v", e.Call.Args)
	}
}

func TestReadJournal_Empty(t *testing.T) {
	s := createInitializedStore(t)

	entries, err := s.ReadJournal(context.Background())
	if err != nil {
		t.Fatalf("ReadJournal() failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty non-nil slice", entries)
	}
}

func TestReadJournalByAction(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	entries, err := s.ReadJournalByAction(context.Background(), "burn")
	if err != nil {
		t.Fatalf("ReadJournalByAction() failed: %v", err)
	}
	if got := seqs(entries); !equalSeqs(got, []int64{3, 5}) {
		t.Errorf("seqs = %v", got)
	}
}

func TestReadFlow(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	entries, err := s.ReadFlow(context.Background(), "flow-a")
	if err != nil {
		t.Fatalf("ReadFlow() failed: %v", err)
	}
	if got := seqs(entries); !equalSeqs(got, []int64{3, 4}) {
		t.Errorf("seqs = %v", got)
	}
}

func TestReadEntry(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	e, err := s.ReadEntry(context.Background(), 4)
	if err != nil {
		t.Fatalf("ReadEntry() failed: %v", err)
	}
	if e.Outcome.Case != "InvalidDuration" || e.FlowToken != "flow-a" {
		t.Errorf("entry = %+v", e)
	}

	if _, err := s.ReadEntry(context.Background(), 42); err == nil {
		t.Error("ReadEntry() for a missing seq should fail")
	}
}

func TestGetLastSeq(t *testing.T) {
	s := createInitializedStore(t)

	seq, err := s.GetLastSeq(context.Background())
	if err != nil || seq != 0 {
		t.Fatalf("GetLastSeq() on empty journal = %d, %v", seq, err)
	}

	seedJournal(t, s)
	seq, err = s.GetLastSeq(context.Background())
	if err != nil || seq != 5 {
		t.Fatalf("GetLastSeq() = %d, %v", seq, err)
	}
}

func TestListFlowTokens_FirstSeen(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	tokens, err := s.ListFlowTokens(context.Background())
	if err != nil {
		t.Fatalf("ListFlowTokens() failed: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "flow-b" || tokens[1] != "flow-a" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestCaseCounts(t *testing.T) {
	s := createInitializedStore(t)
	seedJournal(t, s)

	counts, err := s.CaseCounts(context.Background())
	if err != nil {
		t.Fatalf("CaseCounts() failed: %v", err)
	}
	want := []CaseCount{
		{Action: "burn", Case: "BurnDisabled", Count: 2},
		{Action: "lock", Case: "InvalidDuration", Count: 1},
		{Action: "lock", Case: "Success", Count: 1},
		{Action: "mint", Case: "Success", Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("counts = %+v", counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestGenesis_IgnoresProgress(t *testing.T) {
	s := createInitializedStore(t)
	ctx := context.Background()

	if err := s.Commit(ctx, Commit{
		Entry:     createTestEntry(1, "f", "mint", "Success"),
		Upserts:   []registry.Record{{ID: 1, Owner: "account_1", Name: "A", Locked: true}},
		NextID:    2,
		LastEpoch: 50,
	}); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	g, err := s.Genesis(ctx)
	if err != nil {
		t.Fatalf("Genesis() failed: %v", err)
	}
	if g.NextID != 1 || g.LastEpoch != 0 || len(g.Records) != 0 {
		t.Errorf("genesis = %+v", g)
	}
	if g.Collection.Symbol != "HNFT" {
		t.Errorf("symbol = %q", g.Collection.Symbol)
	}

	if _, err := registry.Restore(g); err != nil {
		t.Errorf("Restore(genesis) failed: %v", err)
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	p := registry.Policy{
		EpochsPerDay:     10,
		ExperiencePerDay: 7,
		RankThresholds:   []uint64{5, 9},
		RankUp:           registry.ConsumeExperience,
		KillMerge:        registry.MergeNone,
	}
	data, err := marshalPolicy(p)
	if err != nil {
		t.Fatalf("marshalPolicy() failed: %v", err)
	}
	want := `{"epochs_per_day":10,"experience_per_day":7,"rank_thresholds":[5,9],"rank_up":"consume","kill_merge":"none"}`
	if data != want {
		t.Errorf("policy json = %s", data)
	}

	got, err := unmarshalPolicy(data)
	if err != nil {
		t.Fatalf("unmarshalPolicy() failed: %v", err)
	}
	if got.EpochsPerDay != 10 || got.ExperiencePerDay != 7 || len(got.RankThresholds) != 2 ||
		got.RankUp != registry.ConsumeExperience || got.KillMerge != registry.MergeNone {
		t.Errorf("policy = %+v", got)
	}
}
