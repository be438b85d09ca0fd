package engine

import (
	"context"
	"fmt"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// Mismatch is one divergence found by Replay.
type Mismatch struct {
	Seq   int64  `json:"seq"`
	Field string `json:"field"` // "case", "result", "state_digest", "final_state", "action"
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// ReplayResult summarizes a replay run.
type ReplayResult struct {
	Entries     int        `json:"entries"`
	FinalDigest string     `json:"final_digest"`
	LiveDigest  string     `json:"live_digest"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// OK reports whether the replay reproduced the journal exactly.
func (r ReplayResult) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay rebuilds the registry from the stored genesis by re-running every
// journal entry through the same dispatch table Execute uses. Each entry's
// outcome case, result and state digest must come out identical; the final
// state must match the live registry.
//
// Replay never writes. Because the registry reads no wall clock and every
// entry carries its own caller and epoch, a journal that replays cleanly
// once replays cleanly every time.
func (e *Engine) Replay(ctx context.Context) (ReplayResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	genesis, err := e.store.Genesis(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	reg, err := registry.Restore(genesis)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: genesis: %w", err)
	}
	entries, err := e.store.ReadJournal(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	res := ReplayResult{Entries: len(entries), Mismatches: []Mismatch{}}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return ReplayResult{}, err
		}
		ms, err := replayEntry(reg, entry)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay seq %d: %w", entry.Seq, err)
		}
		res.Mismatches = append(res.Mismatches, ms...)
	}

	if res.FinalDigest, err = StateDigest(reg); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	if res.LiveDigest, err = StateDigest(e.reg); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	if res.FinalDigest != res.LiveDigest {
		res.Mismatches = append(res.Mismatches, Mismatch{
			Seq:   e.clock.Current(),
			Field: "final_state",
			Want:  res.LiveDigest,
			Got:   res.FinalDigest,
		})
	}

	e.metrics.IncrementReplay(res.OK())
	e.logger.Info("replay finished",
		"entries", res.Entries,
		"mismatches", len(res.Mismatches),
	)
	return res, nil
}

func replayEntry(reg *registry.Registry, entry ir.Entry) ([]Mismatch, error) {
	a, ok := actions[entry.Call.Action]
	if !ok || a.read {
		return []Mismatch{{
			Seq:   entry.Seq,
			Field: "action",
			Want:  "known mutating action",
			Got:   entry.Call.Action,
		}}, nil
	}

	env := registry.Env{
		Caller: registry.Identity(entry.Call.Caller),
		Epoch:  registry.Epoch(entry.Call.Epoch),
	}
	eff, runErr := a.run(reg, env, entry.Call.Args)
	if isArgError(runErr) {
		return nil, runErr
	}
	out, err := outcomeOf(eff, runErr)
	if err != nil {
		return nil, err
	}

	var ms []Mismatch
	if out.Case != entry.Outcome.Case {
		ms = append(ms, Mismatch{Seq: entry.Seq, Field: "case", Want: entry.Outcome.Case, Got: out.Case})
	}

	want, err := ir.MarshalCanonical(entry.Outcome.Result)
	if err != nil {
		return nil, err
	}
	got, err := ir.MarshalCanonical(out.Result)
	if err != nil {
		return nil, err
	}
	if string(want) != string(got) {
		ms = append(ms, Mismatch{Seq: entry.Seq, Field: "result", Want: string(want), Got: string(got)})
	}

	digest, err := StateDigest(reg)
	if err != nil {
		return nil, err
	}
	if digest != entry.StateDigest {
		ms = append(ms, Mismatch{Seq: entry.Seq, Field: "state_digest", Want: entry.StateDigest, Got: digest})
	}
	return ms, nil
}
