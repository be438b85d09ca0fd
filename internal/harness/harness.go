package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
	"github.com/roach88/rankvault/internal/store"
	"github.com/roach88/rankvault/internal/testutil"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.EpochClock
	admin  string
	logger *slog.Logger
}

// Run executes a scenario against a real engine and returns the result.
//
// Each scenario gets a fresh SQLite store in a temporary directory, a fixed
// flow token and an epoch counter starting at 0, so two runs of the same
// scenario produce byte-identical traces.
//
// Execution flow:
//  1. Resolve the scenario's collection and policy and initialize the store
//  2. Execute flow steps, checking expect clauses
//  3. Replay the journal from genesis
//  4. Evaluate assertions against the trace and the persisted state
//
// A non-nil error means the scenario could not be executed at all; check
// failures are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := scenario.Config()
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	dir, err := os.MkdirTemp("", "rankvault-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	reg, err := registry.New(cfg.Collection, cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	if err := st.Init(ctx, reg.State()); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.Open(ctx, st,
		engine.WithFlowGenerator(testutil.NewFixedFlowGenerator(scenario.FlowToken)),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	h := &Harness{
		store:  st,
		engine: eng,
		clock:  testutil.NewEpochClock(cfg.Policy.EpochsPerDay),
		admin:  string(cfg.Collection.Administrator),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}
	if err := h.attachJournal(ctx, result); err != nil {
		return nil, err
	}
	if err := h.checkReplay(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeFlow runs every step in order. Advance steps move the epoch
// counter; invoke steps go through engine.Execute at the current epoch.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		if step.IsAdvance() {
			h.clock.AdvanceDays(step.AdvanceDays)
			h.clock.AdvanceEpochs(step.AdvanceEpochs)
			h.logger.Debug("epoch advanced", "step", i, "epoch", h.clock.Now())
			continue
		}

		args, err := ir.ObjectFromMap(step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: args: %w", i, err)
		}
		caller := step.Caller
		if caller == "" {
			caller = h.admin
		}
		call := ir.Call{
			Action: step.Invoke,
			Caller: caller,
			Epoch:  h.clock.Now(),
			Args:   args,
		}

		before := h.engine.Seq()
		out, err := h.engine.Execute(ctx, call)
		if err != nil {
			var rerr *engine.RuntimeError
			if !errors.As(err, &rerr) {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			out = ir.Outcome{
				Case:   string(rerr.Code),
				Result: ir.Object{"message": ir.String(rerr.Message)},
			}
		}

		ev := TraceEvent{
			Step:   i,
			Action: call.Action,
			Caller: call.Caller,
			Epoch:  call.Epoch,
			Args:   args,
			Case:   out.Case,
			Result: out.Result,
		}
		if seq := h.engine.Seq(); seq != before {
			ev.Seq = seq
		}
		result.addEvent(ev)

		if step.Expect != nil {
			msgs, err := checkExpect(i, step, out)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				result.AddError(msg)
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", call.Action,
			"epoch", call.Epoch,
			"case", out.Case,
			"seq", ev.Seq,
		)
	}
	return nil
}

// checkExpect compares an outcome with the step's expect clause.
func checkExpect(index int, step FlowStep, out ir.Outcome) ([]string, error) {
	var msgs []string
	if out.Case != step.Expect.Case {
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: expected case %s, got %s",
			index, step.Invoke, step.Expect.Case, out.Case))
	}
	if step.Expect.Result == nil {
		return msgs, nil
	}
	want, err := ir.ObjectFromMap(step.Expect.Result)
	if err != nil {
		return nil, fmt.Errorf("flow step %d: expect result: %w", index, err)
	}
	if key, ok := matchSubset(out.Result, want); !ok {
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: result field %q: expected %v, got %v",
			index, step.Invoke, key, ir.ToAny(want[key]), describe(out.Result, key)))
	}
	return msgs, nil
}

// attachJournal copies entry ids and state digests into the trace and
// records the final state digest.
func (h *Harness) attachJournal(ctx context.Context, result *Result) error {
	entries, err := h.engine.Journal(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	bySeq := make(map[int64]ir.Entry, len(entries))
	for _, e := range entries {
		bySeq[e.Seq] = e
	}
	for i := range result.Trace {
		ev := &result.Trace[i]
		if !ev.Journaled() {
			continue
		}
		entry, ok := bySeq[ev.Seq]
		if !ok {
			result.AddError(fmt.Sprintf("flow[%d] %s: seq %d missing from journal", ev.Step, ev.Action, ev.Seq))
			continue
		}
		ev.ID = entry.ID
		ev.StateDigest = entry.StateDigest
	}

	digest, err := engine.StateDigest(h.engine.Registry())
	if err != nil {
		return fmt.Errorf("failed to digest final state: %w", err)
	}
	result.FinalDigest = digest
	return nil
}

// checkReplay rebuilds the registry from the journal and reports every
// divergence as an error.
func (h *Harness) checkReplay(ctx context.Context, result *Result) error {
	rr, err := h.engine.Replay(ctx)
	if err != nil {
		return fmt.Errorf("failed to replay journal: %w", err)
	}
	for _, m := range rr.Mismatches {
		result.AddError(fmt.Sprintf("replay: seq %d %s: want %s, got %s", m.Seq, m.Field, m.Want, m.Got))
	}
	return nil
}

// matchSubset reports whether every key of want is present in got with an
// equal value. On failure it returns the first offending key in canonical
// order.
func matchSubset(got, want ir.Object) (string, bool) {
	for _, key := range want.SortedKeys() {
		v, ok := got[key]
		if !ok || !reflect.DeepEqual(v, want[key]) {
			return key, false
		}
	}
	return "", true
}

func describe(obj ir.Object, key string) any {
	v, ok := obj[key]
	if !ok {
		return "<missing>"
	}
	return ir.ToAny(v)
}
