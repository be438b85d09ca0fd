package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/metrics"
	"github.com/roach88/rankvault/internal/registry"
	"github.com/roach88/rankvault/internal/store"
)

// Engine hosts one registry on one store.
//
// The registry itself never blocks and is not safe for concurrent use; the
// engine serializes every call behind a single mutex covering dispatch,
// journal append and persistence. Reads take the same lock so they never
// observe a half-applied call.
type Engine struct {
	mu      sync.Mutex
	reg     *registry.Registry
	store   *store.Store
	clock   *Clock
	flowGen FlowTokenGenerator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFlowGenerator sets the flow token source. Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(e *Engine) {
		e.flowGen = g
	}
}

// WithMetrics attaches Prometheus collectors. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the journal clock. Open resumes it from the store when
// this option is absent.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine around an existing registry and an initialized
// store. The caller guarantees they agree; Open is the usual entry point.
func New(reg *registry.Registry, s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		reg:     reg,
		store:   s,
		flowGen: UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewClock()
	}
	e.metrics.SetLiveRecords(reg.Len())
	e.metrics.SetJournalSeq(e.clock.Current())
	return e
}

// Open loads the registry persisted in s and resumes the journal clock
// after the last stored seq.
func Open(ctx context.Context, s *store.Store, opts ...Option) (*Engine, error) {
	reg, err := loadRegistry(ctx, s)
	if err != nil {
		return nil, err
	}
	last, err := s.GetLastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	return New(reg, s, append([]Option{WithClock(NewClockAt(last))}, opts...)...), nil
}

func loadRegistry(ctx context.Context, s *store.Store) (*registry.Registry, error) {
	st, err := s.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	reg, err := registry.Restore(st)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeStateCorrupt, Message: err.Error()}
	}
	return reg, nil
}

// NewFlow returns a fresh flow token.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Execute runs call in a flow of its own.
func (e *Engine) Execute(ctx context.Context, call ir.Call) (ir.Outcome, error) {
	return e.ExecuteInFlow(ctx, e.NewFlow(), call)
}

// ExecuteInFlow runs call and, for a mutating action, journals it under
// flowToken.
//
// Registry failures are outcomes, not errors: the returned Outcome carries
// their case name and they are journaled like successes. A non-nil error
// means the call never reached the registry (RuntimeError) or could not be
// persisted; in the latter case the in-memory registry is reloaded from the
// store so the two never diverge.
func (e *Engine) ExecuteInFlow(ctx context.Context, flowToken string, call ir.Call) (ir.Outcome, error) {
	start := time.Now()

	a, ok := actions[call.Action]
	if !ok {
		return ir.Outcome{}, NewUnknownActionError(call.Action)
	}
	if call.Epoch < 0 {
		return ir.Outcome{}, &RuntimeError{
			Code:    ErrCodeInvalidEpoch,
			Message: fmt.Sprintf("epoch %d is negative", call.Epoch),
			Action:  call.Action,
		}
	}
	if call.Args == nil {
		call.Args = ir.Object{}
	}
	env := registry.Env{
		Caller: registry.Identity(call.Caller),
		Epoch:  registry.Epoch(call.Epoch),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	eff, runErr := a.run(e.reg, env, call.Args)
	if isArgError(runErr) {
		return ir.Outcome{}, NewInvalidArgsError(call.Action, runErr)
	}
	out, err := outcomeOf(eff, runErr)
	if err != nil {
		return ir.Outcome{}, fmt.Errorf("%s: %w", call.Action, err)
	}

	if a.read {
		e.metrics.IncrementCall(call.Action, out.Case)
		return out, nil
	}

	entry, err := e.persist(ctx, flowToken, call, out, eff)
	if err != nil {
		if rerr := e.reload(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
		e.logger.Error("call not persisted",
			"action", call.Action,
			"flow", flowToken,
			"error", err,
		)
		return ir.Outcome{}, err
	}

	e.logger.Info("call journaled",
		"seq", entry.Seq,
		"action", call.Action,
		"caller", call.Caller,
		"epoch", call.Epoch,
		"case", out.Case,
		"flow", flowToken,
	)
	e.metrics.IncrementCall(call.Action, out.Case)
	e.metrics.SetLiveRecords(e.reg.Len())
	e.metrics.SetJournalSeq(entry.Seq)
	e.metrics.ObserveExecuteLatency(time.Since(start))
	return out, nil
}

// outcomeOf turns an action result into an Outcome. An error that is not a
// registry sentinel is returned as-is.
func outcomeOf(eff effect, err error) (ir.Outcome, error) {
	if err == nil {
		result := eff.result
		if result == nil {
			result = ir.Object{}
		}
		return ir.Outcome{Case: registry.CaseSuccess, Result: result}, nil
	}
	name, ok := registry.Case(err)
	if !ok {
		return ir.Outcome{}, err
	}
	return ir.Outcome{
		Case:   name,
		Result: ir.Object{"message": ir.String(err.Error())},
	}, nil
}

// persist journals one mutating call. Must be called with e.mu held.
func (e *Engine) persist(ctx context.Context, flowToken string, call ir.Call, out ir.Outcome, eff effect) (ir.Entry, error) {
	digest, err := StateDigest(e.reg)
	if err != nil {
		return ir.Entry{}, err
	}

	seq := e.clock.Next()
	id, err := ir.EntryID(flowToken, seq, call, out)
	if err != nil {
		e.clock.rollback(seq)
		return ir.Entry{}, err
	}
	entry := ir.Entry{
		ID:          id,
		Seq:         seq,
		FlowToken:   flowToken,
		Call:        call,
		Outcome:     out,
		StateDigest: digest,
	}

	commit := store.Commit{
		Entry:     entry,
		NextID:    e.reg.NextID(),
		LastEpoch: e.reg.LastEpoch(),
		Deletes:   eff.deletes,
	}
	if out.OK() {
		for _, tid := range eff.upserts {
			rec, err := e.reg.Record(tid)
			if err != nil {
				e.clock.rollback(seq)
				return ir.Entry{}, fmt.Errorf("persist: %w", err)
			}
			commit.Upserts = append(commit.Upserts, rec)
		}
	}

	if err := e.store.Commit(ctx, commit); err != nil {
		e.clock.rollback(seq)
		return ir.Entry{}, err
	}
	return entry, nil
}

// reload replaces the in-memory registry with the persisted one.
func (e *Engine) reload(ctx context.Context) error {
	reg, err := loadRegistry(ctx, e.store)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	e.reg = reg
	return nil
}

// Registry returns a detached copy of the hosted registry for inspection.
// Mutating the copy has no effect on the engine.
func (e *Engine) Registry() *registry.Registry {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Restore of a State taken from a live registry cannot fail.
	reg, _ := registry.Restore(e.reg.State())
	return reg
}

// State returns a snapshot of the hosted registry.
func (e *Engine) State() registry.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.State()
}

// Seq returns the last journal seq.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// Journal returns every journal entry ordered by seq.
func (e *Engine) Journal(ctx context.Context) ([]ir.Entry, error) {
	return e.store.ReadJournal(ctx)
}
