package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
	"github.com/roach88/rankvault/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n",
				event.Step, event.Action, ir.ToAny(nonNil(event.Args)), event.Case)
		}
	}

	return buf.String()
}

// matchesCall reports whether event is a call to action whose args contain
// want and, when wantCase is set, whose outcome case equals it.
func matchesCall(event TraceEvent, action, wantCase string, want ir.Object) bool {
	if event.Action != action {
		return false
	}
	if wantCase != "" && event.Case != wantCase {
		return false
	}
	_, ok := matchSubset(event.Args, want)
	return ok
}

// assertTraceContains checks that some call matches the action, optional
// case and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := ir.ObjectFromMap(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains args: %w", err)
	}
	for _, event := range trace {
		if matchesCall(event, assertion.Action, assertion.Case, want) {
			return nil
		}
	}

	expected := fmt.Sprintf("action %s with args %v", assertion.Action, ir.ToAny(want))
	if assertion.Case != "" {
		expected += " and case " + assertion.Case
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions appear in the given order.
// Intervening calls are allowed and an action may be listed more than once.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, action := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Action == action {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   fmt.Sprintf("no %s after the preceding actions", action),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count calls match the action and the
// optional case.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchesCall(event, assertion.Action, assertion.Case, nil) {
			count++
		}
	}

	if count != assertion.Count {
		what := assertion.Action
		if assertion.Case != "" {
			what += " (" + assertion.Case + ")"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertRecordState reads the record from the store, not the engine, so the
// assertion also covers persistence.
func assertRecordState(ctx context.Context, st *store.Store, assertion Assertion) error {
	want, err := ir.ObjectFromMap(assertion.Expect)
	if err != nil {
		return fmt.Errorf("record_state expect: %w", err)
	}

	rec, found, err := st.ReadRecord(ctx, registry.TokenID(assertion.ID))
	if err != nil {
		return fmt.Errorf("record_state: %w", err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertRecordState,
			Expected: fmt.Sprintf("record %d", assertion.ID),
			Actual:   "record not found",
		}
	}

	got := engine.RecordObject(rec)
	if key, ok := matchSubset(got, want); !ok {
		return &AssertionError{
			Type:     AssertRecordState,
			Expected: fmt.Sprintf("record %d field %q = %v", assertion.ID, key, ir.ToAny(want[key])),
			Actual:   fmt.Sprintf("record %d field %q = %v", assertion.ID, key, describe(got, key)),
		}
	}
	return nil
}

func assertRecordMissing(ctx context.Context, st *store.Store, assertion Assertion) error {
	rec, found, err := st.ReadRecord(ctx, registry.TokenID(assertion.ID))
	if err != nil {
		return fmt.Errorf("record_missing: %w", err)
	}
	if found {
		return &AssertionError{
			Type:     AssertRecordMissing,
			Expected: fmt.Sprintf("no record %d", assertion.ID),
			Actual:   fmt.Sprintf("record %d owned by %q", rec.ID, rec.Owner),
		}
	}
	return nil
}

func assertNextID(ctx context.Context, st *store.Store, assertion Assertion) error {
	state, err := st.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("next_id: %w", err)
	}
	if uint64(state.NextID) != assertion.Value {
		return &AssertionError{
			Type:     AssertNextID,
			Expected: fmt.Sprintf("next id %d", assertion.Value),
			Actual:   fmt.Sprintf("next id %d", state.NextID),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertRecordState, AssertRecordMissing, AssertNextID:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertRecordState:
				err = assertRecordState(actx.Ctx, actx.Store, assertion)
			case AssertRecordMissing:
				err = assertRecordMissing(actx.Ctx, actx.Store, assertion)
			default:
				err = assertNextID(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
