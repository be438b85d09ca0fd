package harness

import "github.com/roach88/rankvault/internal/ir"

// TraceEvent is one executed call as the harness saw it.
//
// Seq, ID and StateDigest come from the journal and are zero for read
// actions and for calls the engine rejected before dispatch.
type TraceEvent struct {
	Step        int       `json:"step"`
	Seq         int64     `json:"seq"`
	ID          string    `json:"id,omitempty"`
	Action      string    `json:"action"`
	Caller      string    `json:"caller"`
	Epoch       int64     `json:"epoch"`
	Args        ir.Object `json:"args"`
	Case        string    `json:"case"`
	Result      ir.Object `json:"result"`
	StateDigest string    `json:"state_digest,omitempty"`
}

// Journaled reports whether the event has a journal entry behind it.
func (e TraceEvent) Journaled() bool { return e.Seq > 0 }

// object renders the event for canonical serialization.
func (e TraceEvent) object() ir.Object {
	obj := ir.Object{
		"step":   ir.Int(e.Step),
		"seq":    ir.Int(e.Seq),
		"action": ir.String(e.Action),
		"caller": ir.String(e.Caller),
		"epoch":  ir.Int(e.Epoch),
		"args":   nonNil(e.Args),
		"case":   ir.String(e.Case),
		"result": nonNil(e.Result),
	}
	if e.ID != "" {
		obj["id"] = ir.String(e.ID)
	}
	if e.StateDigest != "" {
		obj["state_digest"] = ir.String(e.StateDigest)
	}
	return obj
}

func nonNil(o ir.Object) ir.Object {
	if o == nil {
		return ir.Object{}
	}
	return o
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause, assertion and the replay
	// check held.
	Pass bool `json:"pass"`

	// Trace holds every invoke step in order, reads included.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed check. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalDigest is the state digest after the last step.
	FinalDigest string `json:"final_digest"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends ev to the trace.
func (r *Result) addEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
