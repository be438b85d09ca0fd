package ir

// Call is one request into the registry, as recorded in the journal.
type Call struct {
	Action string `json:"action"` // "mint", "lock", ...
	Caller string `json:"caller"`
	Epoch  int64  `json:"epoch"` // Epoch Counter value supplied by the environment
	Args   Object `json:"args"`
}

// Outcome is the classified result of a Call. Case is "Success" or the
// name of a registry failure kind ("NotOwner", "LockNotExpired", ...).
type Outcome struct {
	Case   string `json:"case"`
	Result Object `json:"result"`
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool { return o.Case == "Success" }

// Entry is one journal row. Failed calls are journaled too, so replay sees
// exactly what callers saw.
type Entry struct {
	ID          string  `json:"id"`  // content-addressed, see EntryID
	Seq         int64   `json:"seq"` // journal logical clock, never wall time
	FlowToken   string  `json:"flow_token"`
	Call        Call    `json:"call"`
	Outcome     Outcome `json:"outcome"`
	StateDigest string  `json:"state_digest"` // digest of registry state after the call
}
