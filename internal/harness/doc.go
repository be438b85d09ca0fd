// Package harness runs YAML conformance scenarios against the registry.
//
// A scenario names a collection and policy (defaults from internal/config
// with optional overrides), a flow of calls and epoch advances, and
// assertions over the resulting trace and the persisted store. Every
// scenario runs the real engine on a fresh SQLite store with a fixed flow
// token and a hand-driven epoch counter, so its trace is deterministic and
// can be compared byte for byte with a golden file.
//
// Example scenario:
//
//	name: lock_unlock
//	description: a locked record can be released once its days have passed
//	flow:
//	  - invoke: mint
//	    args: {recipient: account_1, name: Solicy}
//	    expect: {case: Success, result: {id: 1}}
//	  - invoke: lock
//	    args: {id: 1, days: 1}
//	  - advance_days: 1
//	  - invoke: unlock
//	    caller: account_1
//	    args: {id: 1}
//	    expect: {case: Success}
//	assertions:
//	  - type: record_state
//	    id: 1
//	    expect: {state: available}
//
// Besides expect clauses and assertions, Run replays the journal from
// genesis and reports any divergence as a failure.
package harness
