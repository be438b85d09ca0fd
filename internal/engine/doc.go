// Package engine hosts a registry.Registry on a SQLite store.
//
// ARCHITECTURE:
//
// Single writer:
// Every call runs under one mutex. Dispatch, the state digest, the journal
// append and the record upserts happen together, so the journal order is
// the order in which state changed.
//
// Call flow:
//  1. Look up the action (actions.go); unknown actions are RuntimeErrors
//  2. Decode args and call the registry method
//  3. Classify the result into an outcome case (registry.Case)
//  4. Read actions return here
//  5. Mutating actions get the next seq and are committed atomically:
//     journal entry, touched records, meta counters
//
// Failed registry calls are journaled too. They change no state, so their
// state digest equals the previous entry's.
//
// CRITICAL PATTERNS:
//
// Logical clock:
// Journal entries are stamped from Clock, never from wall time. The Epoch
// Counter arrives with each call and is only checked, never advanced.
//
// Replay:
// Replay re-runs the journal from genesis through the same dispatch table
// and compares every outcome and digest. No special replay mode exists.
package engine
