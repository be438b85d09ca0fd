// Package registry implements the asset lifecycle engine.
//
// A Registry holds every live Asset Record together with the id counter and
// the ownership index. It exposes mint, transfer, lock/unlock, experience
// accrual, rank-up, kill and the permanently disabled burn path.
//
// ARCHITECTURE:
//
// Pure State Machine:
// The registry performs no I/O and never reads a wall clock. Every call
// carries an Env holding the caller identity and the current epoch. All
// time-dependent effects (accrual, unlock eligibility) are computed lazily
// from the stored lock-start epoch and Env.Epoch.
//
// Atomic Calls:
// Each operation validates all of its preconditions before touching state.
// A call either applies fully or returns an error and leaves the registry
// exactly as it was.
//
// Serialization:
// A Registry is not safe for concurrent use. The hosting layer
// (internal/engine) serializes calls.
//
// Lock polarity:
// Record.Locked has inverted polarity, matching the persisted column:
// true means the record is available, false means it is locked. Use
// Record.State for the unambiguous LockState view.
package registry
