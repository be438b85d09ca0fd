// Package ir provides the canonical value types and hashing used by the
// journal.
//
// This package imports nothing internal. Engine, store, harness and CLI all
// speak ir.Call / ir.Outcome / ir.Entry.
//
// Key design constraints:
//   - No floats and no null anywhere; counters are int64
//   - All JSON tags use snake_case
//   - Journal ordering uses the seq logical clock, never wall time
//   - Ids and digests are SHA-256 over RFC 8785 canonical JSON with
//     domain separation
package ir
