// Package store provides SQLite-backed durable storage for a registry.
//
// Three tables:
//   - meta: collection identity, policy, next id and the epoch watermark
//   - records: live Asset Records, one row each, deleted on kill
//   - journal: append-only log of every call and its outcome case
//
// # Logical Time
//
// The journal is ordered by seq, a logical clock owned by the engine. Wall
// time is never stored, so replaying a journal is deterministic.
//
// # Atomicity
//
// Commit writes the journal row, the touched records and the meta counters
// in one transaction. A crash leaves either all of a call or none of it.
//
// # Counters
//
// Registry counters are uint64 and SQLite integers are int64. Counters are
// stored bit-for-bit as int64 and converted back on read, so values above
// MaxInt64 survive a round trip even though they read as negative in SQL.
//
// Journal args and results are RFC 8785 canonical JSON produced by
// internal/ir.
package store
