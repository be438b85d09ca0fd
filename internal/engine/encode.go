package engine

import (
	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// RecordObject renders a record for results, traces and digests.
// Both the raw flag and the derived state are included.
func RecordObject(rec registry.Record) ir.Object {
	return ir.Object{
		"id":               ir.Uint(uint64(rec.ID)),
		"owner":            ir.String(rec.Owner),
		"name":             ir.String(rec.Name),
		"locked":           ir.Bool(rec.Locked),
		"state":            ir.String(rec.State().String()),
		"lock_start_epoch": ir.Uint(uint64(rec.LockStartEpoch)),
		"days_to_lock":     ir.Uint(rec.DaysToLock),
		"experience":       ir.Uint(rec.Experience),
		"rank":             ir.Uint(rec.Rank),
	}
}

// StateObject renders the mutable part of a registry state. Collection and
// policy are fixed at init and left out.
func StateObject(st registry.State) ir.Object {
	recs := make(ir.Array, len(st.Records))
	for i, rec := range st.Records {
		recs[i] = RecordObject(rec)
	}
	return ir.Object{
		"next_id":    ir.Uint(uint64(st.NextID)),
		"last_epoch": ir.Uint(uint64(st.LastEpoch)),
		"records":    recs,
	}
}

// StateDigest returns the content digest of a registry's current state.
func StateDigest(r *registry.Registry) (string, error) {
	return ir.StateDigest(StateObject(r.State()))
}
