package registry

import "fmt"

// State is a complete, detached copy of a registry. It is what the store
// persists and what Restore rebuilds from.
type State struct {
	Collection Collection
	Policy     Policy
	NextID     TokenID
	LastEpoch  Epoch
	Records    []Record // ascending id order
}

// State returns a detached snapshot.
func (r *Registry) State() State {
	return State{
		Collection: r.collection,
		Policy:     r.Policy(),
		NextID:     r.nextID,
		LastEpoch:  r.lastEpoch,
		Records:    r.Records(),
	}
}

// Restore rebuilds a registry from a snapshot, rejecting snapshots that
// violate the registry invariants.
func Restore(s State) (*Registry, error) {
	r, err := New(s.Collection, s.Policy)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if s.NextID == 0 {
		return nil, fmt.Errorf("restore: next id must be at least 1")
	}
	r.nextID = s.NextID
	r.lastEpoch = s.LastEpoch

	for _, rec := range s.Records {
		if rec.ID == 0 || rec.ID >= s.NextID {
			return nil, fmt.Errorf("restore: record id %d outside [1, %d)", rec.ID, s.NextID)
		}
		if _, dup := r.records[rec.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate record id %d", rec.ID)
		}
		if rec.Owner == "" {
			return nil, fmt.Errorf("restore: record %d has no owner", rec.ID)
		}
		if rec.Experience > MaxExperience {
			return nil, fmt.Errorf("restore: record %d experience above %d", rec.ID, MaxExperience)
		}
		rec := rec
		r.records[rec.ID] = &rec
		r.index(rec.Owner, rec.ID)
	}
	return r, nil
}
