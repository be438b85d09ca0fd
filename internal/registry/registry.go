package registry

import (
	"fmt"
	"slices"
	"strconv"
)

// Registry is the single consistent state machine over all Asset Records.
//
// INVARIANTS (hold after every call):
//   - nextID only increases; every live id is < nextID
//   - a freshly minted record is never owned by the administrator
//   - records and owned agree on ownership
//   - lastEpoch never decreases
type Registry struct {
	collection Collection
	policy     Policy

	nextID    TokenID
	lastEpoch Epoch
	records   map[TokenID]*Record
	owned     map[Identity]map[TokenID]struct{}
}

// New creates an empty registry. The first minted id is 1.
func New(c Collection, p Policy) (*Registry, error) {
	if c.Administrator == "" {
		return nil, fmt.Errorf("new registry: administrator is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("new registry: %w", err)
	}
	p.RankThresholds = slices.Clone(p.RankThresholds)
	return &Registry{
		collection: c,
		policy:     p,
		nextID:     1,
		records:    make(map[TokenID]*Record),
		owned:      make(map[Identity]map[TokenID]struct{}),
	}, nil
}

func (r *Registry) Name() string            { return r.collection.Name }
func (r *Registry) Symbol() string          { return r.collection.Symbol }
func (r *Registry) BaseURI() string         { return r.collection.BaseURI }
func (r *Registry) Administrator() Identity { return r.collection.Administrator }
func (r *Registry) Collection() Collection  { return r.collection }

// Policy returns a copy of the active progression policy.
func (r *Registry) Policy() Policy {
	p := r.policy
	p.RankThresholds = slices.Clone(p.RankThresholds)
	return p
}

// NextID returns the id the next mint will allocate.
func (r *Registry) NextID() TokenID { return r.nextID }

// CurrentTokenID returns the id counter as it stands after the last mint.
// The newest record is CurrentTokenID()-1; before any mint it is 1.
func (r *Registry) CurrentTokenID() TokenID { return r.nextID }

// LastEpoch returns the highest epoch observed by a successful call.
func (r *Registry) LastEpoch() Epoch { return r.lastEpoch }

// Len returns the number of live records.
func (r *Registry) Len() int { return len(r.records) }

// Record returns a copy of the record.
func (r *Registry) Record(id TokenID) (Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("record %d: %w", id, ErrUnknownRecord)
	}
	return *rec, nil
}

// OwnerOf returns the current owner of id.
func (r *Registry) OwnerOf(id TokenID) (Identity, error) {
	rec, ok := r.records[id]
	if !ok {
		return "", fmt.Errorf("owner of %d: %w", id, ErrUnknownRecord)
	}
	return rec.Owner, nil
}

// URI returns baseURI + id + ".json".
func (r *Registry) URI(id TokenID) (string, error) {
	if _, ok := r.records[id]; !ok {
		return "", fmt.Errorf("uri of %d: %w", id, ErrUnknownRecord)
	}
	return r.collection.BaseURI + strconv.FormatUint(uint64(id), 10) + ".json", nil
}

// LockRecord returns the raw availability flag (true = available).
func (r *Registry) LockRecord(id TokenID) (bool, error) {
	rec, ok := r.records[id]
	if !ok {
		return false, fmt.Errorf("lock record of %d: %w", id, ErrUnknownRecord)
	}
	return rec.Locked, nil
}

// BalanceOf returns the number of records held by owner.
func (r *Registry) BalanceOf(owner Identity) int {
	return len(r.owned[owner])
}

// TokensOf returns the ids held by owner in ascending order.
func (r *Registry) TokensOf(owner Identity) []TokenID {
	ids := make([]TokenID, 0, len(r.owned[owner]))
	for id := range r.owned[owner] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Records returns copies of all live records in ascending id order.
func (r *Registry) Records() []Record {
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// observe rejects calls whose epoch is older than one already seen.
// It does not record the epoch; commit does that once the call succeeds.
func (r *Registry) observe(env Env) error {
	if env.Epoch < r.lastEpoch {
		return fmt.Errorf("epoch %d < %d: %w", env.Epoch, r.lastEpoch, ErrEpochRegressed)
	}
	return nil
}

func (r *Registry) commit(env Env) {
	if env.Epoch > r.lastEpoch {
		r.lastEpoch = env.Epoch
	}
}

func (r *Registry) index(owner Identity, id TokenID) {
	set, ok := r.owned[owner]
	if !ok {
		set = make(map[TokenID]struct{})
		r.owned[owner] = set
	}
	set[id] = struct{}{}
}

func (r *Registry) unindex(owner Identity, id TokenID) {
	set := r.owned[owner]
	delete(set, id)
	if len(set) == 0 {
		delete(r.owned, owner)
	}
}
