package registry

import "fmt"

// Mint creates a record owned by recipient and returns its id.
//
// The administrator can never be the recipient. The new record starts
// available with zero experience, zero rank and no pending lock days.
func (r *Registry) Mint(env Env, recipient Identity, name string) (TokenID, error) {
	if err := r.observe(env); err != nil {
		return 0, fmt.Errorf("mint: %w", err)
	}
	if recipient == "" || recipient == r.collection.Administrator {
		return 0, fmt.Errorf("mint to %q: %w", recipient, ErrInvalidRecipient)
	}

	id := r.nextID
	r.nextID++
	r.records[id] = &Record{
		ID:     id,
		Owner:  recipient,
		Name:   name,
		Locked: true,
	}
	r.index(recipient, id)
	r.commit(env)
	return id, nil
}

// Transfer moves id from from to to. from must match the stored owner;
// whether the caller may act for from is decided outside the registry.
func (r *Registry) Transfer(env Env, from, to Identity, id TokenID) error {
	if err := r.observe(env); err != nil {
		return fmt.Errorf("transfer %d: %w", id, err)
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("transfer %d: %w", id, ErrUnknownRecord)
	}
	if rec.Owner != from {
		return fmt.Errorf("transfer %d from %q: %w", id, from, ErrNotOwner)
	}
	if to == "" {
		return fmt.Errorf("transfer %d: %w", id, ErrInvalidRecipient)
	}

	r.unindex(from, id)
	rec.Owner = to
	r.index(to, id)
	r.commit(env)
	return nil
}

// Lock starts a lock of days on id at env.Epoch.
//
// Calling Lock on a record that is already locked flips it back to
// available instead of re-locking. This toggle is relied on by callers as an
// early release and must stay.
func (r *Registry) Lock(env Env, id TokenID, days uint64) error {
	if err := r.observe(env); err != nil {
		return fmt.Errorf("lock %d: %w", id, err)
	}
	if id == 0 {
		return fmt.Errorf("lock: %w", ErrInvalidTokenID)
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("lock %d: %w", id, ErrUnknownRecord)
	}
	if days == 0 {
		return fmt.Errorf("lock %d: %w", id, ErrInvalidDuration)
	}

	if !rec.Locked {
		rec.Locked = true
	} else {
		rec.Locked = false
		rec.LockStartEpoch = env.Epoch
		rec.DaysToLock = days
	}
	r.commit(env)
	return nil
}

// Unlock releases id once the full lock period has elapsed.
func (r *Registry) Unlock(env Env, id TokenID) error {
	if err := r.observe(env); err != nil {
		return fmt.Errorf("unlock %d: %w", id, err)
	}
	if id == 0 {
		return fmt.Errorf("unlock: %w", ErrInvalidTokenID)
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("unlock %d: %w", id, ErrUnknownRecord)
	}
	if rec.Owner != env.Caller {
		return fmt.Errorf("unlock %d by %q: %w", id, env.Caller, ErrNotOwner)
	}
	if rec.Locked {
		return fmt.Errorf("unlock %d: %w", id, ErrNotLocked)
	}
	elapsed := r.policy.ElapsedDays(rec.LockStartEpoch, env.Epoch)
	if elapsed < rec.DaysToLock {
		return fmt.Errorf("unlock %d: %d of %d days elapsed: %w", id, elapsed, rec.DaysToLock, ErrLockNotExpired)
	}

	rec.Locked = true
	r.commit(env)
	return nil
}

// AddExperience credits amount to id.
func (r *Registry) AddExperience(env Env, id TokenID, amount uint64) error {
	if err := r.observe(env); err != nil {
		return fmt.Errorf("add experience %d: %w", id, err)
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("add experience %d: %w", id, ErrUnknownRecord)
	}
	if rec.Owner != env.Caller {
		return fmt.Errorf("add experience %d by %q: %w", id, env.Caller, ErrNotOwner)
	}
	exp, ok := addExperience(rec.Experience, amount)
	if !ok {
		return fmt.Errorf("add experience %d: %w", id, ErrExperienceOverflow)
	}

	rec.Experience = exp
	r.commit(env)
	return nil
}

// ClaimExperience converts the whole days elapsed since the lock started
// into experience and returns the number of days claimed.
//
// Claimed days are capped at DaysToLock. The lock start moves forward by the
// claimed days so that a later claim only counts newly elapsed days. A
// missing record reads as not locked.
func (r *Registry) ClaimExperience(env Env, id TokenID) (uint64, error) {
	if err := r.observe(env); err != nil {
		return 0, fmt.Errorf("claim experience %d: %w", id, err)
	}
	rec, ok := r.records[id]
	if !ok || rec.Locked {
		return 0, fmt.Errorf("claim experience %d: %w", id, ErrNotLocked)
	}
	if rec.Owner != env.Caller {
		return 0, fmt.Errorf("claim experience %d by %q: %w", id, env.Caller, ErrNotOwner)
	}

	days := min(r.policy.ElapsedDays(rec.LockStartEpoch, env.Epoch), rec.DaysToLock)
	exp := rec.Experience
	if days > 0 {
		if r.policy.ExperiencePerDay > MaxExperience/days {
			return 0, fmt.Errorf("claim experience %d: %w", id, ErrExperienceOverflow)
		}
		if exp, ok = addExperience(rec.Experience, days*r.policy.ExperiencePerDay); !ok {
			return 0, fmt.Errorf("claim experience %d: %w", id, ErrExperienceOverflow)
		}
	}

	rec.Experience = exp
	rec.DaysToLock -= days
	rec.LockStartEpoch += Epoch(days * r.policy.EpochsPerDay)
	r.commit(env)
	return days, nil
}

// RankUp promotes id by one rank when its experience meets the threshold
// for the next rank, and returns the new rank.
func (r *Registry) RankUp(env Env, id TokenID) (uint64, error) {
	if err := r.observe(env); err != nil {
		return 0, fmt.Errorf("rank up %d: %w", id, err)
	}
	rec, ok := r.records[id]
	if !ok {
		return 0, fmt.Errorf("rank up %d: %w", id, ErrUnknownRecord)
	}
	if rec.Owner != env.Caller {
		return 0, fmt.Errorf("rank up %d by %q: %w", id, env.Caller, ErrNotOwner)
	}
	threshold, ok := r.policy.Threshold(rec.Rank)
	if !ok {
		return 0, fmt.Errorf("rank up %d at rank %d: %w", id, rec.Rank, ErrMaxRank)
	}
	if rec.Experience < threshold {
		return 0, fmt.Errorf("rank up %d: have %d, need %d: %w", id, rec.Experience, threshold, ErrInsufficientExperience)
	}

	rec.Rank++
	if r.policy.RankUp == ConsumeExperience {
		rec.Experience -= threshold
	}
	r.commit(env)
	return rec.Rank, nil
}

// Kill permanently removes id and folds its value into receiverID according
// to the merge policy. The id is never reused.
func (r *Registry) Kill(env Env, id, receiverID TokenID) error {
	if err := r.observe(env); err != nil {
		return fmt.Errorf("kill %d: %w", id, err)
	}
	src, ok := r.records[id]
	if id == 0 || !ok {
		return fmt.Errorf("kill %d: %w", id, ErrInvalidTokenID)
	}
	dst, ok := r.records[receiverID]
	if receiverID == 0 || !ok || receiverID == id {
		return fmt.Errorf("kill %d into %d: %w", id, receiverID, ErrInvalidReceiverTokenID)
	}
	merged := dst.Experience
	if r.policy.KillMerge == MergeExperience {
		if merged, ok = addExperience(dst.Experience, src.Experience); !ok {
			return fmt.Errorf("kill %d into %d: %w", id, receiverID, ErrExperienceOverflow)
		}
	}

	dst.Experience = merged
	r.unindex(src.Owner, id)
	delete(r.records, id)
	r.commit(env)
	return nil
}

// Burn is permanently disabled. It never touches state.
func (r *Registry) Burn(_ Env, id TokenID) error {
	return fmt.Errorf("burn %d: %w", id, ErrBurnDisabled)
}
