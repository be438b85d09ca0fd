package registry

import (
	"fmt"
	"math"
	"slices"
)

// Reference calibration. One day is 8640 epoch ticks in the reference
// environment, and a locked record accrues 100 experience per elapsed day.
const (
	DefaultEpochsPerDay     uint64 = 8640
	DefaultExperiencePerDay uint64 = 100
)

// MaxExperience is the experience ceiling of a record. Every counter must
// fit a journal integer, which is a signed 64-bit value.
const MaxExperience uint64 = math.MaxInt64

// addExperience returns cur+delta, or false when the sum passes MaxExperience.
func addExperience(cur, delta uint64) (uint64, bool) {
	if cur > MaxExperience || delta > MaxExperience-cur {
		return 0, false
	}
	return cur + delta, true
}

// DefaultRankThresholds is the experience needed to reach rank i+1.
// Rank 1 at 1000 is consistent with the reference scenario, where
// 1100 experience is enough for the first promotion.
var DefaultRankThresholds = []uint64{1000, 2500, 5000, 10000, 20000}

// ExperiencePolicy decides what rank-up does to experience.
type ExperiencePolicy string

const (
	// RetainExperience leaves experience untouched on rank-up.
	RetainExperience ExperiencePolicy = "retain"
	// ConsumeExperience subtracts the threshold on rank-up.
	ConsumeExperience ExperiencePolicy = "consume"
)

// MergePolicy decides what kill transfers to the receiver record.
type MergePolicy string

const (
	// MergeExperience adds the killed record's experience to the receiver.
	MergeExperience MergePolicy = "experience"
	// MergeNone only removes the killed record.
	MergeNone MergePolicy = "none"
)

// Policy holds the tunable progression rules.
type Policy struct {
	EpochsPerDay     uint64
	ExperiencePerDay uint64
	RankThresholds   []uint64
	RankUp           ExperiencePolicy
	KillMerge        MergePolicy
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{
		EpochsPerDay:     DefaultEpochsPerDay,
		ExperiencePerDay: DefaultExperiencePerDay,
		RankThresholds:   slices.Clone(DefaultRankThresholds),
		RankUp:           RetainExperience,
		KillMerge:        MergeExperience,
	}
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	if p.EpochsPerDay == 0 {
		return fmt.Errorf("policy: epochs per day must be positive")
	}
	if p.ExperiencePerDay > MaxExperience {
		return fmt.Errorf("policy: experience per day exceeds %d", MaxExperience)
	}
	if n := len(p.RankThresholds); n > 0 && p.RankThresholds[n-1] > MaxExperience {
		return fmt.Errorf("policy: rank threshold exceeds %d", MaxExperience)
	}
	for i := 1; i < len(p.RankThresholds); i++ {
		if p.RankThresholds[i] <= p.RankThresholds[i-1] {
			return fmt.Errorf("policy: rank thresholds must be strictly increasing (index %d)", i)
		}
	}
	switch p.RankUp {
	case RetainExperience, ConsumeExperience:
	default:
		return fmt.Errorf("policy: unknown rank-up policy %q", p.RankUp)
	}
	switch p.KillMerge {
	case MergeExperience, MergeNone:
	default:
		return fmt.Errorf("policy: unknown kill merge policy %q", p.KillMerge)
	}
	return nil
}

// Threshold returns the experience required to move from rank to rank+1.
// ok is false when rank is already the highest defined rank.
func (p Policy) Threshold(rank uint64) (uint64, bool) {
	if rank >= uint64(len(p.RankThresholds)) {
		return 0, false
	}
	return p.RankThresholds[rank], true
}

// ElapsedDays converts an epoch span into whole days by plain integer
// division. It returns 0 when now precedes start.
//
// Do not round here. Downstream expectations are calibrated against the
// literal formula, including its behaviour for long advances.
func (p Policy) ElapsedDays(start, now Epoch) uint64 {
	if now <= start {
		return 0
	}
	return uint64(now-start) / p.EpochsPerDay
}
