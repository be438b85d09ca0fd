package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// Meta keys.
const (
	metaName          = "name"
	metaSymbol        = "symbol"
	metaBaseURI       = "base_uri"
	metaAdministrator = "administrator"
	metaPolicy        = "policy"
	metaNextID        = "next_id"
	metaLastEpoch     = "last_epoch"
	metaEngine        = "engine_version"
	metaJournal       = "journal_version"
)

// policyJSON is the stored form of registry.Policy. Field order is fixed, so
// encoding/json output is stable.
type policyJSON struct {
	EpochsPerDay     uint64   `json:"epochs_per_day"`
	ExperiencePerDay uint64   `json:"experience_per_day"`
	RankThresholds   []uint64 `json:"rank_thresholds"`
	RankUp           string   `json:"rank_up"`
	KillMerge        string   `json:"kill_merge"`
}

func marshalPolicy(p registry.Policy) (string, error) {
	thresholds := p.RankThresholds
	if thresholds == nil {
		thresholds = []uint64{}
	}
	data, err := json.Marshal(policyJSON{
		EpochsPerDay:     p.EpochsPerDay,
		ExperiencePerDay: p.ExperiencePerDay,
		RankThresholds:   thresholds,
		RankUp:           string(p.RankUp),
		KillMerge:        string(p.KillMerge),
	})
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	return string(data), nil
}

func unmarshalPolicy(data string) (registry.Policy, error) {
	var pj policyJSON
	if err := json.Unmarshal([]byte(data), &pj); err != nil {
		return registry.Policy{}, fmt.Errorf("unmarshal policy: %w", err)
	}
	return registry.Policy{
		EpochsPerDay:     pj.EpochsPerDay,
		ExperiencePerDay: pj.ExperiencePerDay,
		RankThresholds:   pj.RankThresholds,
		RankUp:           registry.ExperiencePolicy(pj.RankUp),
		KillMerge:        registry.MergePolicy(pj.KillMerge),
	}, nil
}

// marshalObject converts an ir.Object to canonical JSON TEXT for storage.
func marshalObject(what string, obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT, keeping integers exact.
func unmarshalObject(what, data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return obj, nil
}

// toSQL stores a uint64 counter bit-for-bit in an INTEGER column.
func toSQL(n uint64) int64 { return int64(n) }

// fromSQL reverses toSQL.
func fromSQL(n int64) uint64 { return uint64(n) }

func formatUint(n uint64) string { return strconv.FormatUint(n, 10) }

func parseUint(key, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
