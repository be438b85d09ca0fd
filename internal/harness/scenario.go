package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rankvault/internal/config"
	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/registry"
)

// Scenario defines a conformance scenario: a registry configuration, a flow
// of calls and epoch advances, and assertions over the resulting trace and
// persisted state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collection overrides fields of the default collection.
	Collection *CollectionOverride `yaml:"collection,omitempty"`

	// Policy overrides fields of the default policy.
	Policy *PolicyOverride `yaml:"policy,omitempty"`

	// Flow is executed in order against one engine.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	// FlowToken is an optional fixed flow token. Defaults to
	// "test-flow-default" so golden files stay comparable.
	FlowToken string `yaml:"flow_token,omitempty"`
}

// CollectionOverride replaces the non-empty fields of the default
// collection.
type CollectionOverride struct {
	Name          string `yaml:"name,omitempty"`
	Symbol        string `yaml:"symbol,omitempty"`
	BaseURI       string `yaml:"base_uri,omitempty"`
	Administrator string `yaml:"administrator,omitempty"`
}

// PolicyOverride replaces the set fields of the default policy.
type PolicyOverride struct {
	EpochsPerDay     *uint64  `yaml:"epochs_per_day,omitempty"`
	ExperiencePerDay *uint64  `yaml:"experience_per_day,omitempty"`
	RankThresholds   []uint64 `yaml:"rank_thresholds,omitempty"`
	RankUp           string   `yaml:"rank_up,omitempty"`
	KillMerge        string   `yaml:"kill_merge,omitempty"`
}

// FlowStep is either a call (Invoke set) or an epoch advance.
type FlowStep struct {
	// Invoke is the action name, e.g. "mint" or "lock".
	Invoke string `yaml:"invoke,omitempty"`

	// Caller is the identity making the call. Empty means the collection
	// administrator.
	Caller string `yaml:"caller,omitempty"`

	// Args are converted to ir values; floats and nulls are rejected.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect, when present, is checked against the actual outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// AdvanceDays moves the epoch counter by whole days of the policy.
	AdvanceDays int64 `yaml:"advance_days,omitempty"`

	// AdvanceEpochs moves the epoch counter by raw ticks.
	AdvanceEpochs int64 `yaml:"advance_epochs,omitempty"`
}

// IsAdvance reports whether the step moves the clock instead of calling.
func (s FlowStep) IsAdvance() bool {
	return s.Invoke == "" && (s.AdvanceDays != 0 || s.AdvanceEpochs != 0)
}

// ExpectClause specifies the expected outcome of a call.
type ExpectClause struct {
	// Case is the expected outcome case ("Success", "NotOwner", ...) or a
	// runtime error code such as "INVALID_ARGS".
	Case string `yaml:"case"`

	// Result is matched as a subset of the actual result object.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final persisted state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args narrows trace_contains (subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Case narrows trace_contains and trace_count to one outcome case.
	Case string `yaml:"case,omitempty"`

	// Count is the exact number of matching calls for trace_count.
	Count int `yaml:"count,omitempty"`

	// Actions is the expected call order for trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// ID selects the record for record_state and record_missing.
	ID uint64 `yaml:"id,omitempty"`

	// Expect holds record fields for record_state (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Value is the expected next id for next_id.
	Value uint64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordState   = "record_state"
	AssertRecordMissing = "record_missing"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertNextID        = "next_id"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// Config resolves the scenario's collection and policy against the
// defaults.
func (s *Scenario) Config() (config.Config, error) {
	cfg := config.Default()
	if c := s.Collection; c != nil {
		if c.Name != "" {
			cfg.Collection.Name = c.Name
		}
		if c.Symbol != "" {
			cfg.Collection.Symbol = c.Symbol
		}
		if c.BaseURI != "" {
			cfg.Collection.BaseURI = c.BaseURI
		}
		if c.Administrator != "" {
			cfg.Collection.Administrator = registry.Identity(c.Administrator)
		}
	}
	if p := s.Policy; p != nil {
		if p.EpochsPerDay != nil {
			cfg.Policy.EpochsPerDay = *p.EpochsPerDay
		}
		if p.ExperiencePerDay != nil {
			cfg.Policy.ExperiencePerDay = *p.ExperiencePerDay
		}
		if p.RankThresholds != nil {
			cfg.Policy.RankThresholds = slices.Clone(p.RankThresholds)
		}
		if p.RankUp != "" {
			cfg.Policy.RankUp = registry.ExperiencePolicy(p.RankUp)
		}
		if p.KillMerge != "" {
			cfg.Policy.KillMerge = registry.MergePolicy(p.KillMerge)
		}
	}
	if err := cfg.Policy.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.Config(); err != nil {
		return err
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step FlowStep) error {
	advance := step.AdvanceDays != 0 || step.AdvanceEpochs != 0
	switch {
	case step.Invoke == "" && !advance:
		return fmt.Errorf("flow[%d]: one of invoke, advance_days or advance_epochs is required", index)
	case step.Invoke != "" && advance:
		return fmt.Errorf("flow[%d]: invoke cannot be combined with an advance", index)
	case step.AdvanceDays < 0 || step.AdvanceEpochs < 0:
		return fmt.Errorf("flow[%d]: the epoch counter only moves forward", index)
	}
	if step.Invoke != "" {
		if !slices.Contains(engine.Actions(), step.Invoke) {
			return fmt.Errorf("flow[%d]: unknown action %q", index, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", index)
		}
	} else if step.Expect != nil || step.Args != nil || step.Caller != "" {
		return fmt.Errorf("flow[%d]: advance steps take no caller, args or expect", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRecordState:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for record_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record_state", index)
		}
	case AssertRecordMissing:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for record_missing", index)
		}
	case AssertNextID:
		if a.Value == 0 {
			return fmt.Errorf("assertions[%d]: value is required for next_id", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
