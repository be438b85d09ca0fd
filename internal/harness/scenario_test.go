package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rankvault/internal/registry"
)

const minimalYAML = `
name: minimal
description: one mint
flow:
  - invoke: mint
    args: {recipient: account_1, name: Solicy}
assertions:
  - type: next_id
    value: 2
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, "mint", s.Flow[0].Invoke)
	assert.Equal(t, "account_1", s.Flow[0].Args["recipient"])
	assert.Nil(t, s.Flow[0].Expect)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, uint64(2), s.Assertions[0].Value)
}

func TestParseScenario_AdvanceStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: advance
description: advance then call
flow:
  - advance_days: 2
  - advance_epochs: 10
  - invoke: currentTokenId
assertions:
  - type: trace_count
    action: currentTokenId
    count: 1
`))
	require.NoError(t, err)

	assert.True(t, s.Flow[0].IsAdvance())
	assert.Equal(t, int64(2), s.Flow[0].AdvanceDays)
	assert.True(t, s.Flow[1].IsAdvance())
	assert.False(t, s.Flow[2].IsAdvance())
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nflows: []\n",
			wantErr: "field flows not found",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nflow: [{invoke: mint}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nflow: [{invoke: mint}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: x\ndescription: y\nflow: []\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "flow list is required",
		},
		{
			name:    "empty assertions",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown action",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: lockToken}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: `unknown action "lockToken"`,
		},
		{
			name:    "empty step",
			yaml:    "name: x\ndescription: y\nflow: [{caller: a}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "one of invoke, advance_days or advance_epochs is required",
		},
		{
			name:    "invoke with advance",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint, advance_days: 1}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "cannot be combined",
		},
		{
			name:    "negative advance",
			yaml:    "name: x\ndescription: y\nflow: [{advance_epochs: -1}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "only moves forward",
		},
		{
			name:    "advance with caller",
			yaml:    "name: x\ndescription: y\nflow: [{advance_days: 1, caller: a}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "advance steps take no caller",
		},
		{
			name:    "expect without case",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint, expect: {result: {id: 1}}}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: "case is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint}]\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "record_state without expect",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint}]\nassertions: [{type: record_state, id: 1}]\n",
			wantErr: "expect is required for record_state",
		},
		{
			name:    "record_missing without id",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint}]\nassertions: [{type: record_missing}]\n",
			wantErr: "id is required for record_missing",
		},
		{
			name:    "trace_order without actions",
			yaml:    "name: x\ndescription: y\nflow: [{invoke: mint}]\nassertions: [{type: trace_order}]\n",
			wantErr: "actions list is required",
		},
		{
			name:    "invalid policy",
			yaml:    "name: x\ndescription: y\npolicy: {rank_up: hoard}\nflow: [{invoke: mint}]\nassertions: [{type: next_id, value: 1}]\n",
			wantErr: `unknown rank-up policy "hoard"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenarioConfig_Overrides(t *testing.T) {
	days := uint64(10)
	s := &Scenario{
		Collection: &CollectionOverride{Name: "Other", Administrator: "admin"},
		Policy: &PolicyOverride{
			EpochsPerDay:   &days,
			RankThresholds: []uint64{5, 50},
			RankUp:         "consume",
			KillMerge:      "none",
		},
	}

	cfg, err := s.Config()
	require.NoError(t, err)

	assert.Equal(t, "Other", cfg.Collection.Name)
	assert.Equal(t, "HNFT", cfg.Collection.Symbol)
	assert.Equal(t, registry.Identity("admin"), cfg.Collection.Administrator)
	assert.Equal(t, uint64(10), cfg.Policy.EpochsPerDay)
	assert.Equal(t, registry.DefaultExperiencePerDay, cfg.Policy.ExperiencePerDay)
	assert.Equal(t, []uint64{5, 50}, cfg.Policy.RankThresholds)
	assert.Equal(t, registry.ConsumeExperience, cfg.Policy.RankUp)
	assert.Equal(t, registry.MergeNone, cfg.Policy.KillMerge)
}

func TestScenarioConfig_Defaults(t *testing.T) {
	cfg, err := (&Scenario{}).Config()
	require.NoError(t, err)

	assert.Equal(t, "SolicyNFT", cfg.Collection.Name)
	assert.Equal(t, registry.Identity("owner"), cfg.Collection.Administrator)
	assert.Equal(t, registry.DefaultPolicy(), cfg.Policy)
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "golden/a.golden"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)

	files, err = FindScenarios(dir, "b*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, files)

	_, err = FindScenarios(dir, "[")
	require.Error(t, err)
}
