package harness

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rankvault/internal/ir"
)

// GoldenDir is where RunWithGolden keeps its fixtures, relative to the
// package under test. The CLI uses the same layout under a scenarios
// directory.
const GoldenDir = "testdata/golden"

// GoldenPath returns the golden file for the named scenario under
// scenariosDir.
func GoldenPath(scenariosDir, name string) string {
	return filepath.Join(scenariosDir, "golden", name+".golden")
}

// Snapshot renders a trace as canonical JSON for golden comparison.
//
// Entry ids and state digests are left out: they are checked by the replay
// step of Run, and keeping them out lets a golden file be read and edited
// by hand.
func Snapshot(scenarioName, flowToken string, result *Result) ([]byte, error) {
	trace := make(ir.Array, len(result.Trace))
	for i, ev := range result.Trace {
		ev.ID = ""
		ev.StateDigest = ""
		trace[i] = ev.object()
	}

	obj := ir.Object{
		"scenario_name": ir.String(scenarioName),
		"trace":         trace,
	}
	if flowToken != "" {
		obj["flow_token"] = ir.String(flowToken)
	}
	return ir.MarshalCanonical(obj)
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := assertGolden(t, scenario.Name, scenario.FlowToken, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden
// file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertGolden(t, scenarioName, "", result)
}

func assertGolden(t *testing.T, name, flowToken string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, flowToken, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
