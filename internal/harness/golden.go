package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/aqlkit/internal/ir"
)

// CompiledSnapshot captures the compiler output for a scenario.
// Serialized as canonical JSON for deterministic comparison.
type CompiledSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Lines        []string       `json:"lines"`
	BindVars     map[string]any `json:"bindVars"`
	Fingerprint  string         `json:"fingerprint"`
}

// toCanonicalMap converts a CompiledSnapshot to a map[string]any for
// canonical JSON serialization.
func (s *CompiledSnapshot) toCanonicalMap() map[string]any {
	lines := make([]any, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = l
	}
	vars := make(map[string]any, len(s.BindVars))
	for k, v := range s.BindVars {
		vars[k] = v
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"lines":         lines,
		"bindVars":      vars,
		"fingerprint":   s.Fingerprint,
	}
}

// RunWithGolden executes a scenario and compares the compiled output
// against a golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// GoldenBytes renders the golden file content for a scenario result.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	snapshot := CompiledSnapshot{
		ScenarioName: scenarioName,
		Lines:        result.Lines,
		BindVars:     result.BindVars,
		Fingerprint:  result.Fingerprint,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}
