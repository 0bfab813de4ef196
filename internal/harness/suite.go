package harness

import (
	"fmt"

	"github.com/roach88/aqlkit/internal/loader"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Name         string `json:"name,omitempty"`
	Error        string `json:"error"`
}

// OK reports whether every scenario passed.
func (r *SuiteResult) OK() bool {
	return r.Failed == 0
}

// RunDir runs every scenario YAML file under dir.
//
// For each scenario file:
// 1. Load it, resolving its snapshot path from the file's directory
// 2. Run it via harness.Run
// 3. Collect and report results
//
// Returns an error only if dir cannot be scanned.
func RunDir(dir string) (*SuiteResult, error) {
	paths, err := loader.FindFiles(dir, ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	return RunFiles(paths), nil
}

// RunFiles runs the given scenario files in order.
func RunFiles(paths []string) *SuiteResult {
	result := &SuiteResult{}

	for _, scenarioPath := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(scenarioPath)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: scenarioPath,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: scenarioPath,
				Name:         scenario.Name,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if !runResult.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: scenarioPath,
				Name:         scenario.Name,
				Error:        fmt.Sprintf("scenario assertions failed: %v", runResult.Errors),
			})
			continue
		}

		result.Passed++
	}

	return result
}
