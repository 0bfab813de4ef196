package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/loader"
	"github.com/roach88/aqlkit/internal/queryir"
)

// Scenario defines a conformance test scenario.
// A scenario compiles one query snapshot and checks the compiled text,
// the bind variables and any assertions against it.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is an inline query snapshot, written in YAML with the same
	// shape as the JSON snapshot encoding.
	Query yaml.Node `yaml:"query,omitempty"`

	// Snapshot is a path to a .json, .yaml or .cue snapshot file.
	// Relative paths are resolved from the scenario file location.
	// Exactly one of Query and Snapshot is set.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Expect specifies the expected compilation result.
	Expect Expect `yaml:"expect"`

	// Assertions validate the compiled query.
	// Supported types: line_contains, not_contains, clause_order,
	// bind_count, bind_var, stored
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies expected compiler output. Either Error or Lines is set.
type Expect struct {
	// Lines is the exact compiled text, one clause line per entry.
	Lines []string `yaml:"lines,omitempty"`

	// BindVars are the exact expected bind variables.
	// Integer and float values are distinguished (18 vs 18.0).
	BindVars yaml.Node `yaml:"bindVars,omitempty"`

	// Params lists the caller-supplied parameter names, in first-use order.
	Params []string `yaml:"params,omitempty"`

	// Error is an expected configuration error code (e.g. "MISSING_SOURCE")
	// or ExpectSerializationError.
	Error string `yaml:"error,omitempty"`
}

// ExpectSerializationError expects the snapshot itself to be rejected.
const ExpectSerializationError = "SERIALIZATION_ERROR"

// Assertion validates the compiled query.
type Assertion struct {
	// Type specifies the assertion type:
	// - "line_contains": some line contains Text
	// - "not_contains": the query text does not contain Text
	// - "clause_order": Clauses appear as line keywords in this order
	// - "bind_count": Namespace has exactly Count bind variables
	// - "bind_var": bind variable Name equals Value
	// - "stored": the query survives a store save/load/restore cycle
	Type string `yaml:"type"`

	// Text is the substring checked (used by line_contains, not_contains).
	Text string `yaml:"text,omitempty"`

	// Clauses is the expected keyword order (used by clause_order).
	Clauses []string `yaml:"clauses,omitempty"`

	// Namespace is the bind variable prefix (used by bind_count).
	Namespace string `yaml:"namespace,omitempty"`

	// Count is the expected number of bind variables (used by bind_count).
	Count int `yaml:"count,omitempty"`

	// Name is the bind variable name (used by bind_var).
	Name string `yaml:"name,omitempty"`

	// Value is the expected bind variable value (used by bind_var).
	Value yaml.Node `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertLineContains = "line_contains"
	AssertNotContains  = "not_contains"
	AssertClauseOrder  = "clause_order"
	AssertBindCount    = "bind_count"
	AssertBindVar      = "bind_var"
	AssertStored       = "stored"
)

// LoadScenario reads and parses a scenario YAML file.
// Snapshot paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the snapshot path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the snapshot path BEFORE validation
	if scenario.Snapshot != "" && !filepath.IsAbs(scenario.Snapshot) && basePath != "" {
		scenario.Snapshot = filepath.Join(basePath, scenario.Snapshot)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// SnapshotNotFoundError is returned when a scenario's snapshot file
// doesn't exist.
type SnapshotNotFoundError struct {
	Scenario     string
	ResolvedPath string
}

// Error implements the error interface.
func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q references snapshot %s which does not exist", e.Scenario, e.ResolvedPath)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	hasQuery := s.Query.Kind != 0
	if hasQuery == (s.Snapshot != "") {
		return fmt.Errorf("exactly one of query and snapshot is required")
	}
	if s.Snapshot != "" {
		if _, err := os.Stat(s.Snapshot); os.IsNotExist(err) {
			return &SnapshotNotFoundError{Scenario: s.Name, ResolvedPath: s.Snapshot}
		}
	}

	if s.Expect.Error == "" && len(s.Expect.Lines) == 0 {
		return fmt.Errorf("expect: lines or error is required")
	}
	if s.Expect.Error != "" && (len(s.Expect.Lines) > 0 || s.Expect.BindVars.Kind != 0) {
		return fmt.Errorf("expect: error excludes lines and bindVars")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLineContains, AssertNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertClauseOrder:
		if len(a.Clauses) == 0 {
			return fmt.Errorf("assertions[%d]: clauses list is required for clause_order", index)
		}
	case AssertBindCount:
		if a.Namespace == "" {
			return fmt.Errorf("assertions[%d]: namespace is required for bind_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for bind_count", index)
		}
	case AssertBindVar:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for bind_var", index)
		}
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for bind_var", index)
		}
	case AssertStored:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// load decodes the scenario's query from the inline node or the snapshot
// file.
func (s *Scenario) load() (*queryir.Query, error) {
	if s.Snapshot != "" {
		return loader.Load(s.Snapshot)
	}
	js, err := loader.NodeJSON(&s.Query, s.Name)
	if err != nil {
		return nil, err
	}
	return queryir.FromJSON(js)
}

// nodeValue converts a YAML node to a canonical value.
func nodeValue(n *yaml.Node, name string) (any, error) {
	js, err := loader.NodeJSON(n, name)
	if err != nil {
		return nil, err
	}
	return ir.DecodeValue(js)
}
