// Package harness provides conformance testing for the AQL compiler.
//
// A scenario names one query snapshot, the exact text and bind variables
// it must compile to, and optional assertions. Every run also checks that
// compilation is idempotent and that the JSON snapshot round trip compiles
// to the same result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	query:                      # inline snapshot, or:
//	  variable: u
//	  source: users
//	  returnValue: {type: reference, name: u}
//	snapshot: path/to/q.cue     # .json, .yaml or .cue file
//	expect:
//	  lines:
//	    - FOR u IN users
//	    - RETURN u
//	  bindVars: {}
//	  params: []
//	assertions:
//	  - type: clause_order
//	    clauses: [FOR, RETURN]
//
// A scenario may instead expect a failure:
//
//	expect:
//	  error: OFFSET_WITHOUT_LIMIT   # or SERIALIZATION_ERROR
//
// # Assertion Types
//
//   - line_contains: some compiled line contains text
//   - not_contains: the query text does not contain text
//   - clause_order: clause keywords appear in the given order
//   - bind_count: a namespace has exactly count bind variables
//   - bind_var: one bind variable has the given value
//   - stored: the query survives a save, load and restore through the
//     snapshot store
//
// # Deterministic Testing
//
// Compilation is a pure function of the query, so the compiled lines,
// bind variables and fingerprint of a scenario are stable and suitable for
// golden file comparison. Each run uses its own in-memory SQLite database.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/adults.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
