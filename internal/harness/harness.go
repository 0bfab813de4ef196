package harness

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"

	"github.com/roach88/aqlkit/internal/params"
	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
	"github.com/roach88/aqlkit/internal/store"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	query    *queryir.Query
	compiled *queryaql.Result
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the query snapshot (inline or from file)
// 2. Compile it and compare against the expected error or text
// 3. Check that compiling twice gives the same result
// 4. Check that the JSON snapshot round trip compiles identically
// 5. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// a failed expectation is reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result := NewResult()

	q, err := scenario.load()
	if err != nil {
		if scenario.Expect.Error == ExpectSerializationError && queryir.IsSerializationError(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to load query: %w", err)
	}
	if scenario.Expect.Error == ExpectSerializationError {
		result.AddError("expected a serialization error, snapshot decoded")
		return result, nil
	}

	compiled, compileErr := queryaql.Compile(q)
	for _, ce := range queryir.ConfigurationErrors(compileErr) {
		result.ErrorCodes = append(result.ErrorCodes, string(ce.Code))
	}

	if scenario.Expect.Error != "" {
		checkExpectedError(result, scenario.Expect.Error, compileErr)
		return result, nil
	}
	if compileErr != nil {
		result.AddError(fmt.Sprintf("compile: %v", compileErr))
		return result, nil
	}

	result.Query = compiled.Query
	result.Lines = compiled.Lines()
	result.BindVars = compiled.BindVars
	if result.Fingerprint, err = compiled.Fingerprint(); err != nil {
		return nil, fmt.Errorf("failed to fingerprint: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{query: q, compiled: compiled}

	if err := h.checkExpect(scenario, result); err != nil {
		return nil, err
	}
	h.checkIdempotent(result)
	h.checkRoundTrip(result)

	actx := &AssertionContext{
		Store:    st,
		Ctx:      context.Background(),
		Name:     scenario.Name,
		Query:    q,
		Compiled: compiled,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	logrus.WithFields(logrus.Fields{
		"scenario": scenario.Name,
		"pass":     result.Pass,
		"errors":   len(result.Errors),
	}).Debug("ran scenario")

	return result, nil
}

func checkExpectedError(result *Result, code string, err error) {
	if err == nil {
		result.AddError(fmt.Sprintf("expected error %s, query compiled", code))
		return
	}
	if !queryir.HasCode(err, queryir.ConfigErrorCode(code)) {
		result.AddError(fmt.Sprintf("expected error %s, got: %v", code, err))
	}
}

// checkExpect compares compiled text, bind variables and parameters with
// the scenario's expect clause.
func (h *Harness) checkExpect(scenario *Scenario, result *Result) error {
	if diff := cmp.Diff(scenario.Expect.Lines, result.Lines); diff != "" {
		result.AddError(fmt.Sprintf("lines mismatch (-want +got):\n%s", diff))
	}

	if scenario.Expect.BindVars.Kind != 0 {
		want, err := nodeValue(&scenario.Expect.BindVars, scenario.Name)
		if err != nil {
			return fmt.Errorf("expect.bindVars: %w", err)
		}
		got := h.compiled.BindVars
		if got == nil {
			got = map[string]any{}
		}
		if diff := cmp.Diff(want, any(got)); diff != "" {
			result.AddError(fmt.Sprintf("bindVars mismatch (-want +got):\n%s", diff))
		}
	}

	if scenario.Expect.Params != nil {
		if diff := cmp.Diff(scenario.Expect.Params, params.FromQuery(h.query), cmpopts.EquateEmpty()); diff != "" {
			result.AddError(fmt.Sprintf("params mismatch (-want +got):\n%s", diff))
		}
	}
	return nil
}

// checkIdempotent compiles the query a second time.
func (h *Harness) checkIdempotent(result *Result) {
	again, err := queryaql.Compile(h.query)
	if err != nil {
		result.AddError(fmt.Sprintf("second compilation failed: %v", err))
		return
	}
	if diff := cmp.Diff(h.compiled, again); diff != "" {
		result.AddError(fmt.Sprintf("compilation is not idempotent (-first +second):\n%s", diff))
	}
}

// checkRoundTrip snapshots the query, restores it and compiles the copy.
func (h *Harness) checkRoundTrip(result *Result) {
	data, err := queryir.ToJSON(h.query)
	if err != nil {
		result.AddError(fmt.Sprintf("snapshot: %v", err))
		return
	}
	restored, err := queryir.FromJSON(data)
	if err != nil {
		result.AddError(fmt.Sprintf("restore snapshot: %v", err))
		return
	}
	again, err := queryaql.Compile(restored)
	if err != nil {
		result.AddError(fmt.Sprintf("compile restored snapshot: %v", err))
		return
	}
	if diff := cmp.Diff(h.compiled, again); diff != "" {
		result.AddError(fmt.Sprintf("snapshot round trip changed the compiled query (-original +restored):\n%s", diff))
	}
}
