package harness

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
	"github.com/roach88/aqlkit/internal/store"
)

// bindName splits a generated bind variable name into namespace and index.
var bindName = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Lines    []string // Compiled lines for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Lines) > 0 {
		fmt.Fprintf(&buf, "\nCompiled query:\n")
		for i, line := range e.Lines {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}

	return buf.String()
}

// assertLineContains checks that some compiled line contains the text.
func assertLineContains(result *Result, assertion Assertion) error {
	for _, line := range result.Lines {
		if strings.Contains(line, assertion.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLineContains,
		Expected: fmt.Sprintf("a line containing %q", assertion.Text),
		Actual:   "not found",
		Lines:    result.Lines,
	}
}

// assertNotContains checks that the query text never contains the text.
// Used to prove values were bound instead of inlined.
func assertNotContains(result *Result, assertion Assertion) error {
	if !strings.Contains(result.Query, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotContains,
		Expected: fmt.Sprintf("query text without %q", assertion.Text),
		Actual:   "found in query text",
		Lines:    result.Lines,
	}
}

// assertClauseOrder checks that the clause keywords appear in the given
// order. Clauses don't need to be consecutive (intervening lines are
// allowed). A keyword matches the first word of a line.
func assertClauseOrder(result *Result, assertion Assertion) error {
	next := 0
	for _, line := range result.Lines {
		if next == len(assertion.Clauses) {
			break
		}
		if keyword(line) == assertion.Clauses[next] {
			next++
		}
	}
	if next == len(assertion.Clauses) {
		return nil
	}

	found := make([]string, 0, len(result.Lines))
	for _, line := range result.Lines {
		found = append(found, keyword(line))
	}
	return &AssertionError{
		Type:     AssertClauseOrder,
		Expected: fmt.Sprintf("clauses in order %v", assertion.Clauses),
		Actual:   fmt.Sprintf("clauses %v (missing %s)", found, assertion.Clauses[next]),
		Lines:    result.Lines,
	}
}

func keyword(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// assertBindCount checks the number of generated bind variables in one
// namespace.
func assertBindCount(result *Result, assertion Assertion) error {
	count := 0
	for name := range result.BindVars {
		if m := bindName.FindStringSubmatch(name); m != nil && m[1] == assertion.Namespace {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertBindCount,
		Expected: fmt.Sprintf("%d %s bind variables", assertion.Count, assertion.Namespace),
		Actual:   fmt.Sprintf("%d", count),
		Lines:    result.Lines,
	}
}

// assertBindVar checks one bind variable's value. Integers and floats are
// not interchangeable.
func assertBindVar(result *Result, assertion Assertion, name string) error {
	want, err := nodeValue(&assertion.Value, name)
	if err != nil {
		return fmt.Errorf("bind_var %s: %w", assertion.Name, err)
	}

	got, ok := result.BindVars[assertion.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertBindVar,
			Expected: fmt.Sprintf("@%s = %v", assertion.Name, want),
			Actual:   "not bound",
			Lines:    result.Lines,
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertBindVar,
			Expected: fmt.Sprintf("@%s = %v (%T)", assertion.Name, want, want),
			Actual:   fmt.Sprintf("%v (%T)", got, got),
			Lines:    result.Lines,
		}
	}
	return nil
}

// assertStored saves the query, loads it back, restores the snapshot and
// checks that the restored query compiles to the same text, bind variables
// and fingerprint.
func assertStored(actx *AssertionContext) error {
	saved, _, err := actx.Store.Save(actx.Ctx, actx.Name, actx.Query)
	if err != nil {
		return fmt.Errorf("stored: save: %w", err)
	}
	loaded, err := actx.Store.Load(actx.Ctx, actx.Name)
	if err != nil {
		return fmt.Errorf("stored: load: %w", err)
	}
	if loaded.Fingerprint != saved.Fingerprint {
		return &AssertionError{
			Type:     AssertStored,
			Expected: "fingerprint " + saved.Fingerprint,
			Actual:   "fingerprint " + loaded.Fingerprint,
		}
	}

	restored, err := loaded.Restore()
	if err != nil {
		return fmt.Errorf("stored: %w", err)
	}
	again, err := queryaql.Compile(restored)
	if err != nil {
		return fmt.Errorf("stored: compile restored query: %w", err)
	}
	if diff := cmp.Diff(actx.Compiled, again); diff != "" {
		return &AssertionError{
			Type:     AssertStored,
			Expected: "restored query compiles identically",
			Actual:   diff,
			Lines:    actx.Compiled.Lines(),
		}
	}
	if again.Query != loaded.Query {
		return &AssertionError{
			Type:     AssertStored,
			Expected: loaded.Query,
			Actual:   again.Query,
		}
	}
	return nil
}

// AssertionContext provides the context needed for assertions.
type AssertionContext struct {
	Store    *store.Store
	Ctx      context.Context
	Name     string
	Query    *queryir.Query
	Compiled *queryaql.Result
}

// EvaluateAssertions runs all assertions against a result.
// Returns a slice of error messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLineContains:
			err = assertLineContains(result, assertion)
		case AssertNotContains:
			err = assertNotContains(result, assertion)
		case AssertClauseOrder:
			err = assertClauseOrder(result, assertion)
		case AssertBindCount:
			err = assertBindCount(result, assertion)
		case AssertBindVar:
			name := ""
			if actx != nil {
				name = actx.Name
			}
			err = assertBindVar(result, assertion, name)
		case AssertStored:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored requires database context", i)
			} else {
				err = assertStored(actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
