package harness

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Query is the compiled query text. Empty when compilation failed.
	Query string `json:"query,omitempty"`

	// Lines is Query split into its clause lines.
	Lines []string `json:"lines,omitempty"`

	// BindVars are the compiled bind variables.
	BindVars map[string]any `json:"bindVars,omitempty"`

	// Fingerprint identifies the compiled query and its bind variables.
	Fingerprint string `json:"fingerprint,omitempty"`

	// ErrorCodes lists the configuration error codes reported by the
	// compiler, in order.
	ErrorCodes []string `json:"errorCodes,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
