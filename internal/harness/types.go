package harness

import "github.com/roach88/catalog/internal/model"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step     int               `json:"step"`
	Op       string            `json:"op"` // "submit", "merge" or "delete"
	Revision int64             `json:"revision,omitempty"`
	Keys     map[string]string `json:"keys,omitempty"`
	Touched  []string          `json:"touched,omitempty"`
	Error    string            `json:"error,omitempty"` // error code of a failed step
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and all assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Entities holds the final view of every bound key, following redirects.
	Entities map[string]*model.EntityView `json:"entities,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Entities: make(map[string]*model.EntityView),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
