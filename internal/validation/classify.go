package validation

import (
	"net/http"
	"strings"
)

// FieldError is the client-facing form of an Outcome.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the aggregated outcome of validating one request. Status is
// http.StatusBadRequest or http.StatusUnprocessableEntity, or zero when there
// were no failures.
type Result struct {
	Status int
	Errors []FieldError
}

// OK reports whether validation passed.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Err returns nil when validation passed and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Result: r}
}

// Classify aggregates per-field outcomes. Any syntactic outcome makes the
// whole request a 400; only all-semantic requests are 422.
func Classify(outcomes []Outcome) Result {
	if len(outcomes) == 0 {
		return Result{}
	}

	status := http.StatusUnprocessableEntity
	errs := make([]FieldError, len(outcomes))
	for i, o := range outcomes {
		if o.ResolvedKind() == Syntactic {
			status = http.StatusBadRequest
		}
		errs[i] = FieldError{Field: o.Field, Message: o.Message}
	}
	return Result{Status: status, Errors: errs}
}

// Error wraps a failed Result so it can travel as an error.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Result.Errors))
	for i, fe := range e.Result.Errors {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Report collects outcomes for one request.
type Report struct {
	outcomes []Outcome
}

// Add records an outcome.
func (r *Report) Add(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns the recorded outcomes in insertion order.
func (r *Report) Outcomes() []Outcome {
	return r.outcomes
}

// Empty reports whether nothing was recorded.
func (r *Report) Empty() bool {
	return len(r.outcomes) == 0
}

// Result classifies the recorded outcomes.
func (r *Report) Result() Result {
	return Classify(r.outcomes)
}
