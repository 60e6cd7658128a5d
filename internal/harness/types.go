package harness

import (
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/system"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	SessionID string        `json:"session_id"`
	ModelHash string        `json:"model_hash"`
	Outcome   engine.Result `json:"outcome"`

	// Terminals contains the terminal semistates in the order found.
	// Used for terminal assertions and golden comparison.
	Terminals []system.Semistate `json:"terminals"`

	// StoredTerminals is the number of terminal semistates read back
	// from the session store.
	StoredTerminals int64 `json:"stored_terminals"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Terminals: []system.Semistate{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
