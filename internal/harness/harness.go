package harness

import (
	"context"
	"fmt"

	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/store"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation and
// under a fixed session ID, so results are reproducible.
//
// Execution flow:
// 1. Load and validate the model
// 2. Explore it as a recorded session
// 3. Read the stored terminals back
// 4. Evaluate the assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context bounding the exploration.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	model, err := compiler.LoadValidModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return RunModel(ctx, scenario, model)
}

// RunModel executes scenario against an already compiled model.
// scenario.Model is recorded as the session's model path only.
func RunModel(ctx context.Context, scenario *Scenario, model *ir.Model) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	limits := engine.DefaultLimits()
	if scenario.Limits != nil {
		limits = *scenario.Limits
	}
	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = "scenario-" + scenario.Name
	}

	rec := &engine.Recorder{}
	sess, outcome, err := engine.ExploreSession(ctx, st, engine.NewFixedGenerator(sessionID),
		model, scenario.Model, limits, false, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to explore: %w", err)
	}

	result := NewResult()
	result.SessionID = sess.ID
	result.ModelHash = sess.ModelHash
	result.Outcome = outcome
	if rec.Terminals != nil {
		result.Terminals = rec.Terminals
	}

	stored, err := st.ReadSemistates(ctx, sess.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored terminals: %w", err)
	}
	result.StoredTerminals = int64(len(stored))

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}
