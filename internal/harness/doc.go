// Package harness provides conformance testing for protocol models.
//
// The harness loads a CUE model, explores it as a recorded session and
// checks assertions about the outcome. Scenarios are executable contract
// tests: they pin down how many states an exploration visits and what the
// terminal states look like.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../models/ns.cue
//	limits:
//	  max_depth: 4
//	  max_runs: 6
//	assertions:
//	  - type: terminal_count
//	    min: 1
//	  - type: terminal_roles
//	    roles: [R, I_GOAL, I]
//	  - type: terminal_binding
//	    role: R
//	    label: "3"
//	    bound_to: I
//
// # Assertion Types
//
//   - state_count, terminal_count, pruned_count: exact (count) or minimum
//     (min) number of explored, terminal or pruned states
//   - stored_terminals: number of terminal states read back from the store
//   - terminal_roles: some terminal has exactly these run roles, in order
//   - terminal_binding: some terminal binds a labelled read of a role to a
//     send of another role
//   - terminal_message: some terminal has an event with this message
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite database under a fixed
// session ID (scenario.session_id or "scenario-<name>"). Exploration is
// deterministic, so snapshots can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/ab_direct.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
