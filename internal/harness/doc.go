// Package harness runs YAML sync scenarios against a real engine session
// backed by an in-memory fake store.
//
// # Scenario Format
//
//	name: echo_of_local_write
//	description: "A same-value echo of a local write changes nothing"
//	document:
//	  protected: false
//	seed:
//	  - { row: 2, column: 3, value: hello }
//	  - { row: 7, column: 8, value: "42", encrypt_with: secret }
//	steps:
//	  - initialize: true
//	    expect_state: ready
//	  - edits:
//	      - { row: 1, column: 1, text: x }
//	  - remote: { type: update, row: 1, column: 1, value: x }
//	  - fail: { op: upsert, message: "backend down" }
//	  - supply_password: secret
//	    expect_error: invalid_state
//	expect:
//	  state: ready
//	  cells: { "R-1:C-1": x, "R-0:C-0": "" }
//	  upsert_batches: 1
//
// Each step performs exactly one action: initialize, supply_password,
// set_password, edits, remote, fail or dispose. A step may name the error
// class it expects (invalid_state, disposed, store, address or any) and
// the session state it must leave behind.
//
// Document fields default to grid-1 in guild-1. Values seeded or emitted
// with encrypt_with are encrypted under a key derived from that passphrase
// for the scenario's grid.
//
// # Determinism
//
// Storage ids minted by the fake store are sequential ("cell-1", ...),
// change events are stamped from testutil.DeterministicClock, and key
// derivation uses minimal cost parameters. A scenario produces the same
// Result on every run, so results can be compared to golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/echo.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
