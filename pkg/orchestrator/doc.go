// Package orchestrator drives one user message through the agent stages:
// Intake, Plan, Execute, Reflect, Finalize.
//
// The loop is the only component holding the full session manager. Agents
// receive value snapshots of session state and answer with diffs; after each
// proposing stage the loop commits the diff before the next stage starts, so
// every stage observes the previous one's writes. Contended commits are
// retried a bounded number of times; validation and persistence failures
// abort the remaining stages.
//
// Execution failures are data, not errors: a batch where tasks failed still
// reaches Reflect and Finalize, and the summary reports the failures.
package orchestrator
