// Package agents defines the agent boundary of the planning loop and ships
// deterministic rule-based reference agents.
//
// Invariants:
// - Agents receive value snapshots of session state; canonical state is
//   reachable only through the session manager.
// - Agents return diffs describing what they want changed; they never apply
//   changes themselves.
// - The reference agents are deterministic: no model calls, no network.
//
// The four roles mirror the loop stages: Intake understands a message,
// Planner expands it into tool-bound tasks, Follower folds execution results
// back into the task list, Finalizer closes intents and renders a summary.
package agents
