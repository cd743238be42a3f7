// Package state defines the shared travel-planning document and the merge
// engine that reconciles agent-proposed diffs into it.
//
// Invariants:
// - Merge is pure and deterministic: no I/O, no clock reads, inputs unchanged.
// - Applying the same diff twice equals applying it once.
// - Task IDs stay unique; diffs update existing tasks instead of duplicating.
// - Task status only moves forward: pending -> in_progress -> done/failed.
//
// Usage:
//
//	diff := state.NewDiff().
//		SetDestination("Tokyo").
//		AddTask(state.NewTask("planner", "find flights"))
//	next, err := state.Merge(cur, *diff)
package state
