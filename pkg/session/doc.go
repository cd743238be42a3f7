// Package session owns the canonical state of every travel-planning
// session and is the only place that state is mutated.
//
// Invariants:
// - All mutation goes through Commit; agents only ever see snapshots.
// - Commits for the same session are serialized by a bounded lock; a
//   commit that cannot acquire it within the lock timeout fails with
//   ErrBusy instead of blocking forever.
// - Merged state is persisted before the in-memory swap. If the store
//   write fails the canonical state is untouched.
// - Snapshots are deep copies and never alias canonical state.
//
// Usage:
//
//	mgr, _ := session.New(statestore.NewMemory())
//	st, _ := mgr.Load(ctx, "user-1")
//	diff := state.NewDiff().SetDestination("Lisbon")
//	st, _ = mgr.CommitWithContext(ctx, "user-1", *diff)
//	_ = st
package session
