// Package taskrunner executes batches of tool-bound tasks with a fixed worker pool.
//
// Invariants:
// - Every submitted task yields exactly one result carrying its task ID;
//   results are aligned index-for-index with the submitted batch.
// - Task failures are isolated: a failing task never cancels its siblings.
// - A batch always terminates: per-task timeouts bound each execution and the
//   batch timeout marks unfinished tasks as failed instead of awaiting them.
//
// Usage:
//
//	runner, err := taskrunner.New(tools, taskrunner.WithWorkers(4))
//	if err != nil {
//		return err
//	}
//	iteration := runner.Run(ctx, tasks)
//	for _, res := range iteration.Results {
//		fmt.Println(res.TaskID, res.Status)
//	}
package taskrunner
