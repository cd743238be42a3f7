package agents

import (
	"context"

	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
)

// Agent origins recorded on tasks and audit events.
const (
	OriginIntake    = "intake"
	OriginPlanner   = "planner"
	OriginFollower  = "follower"
	OriginFinalizer = "finalizer"
)

// IntakeResult is what the intake agent understood from a user message.
type IntakeResult struct {
	TaskID      string `json:"task_id"`
	Intent      string `json:"intent"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// PlanResult carries the tool-bound tasks the planner proposed.
type PlanResult struct {
	Tasks []state.Task `json:"tasks"`
}

// TaskIDs returns the IDs of the planned tasks in plan order.
func (p PlanResult) TaskIDs() []string {
	ids := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		ids[i] = t.TaskID
	}
	return ids
}

// ReviewResult summarizes how the follower judged an iteration.
type ReviewResult struct {
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Notes     []string `json:"notes,omitempty"`
}

// Intake turns an inbound user message into recorded trip facts and an
// intent task. Agents receive value snapshots and return diffs; they never
// touch canonical state directly.
type Intake interface {
	Clarify(ctx context.Context, snap state.State, message string) (IntakeResult, state.Diff, error)
}

// Planner expands an understood intent into tool-bound subtasks.
type Planner interface {
	Plan(ctx context.Context, snap state.State, intake IntakeResult) (PlanResult, state.Diff, error)
}

// Follower reviews an executed iteration and proposes per-task status and
// result updates.
type Follower interface {
	Review(ctx context.Context, snap state.State, iteration taskrunner.Iteration) (ReviewResult, state.Diff, error)
}

// Finalizer closes out the loop, marking intent tasks terminal and rendering
// a plain-text summary for the user.
type Finalizer interface {
	Summarize(ctx context.Context, snap state.State, iteration taskrunner.Iteration) (string, state.Diff, error)
}
