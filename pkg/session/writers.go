package session

import (
	"context"

	"github.com/wayfarerhq/wayfarer/pkg/state"
)

// AddTask commits a single new task to the session. A task without an id
// is assigned one; the assigned task is findable in the returned state.
func (m *Manager) AddTask(ctx context.Context, sessionID string, task state.Task) (state.State, error) {
	if task.TaskID == "" {
		task.TaskID = state.NewTaskID()
	}
	if task.Status == "" {
		task.Status = state.TaskPending
	}

	diff := state.NewDiff().AddTask(task)
	return m.CommitWithContext(ctx, sessionID, *diff)
}

// UpdateTravelInfo commits a travel-only diff to the session
func (m *Manager) UpdateTravelInfo(ctx context.Context, sessionID string, travel state.TravelDiff) (state.State, error) {
	diff := state.Diff{Travel: &travel}
	return m.CommitWithContext(ctx, sessionID, diff)
}

// UpdateUserProfile commits a profile-only diff to the session
func (m *Manager) UpdateUserProfile(ctx context.Context, sessionID string, profile state.ProfileDiff) (state.State, error) {
	diff := state.Diff{Profile: &profile}
	return m.CommitWithContext(ctx, sessionID, diff)
}
