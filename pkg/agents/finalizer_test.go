package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
)

func TestRuleFinalizer_ClosesIntentAndSummarizes(t *testing.T) {
	finalizer := NewRuleFinalizer()

	snap := state.NewTemplate()
	snap.TravelInfo.Origin = "Lisbon"
	snap.TravelInfo.Destination = "Tokyo"
	snap.TravelInfo.StartDate = "2026-03-10"
	snap.TravelInfo.EndDate = "2026-03-17"

	intent := state.NewTask(OriginIntake, "plan a trip")
	intent.TaskID = "t-intent"
	intent.Status = state.TaskInProgress
	flight := state.NewTask(OriginPlanner, "search flights")
	flight.TaskID = "t-flight"
	flight.Tool = ToolFlightSearch
	hotel := state.NewTask(OriginPlanner, "search hotels")
	hotel.TaskID = "t-hotel"
	hotel.Tool = ToolHotelSearch
	snap.Tasks = append(snap.Tasks, intent, flight, hotel)

	iteration := taskrunner.Iteration{
		Tasks: []state.Task{flight, hotel},
		Results: []taskrunner.TaskResult{
			{
				TaskID: "t-flight",
				Status: state.TaskDone,
				Output: map[string]any{"options": []any{"a", "b", "c"}},
			},
			{
				TaskID: "t-hotel",
				Status: state.TaskFailed,
				Error:  "tool exploded",
			},
		},
		Summary: taskrunner.Summary{Total: 2, Completed: 1, Failed: 1},
	}

	summary, diff, err := finalizer.Summarize(context.Background(), snap, iteration)

	require.NoError(t, err)
	assert.Contains(t, summary, "Trip plan: Lisbon to Tokyo")
	assert.Contains(t, summary, "(2026-03-10 to 2026-03-17)")
	assert.Contains(t, summary, "flight_search: done (3 options)")
	assert.Contains(t, summary, "hotel_search: failed")
	assert.Contains(t, summary, "1 of 2 searches completed.")

	require.Len(t, diff.Tasks, 1)
	assert.Equal(t, "t-intent", diff.Tasks[0].TaskID)
	require.NotNil(t, diff.Tasks[0].Status)
	assert.Equal(t, state.TaskDone, *diff.Tasks[0].Status)
}

func TestRuleFinalizer_AllFailedMarksIntentFailed(t *testing.T) {
	finalizer := NewRuleFinalizer()

	snap := state.NewTemplate()
	intent := state.NewTask(OriginIntake, "plan a trip")
	intent.TaskID = "t-intent"
	intent.Status = state.TaskInProgress
	snap.Tasks = append(snap.Tasks, intent)

	iteration := taskrunner.Iteration{
		Results: []taskrunner.TaskResult{
			{TaskID: "t-a", Status: state.TaskFailed, Error: "boom"},
			{TaskID: "t-b", Status: state.TaskFailed, Error: "boom"},
		},
		Summary: taskrunner.Summary{Total: 2, Completed: 0, Failed: 2},
	}

	_, diff, err := finalizer.Summarize(context.Background(), snap, iteration)

	require.NoError(t, err)
	require.Len(t, diff.Tasks, 1)
	assert.Equal(t, state.TaskFailed, *diff.Tasks[0].Status)
}

func TestRuleFinalizer_EmptyIteration(t *testing.T) {
	finalizer := NewRuleFinalizer()

	snap := state.NewTemplate()
	intent := state.NewTask(OriginIntake, "say hello")
	intent.TaskID = "t-intent"
	intent.Status = state.TaskInProgress
	snap.Tasks = append(snap.Tasks, intent)

	summary, diff, err := finalizer.Summarize(context.Background(), snap, taskrunner.Iteration{})

	require.NoError(t, err)
	assert.Contains(t, summary, "No searches were run")
	require.Len(t, diff.Tasks, 1)
	assert.Equal(t, state.TaskDone, *diff.Tasks[0].Status)
}

func TestRuleFinalizer_SuggestedSights(t *testing.T) {
	finalizer := NewRuleFinalizer()

	snap := state.NewTemplate()
	snap.TravelInfo.Destination = "Rome"
	snap.TravelInfo.POI = []string{"national museum", "food market hall"}

	summary, _, err := finalizer.Summarize(context.Background(), snap, taskrunner.Iteration{})

	require.NoError(t, err)
	assert.Contains(t, summary, "Trip plan for Rome")
	assert.Contains(t, summary, "Suggested sights: national museum, food market hall")
}
