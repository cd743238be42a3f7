package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
)

// Search tool names the planner binds tasks to.
const (
	ToolFlightSearch = "flight_search"
	ToolHotelSearch  = "hotel_search"
	ToolRailSearch   = "rail_search"
	ToolPOISearch    = "poi_search"
)

// RulePlanner is a deterministic planner. It expands an understood intent
// into one tool-bound subtask per search category, skipping categories that
// already have an open task for the same destination.
type RulePlanner struct{}

// NewRulePlanner creates a rule-based planner agent
func NewRulePlanner() *RulePlanner {
	return &RulePlanner{}
}

// Plan proposes tool-bound search tasks for the trip the intake understood.
// Without a destination there is nothing to search for and the plan is empty.
func (a *RulePlanner) Plan(ctx context.Context, snap state.State, intake IntakeResult) (PlanResult, state.Diff, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	origin := intake.Origin
	if origin == "" {
		origin = snap.TravelInfo.Origin
	}
	destination := intake.Destination
	if destination == "" {
		destination = snap.TravelInfo.Destination
	}
	startDate := intake.StartDate
	if startDate == "" {
		startDate = snap.TravelInfo.StartDate
	}
	endDate := intake.EndDate
	if endDate == "" {
		endDate = snap.TravelInfo.EndDate
	}

	if destination == "" {
		logger.Debug().Msg("No destination known, nothing to plan")
		return PlanResult{}, state.Diff{}, nil
	}

	var tasks []state.Task

	if origin != "" && !hasOpenTask(snap, ToolFlightSearch, destination) {
		flight := state.NewTask(OriginPlanner, fmt.Sprintf("search flights %s to %s", origin, destination))
		flight.Tool = ToolFlightSearch
		flight.Priority = 8
		flight.Args = map[string]any{"origin": origin, "destination": destination}
		if startDate != "" {
			flight.Args["date"] = startDate
		}
		tasks = append(tasks, flight)
	}

	if origin != "" && !hasOpenTask(snap, ToolRailSearch, destination) {
		rail := state.NewTask(OriginPlanner, fmt.Sprintf("search rail connections %s to %s", origin, destination))
		rail.Tool = ToolRailSearch
		rail.Priority = 4
		rail.Args = map[string]any{"origin": origin, "destination": destination}
		if startDate != "" {
			rail.Args["date"] = startDate
		}
		tasks = append(tasks, rail)
	}

	if !hasOpenTask(snap, ToolHotelSearch, destination) {
		hotel := state.NewTask(OriginPlanner, "search hotels in "+destination)
		hotel.Tool = ToolHotelSearch
		hotel.Priority = 6
		hotel.Args = map[string]any{"destination": destination}
		if startDate != "" {
			hotel.Args["check_in"] = startDate
		}
		if endDate != "" {
			hotel.Args["check_out"] = endDate
		}
		tasks = append(tasks, hotel)
	}

	if !hasOpenTask(snap, ToolPOISearch, destination) {
		poi := state.NewTask(OriginPlanner, "find points of interest in "+destination)
		poi.Tool = ToolPOISearch
		poi.Priority = 2
		poi.Args = map[string]any{"destination": destination}
		if len(snap.UserProfile.Likes) > 0 {
			interests := make([]any, len(snap.UserProfile.Likes))
			for i, like := range snap.UserProfile.Likes {
				interests[i] = like
			}
			poi.Args["interests"] = interests
		}
		tasks = append(tasks, poi)
	}

	diff := state.NewDiff()
	for _, t := range tasks {
		diff.AddTask(t)
	}
	if intake.TaskID != "" {
		diff.SetTaskStatus(intake.TaskID, state.TaskInProgress)
	}

	logger.Debug().
		Int("tasks", len(tasks)).
		Str("destination", destination).
		Msg("Planner expanded intent")

	return PlanResult{Tasks: tasks}, *diff, nil
}

// hasOpenTask reports whether a non-terminal task already targets the same
// tool and destination.
func hasOpenTask(snap state.State, tool, destination string) bool {
	for _, t := range snap.Tasks {
		if t.Tool != tool || t.Status.Terminal() {
			continue
		}
		if dest, _ := t.Args["destination"].(string); dest == destination {
			return true
		}
	}
	return false
}
