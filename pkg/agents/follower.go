package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
)

// RuleFollower is a deterministic reflection agent. It folds execution
// results back into the task list and harvests structured travel data from
// successful searches.
type RuleFollower struct{}

// NewRuleFollower creates a rule-based follower agent
func NewRuleFollower() *RuleFollower {
	return &RuleFollower{}
}

// Review proposes status and result-metadata updates for every executed
// task. Failed tasks are noted but never block the rest of the iteration.
func (a *RuleFollower) Review(ctx context.Context, snap state.State, iteration taskrunner.Iteration) (ReviewResult, state.Diff, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	review := ReviewResult{}
	diff := state.NewDiff()

	for _, res := range iteration.Results {
		if res.TaskID == "" {
			continue
		}

		meta := map[string]any{
			"attempts":    res.Attempts,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Cached {
			meta["cached"] = true
		}
		if res.Output != nil {
			meta["result"] = res.Output
		}
		if res.Error != "" {
			meta["error"] = res.Error
		}

		diff.SetTaskStatus(res.TaskID, res.Status)
		diff.SetTaskMetadata(res.TaskID, meta)

		if res.Status == state.TaskDone {
			review.Completed++
			if poi := extractPOI(res.Output); len(poi) > 0 {
				diff.SetPOI(poi)
			}
		} else {
			review.Failed++
			review.Notes = append(review.Notes, fmt.Sprintf("%s: %s", taskLabel(snap, res.TaskID), res.Error))
		}
	}

	logger.Debug().
		Int("completed", review.Completed).
		Int("failed", review.Failed).
		Msg("Follower reviewed iteration")

	return review, *diff, nil
}

// taskLabel names a task for review notes, preferring its tool binding.
func taskLabel(snap state.State, taskID string) string {
	if t := snap.TaskByID(taskID); t != nil {
		if t.Tool != "" {
			return t.Tool
		}
		if t.Intent != "" {
			return t.Intent
		}
	}
	return taskID
}

// extractPOI pulls the points-of-interest list out of a search result.
// Results straight from the runner carry []string; results that went through
// a JSON round trip carry []any.
func extractPOI(output any) []string {
	m, ok := output.(map[string]any)
	if !ok {
		return nil
	}
	switch picks := m["points_of_interest"].(type) {
	case []string:
		return picks
	case []any:
		out := make([]string, 0, len(picks))
		for _, p := range picks {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
