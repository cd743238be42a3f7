package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
)

// RuleFinalizer is a deterministic finalizer. It closes out open intent
// tasks and renders a plain-text summary of the iteration.
type RuleFinalizer struct{}

// NewRuleFinalizer creates a rule-based finalizer agent
func NewRuleFinalizer() *RuleFinalizer {
	return &RuleFinalizer{}
}

// Summarize marks open intent tasks terminal and renders the user-facing
// summary. Intent tasks fail only when every search in the iteration failed.
func (a *RuleFinalizer) Summarize(ctx context.Context, snap state.State, iteration taskrunner.Iteration) (string, state.Diff, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	diff := state.NewDiff()

	outcome := state.TaskDone
	if iteration.Summary.Total > 0 && iteration.Summary.Completed == 0 {
		outcome = state.TaskFailed
	}
	closed := 0
	for _, t := range snap.Tasks {
		if t.AgentOrigin == OriginIntake && !t.Status.Terminal() {
			diff.SetTaskStatus(t.TaskID, outcome)
			closed++
		}
	}

	summary := renderSummary(snap, iteration)

	logger.Debug().
		Int("closed_intents", closed).
		Str("outcome", string(outcome)).
		Msg("Finalizer rendered summary")

	return summary, *diff, nil
}

func renderSummary(snap state.State, iteration taskrunner.Iteration) string {
	var b strings.Builder
	ti := snap.TravelInfo

	switch {
	case ti.Origin != "" && ti.Destination != "":
		fmt.Fprintf(&b, "Trip plan: %s to %s", ti.Origin, ti.Destination)
	case ti.Destination != "":
		fmt.Fprintf(&b, "Trip plan for %s", ti.Destination)
	default:
		b.WriteString("Trip plan")
	}
	switch {
	case ti.StartDate != "" && ti.EndDate != "":
		fmt.Fprintf(&b, " (%s to %s)", ti.StartDate, ti.EndDate)
	case ti.StartDate != "":
		fmt.Fprintf(&b, " (from %s)", ti.StartDate)
	}
	b.WriteString("\n")

	for i, res := range iteration.Results {
		label := res.TaskID
		if i < len(iteration.Tasks) {
			if tool := iteration.Tasks[i].Tool; tool != "" {
				label = tool
			} else if intent := iteration.Tasks[i].Intent; intent != "" {
				label = intent
			}
		}
		fmt.Fprintf(&b, "- %s: %s", label, res.Status)
		if n := optionCount(res.Output); n > 0 {
			fmt.Fprintf(&b, " (%d options)", n)
		}
		if res.Error != "" {
			fmt.Fprintf(&b, " (%s)", res.Error)
		}
		b.WriteString("\n")
	}

	if len(ti.POI) > 0 {
		fmt.Fprintf(&b, "Suggested sights: %s\n", strings.Join(ti.POI, ", "))
	}

	if iteration.Summary.Total == 0 {
		b.WriteString("No searches were run; tell me where you want to go.")
	} else {
		fmt.Fprintf(&b, "%d of %d searches completed.", iteration.Summary.Completed, iteration.Summary.Total)
	}

	return b.String()
}

// optionCount counts the result entries of a search output, whatever list
// the tool returned them under.
func optionCount(output any) int {
	m, ok := output.(map[string]any)
	if !ok {
		return 0
	}
	for _, key := range []string{"options", "points_of_interest"} {
		switch list := m[key].(type) {
		case []map[string]any:
			return len(list)
		case []any:
			return len(list)
		case []string:
			return len(list)
		}
	}
	return 0
}
