package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
)

var (
	// Capitalized word runs after "from"/"to" markers. Dates never match
	// because they do not start with a capital letter.
	originPattern      = regexp.MustCompile(`\b[Ff]rom\s+([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*)`)
	destinationPattern = regexp.MustCompile(`\b[Tt]o\s+([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*)`)
	datePattern        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// RuleIntake is a deterministic intake agent. It pattern-matches trip facts
// out of the message and records the message itself as a pending intent task.
type RuleIntake struct{}

// NewRuleIntake creates a rule-based intake agent
func NewRuleIntake() *RuleIntake {
	return &RuleIntake{}
}

// Clarify extracts origin, destination and travel dates from the message and
// proposes them together with a new intent task. Fields the message does not
// mention are left untouched in the diff; the result falls back to what the
// session already knows so downstream agents see the best current picture.
func (a *RuleIntake) Clarify(ctx context.Context, snap state.State, message string) (IntakeResult, state.Diff, error) {
	intent := strings.TrimSpace(message)
	if intent == "" {
		return IntakeResult{}, state.Diff{}, fmt.Errorf("message cannot be empty")
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)

	diff := state.NewDiff()
	result := IntakeResult{Intent: intent}

	if m := originPattern.FindStringSubmatch(intent); m != nil {
		result.Origin = m[1]
		diff.SetOrigin(m[1])
	}
	if m := destinationPattern.FindStringSubmatch(intent); m != nil {
		result.Destination = m[1]
		diff.SetDestination(m[1])
	}

	dates := datePattern.FindAllString(intent, 2)
	if len(dates) > 0 {
		result.StartDate = dates[0]
		diff.SetStartDate(dates[0])
	}
	if len(dates) > 1 {
		result.EndDate = dates[1]
		diff.SetEndDate(dates[1])
	}

	if result.Origin == "" {
		result.Origin = snap.TravelInfo.Origin
	}
	if result.Destination == "" {
		result.Destination = snap.TravelInfo.Destination
	}
	if result.StartDate == "" {
		result.StartDate = snap.TravelInfo.StartDate
	}
	if result.EndDate == "" {
		result.EndDate = snap.TravelInfo.EndDate
	}

	task := state.NewTask(OriginIntake, intent)
	diff.AddTask(task)
	result.TaskID = task.TaskID

	logger.Debug().
		Str("task_id", task.TaskID).
		Str("origin", result.Origin).
		Str("destination", result.Destination).
		Str("start_date", result.StartDate).
		Str("end_date", result.EndDate).
		Msg("Intake parsed message")

	return result, *diff, nil
}
