package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wayfarerhq/wayfarer/internal/observability"
	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/agents"
	"github.com/wayfarerhq/wayfarer/pkg/session"
	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stages of one handled message, in order.
const (
	StageIntake   = "intake"
	StagePlan     = "plan"
	StageExecute  = "execute"
	StageReflect  = "reflect"
	StageFinalize = "finalize"
	StageDone     = "done"
)

const (
	// DefaultCommitRetries is how many times a contended commit is retried
	// after the first attempt.
	DefaultCommitRetries = 3
	// DefaultRetryBackoff is the base backoff between commit retries.
	DefaultRetryBackoff = 100 * time.Millisecond
	// DefaultTurnTimeout bounds one full pass through the stages.
	DefaultTurnTimeout = 5 * time.Minute
)

// Config wires the loop to its collaborators.
type Config struct {
	Sessions  *session.Manager
	Runner    *taskrunner.Runner
	Intake    agents.Intake
	Planner   agents.Planner
	Follower  agents.Follower
	Finalizer agents.Finalizer

	// CommitRetries caps retries of commits that lose the session lock.
	// Zero or negative uses DefaultCommitRetries.
	CommitRetries int
	// RetryBackoff is the base delay between commit retries, growing
	// linearly per attempt. Zero or negative uses DefaultRetryBackoff.
	RetryBackoff time.Duration
	// TurnTimeout bounds one HandleMessage pass. Zero or negative uses
	// DefaultTurnTimeout.
	TurnTimeout time.Duration
}

// Loop drives the stage machine for one session at a time per message:
// Intake, Plan, Execute, Reflect, Finalize. Agents only ever see value
// snapshots and answer with diffs; every diff lands through the session
// manager, so the loop is the single writer.
type Loop struct {
	sessions  *session.Manager
	runner    *taskrunner.Runner
	intake    agents.Intake
	planner   agents.Planner
	follower  agents.Follower
	finalizer agents.Finalizer

	commitRetries int
	retryBackoff  time.Duration
	turnTimeout   time.Duration
}

// Response is what one handled message returns to the caller.
type Response struct {
	SessionID string               `json:"session_id"`
	TraceID   string               `json:"trace_id"`
	Summary   string               `json:"summary"`
	Stage     string               `json:"stage"`
	Iteration taskrunner.Iteration `json:"iteration"`
	State     state.State          `json:"state"`
}

// New creates the orchestration loop from its collaborators.
func New(cfg Config) (*Loop, error) {
	observability.EnsureRegistered()

	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("task runner cannot be nil")
	}
	if cfg.Intake == nil {
		return nil, fmt.Errorf("intake agent cannot be nil")
	}
	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner agent cannot be nil")
	}
	if cfg.Follower == nil {
		return nil, fmt.Errorf("follower agent cannot be nil")
	}
	if cfg.Finalizer == nil {
		return nil, fmt.Errorf("finalizer agent cannot be nil")
	}

	l := &Loop{
		sessions:      cfg.Sessions,
		runner:        cfg.Runner,
		intake:        cfg.Intake,
		planner:       cfg.Planner,
		follower:      cfg.Follower,
		finalizer:     cfg.Finalizer,
		commitRetries: DefaultCommitRetries,
		retryBackoff:  DefaultRetryBackoff,
		turnTimeout:   DefaultTurnTimeout,
	}
	if cfg.CommitRetries > 0 {
		l.commitRetries = cfg.CommitRetries
	}
	if cfg.RetryBackoff > 0 {
		l.retryBackoff = cfg.RetryBackoff
	}
	if cfg.TurnTimeout > 0 {
		l.turnTimeout = cfg.TurnTimeout
	}

	log.Info().
		Int("commit_retries", l.commitRetries).
		Dur("retry_backoff", l.retryBackoff).
		Dur("turn_timeout", l.turnTimeout).
		Msg("Orchestrator loop initialized")

	return l, nil
}

// HandleMessage runs one user message through the full stage machine and
// returns the rendered summary together with the resulting session state.
// Failed tasks do not block advancement; structural failures (validation,
// lock contention after retries, persistence) abort the remaining stages.
func (l *Loop) HandleMessage(ctx context.Context, sessionID, message string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if message == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, l.turnTimeout)
	defer cancel()

	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	}
	ctx = tracing.WithSessionID(ctx, sessionID)

	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.orchestrator",
		"orchestrator.handle_message",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	start := time.Now()
	logger.Info().Int("message_len", len(message)).Msg("Message accepted")

	snap, err := l.sessions.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	intakeRes, snap, err := l.runIntake(ctx, sessionID, snap, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("intake failed: %w", err)
	}

	planRes, snap, err := l.runPlan(ctx, sessionID, snap, intakeRes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	iteration := l.runExecute(ctx, planRes.Tasks)

	snap, err = l.runReflect(ctx, sessionID, snap, iteration)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reflection failed: %w", err)
	}

	summary, snap, err := l.runFinalize(ctx, sessionID, snap, iteration)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("finalization failed: %w", err)
	}

	span.SetAttributes(
		attribute.Int("tasks_run", iteration.Summary.Total),
		attribute.Int("tasks_failed", iteration.Summary.Failed),
	)
	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("tasks_run", iteration.Summary.Total).
		Int("tasks_failed", iteration.Summary.Failed).
		Msg("Message handled")

	return &Response{
		SessionID: sessionID,
		TraceID:   tracing.GetTraceID(ctx),
		Summary:   summary,
		Stage:     StageDone,
		Iteration: iteration,
		State:     snap,
	}, nil
}

// runIntake asks the intake agent to read the message and commits its diff.
func (l *Loop) runIntake(ctx context.Context, sessionID string, snap state.State, message string) (res agents.IntakeResult, next state.State, err error) {
	ctx = tracing.WithStage(ctx, StageIntake)
	ctx = tracing.PropagateToAgent(ctx, agents.OriginIntake)
	ctx, span := tracing.StartSpan(ctx, "wayfarer.orchestrator", "orchestrator.intake")
	defer span.End()
	start := time.Now()
	defer func() { finishStage(span, StageIntake, start, err) }()

	res, diff, err := l.intake.Clarify(ctx, snap, message)
	if err != nil {
		return agents.IntakeResult{}, state.State{}, err
	}

	next, err = l.commit(ctx, sessionID, diff)
	if err != nil {
		return agents.IntakeResult{}, state.State{}, err
	}

	span.SetAttributes(attribute.String("task_id", res.TaskID))
	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Str("task_id", res.TaskID).
		Str("destination", res.Destination).
		Msg("Intake committed")

	return res, next, nil
}

// runPlan asks the planner to expand the intent and commits the plan.
func (l *Loop) runPlan(ctx context.Context, sessionID string, snap state.State, intakeRes agents.IntakeResult) (plan agents.PlanResult, next state.State, err error) {
	ctx = tracing.WithStage(ctx, StagePlan)
	ctx = tracing.PropagateToAgent(ctx, agents.OriginPlanner)
	ctx, span := tracing.StartSpan(ctx, "wayfarer.orchestrator", "orchestrator.plan")
	defer span.End()
	start := time.Now()
	defer func() { finishStage(span, StagePlan, start, err) }()

	plan, diff, err := l.planner.Plan(ctx, snap, intakeRes)
	if err != nil {
		return agents.PlanResult{}, state.State{}, err
	}

	next, err = l.commit(ctx, sessionID, diff)
	if err != nil {
		return agents.PlanResult{}, state.State{}, err
	}

	span.SetAttributes(attribute.Int("planned_tasks", len(plan.Tasks)))
	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Int("planned_tasks", len(plan.Tasks)).
		Strs("task_ids", plan.TaskIDs()).
		Msg("Plan committed")

	return plan, next, nil
}

// runExecute pushes the planned tasks through the runner. The runner owns
// its own spans and timeouts; a batch with failures still advances the loop.
func (l *Loop) runExecute(ctx context.Context, tasks []state.Task) taskrunner.Iteration {
	ctx = tracing.WithStage(ctx, StageExecute)
	start := time.Now()

	iteration := l.runner.Run(ctx, tasks)
	observability.RecordStage(StageExecute, time.Since(start), iteration.Summary.Failed == 0)

	return iteration
}

// runReflect has the follower fold execution results back into the state.
func (l *Loop) runReflect(ctx context.Context, sessionID string, snap state.State, iteration taskrunner.Iteration) (next state.State, err error) {
	ctx = tracing.WithStage(ctx, StageReflect)
	ctx = tracing.PropagateToAgent(ctx, agents.OriginFollower)
	ctx, span := tracing.StartSpan(ctx, "wayfarer.orchestrator", "orchestrator.reflect")
	defer span.End()
	start := time.Now()
	defer func() { finishStage(span, StageReflect, start, err) }()

	review, diff, err := l.follower.Review(ctx, snap, iteration)
	if err != nil {
		return state.State{}, err
	}

	next, err = l.commit(ctx, sessionID, diff)
	if err != nil {
		return state.State{}, err
	}

	span.SetAttributes(
		attribute.Int("completed", review.Completed),
		attribute.Int("failed", review.Failed),
	)
	logger := tracing.LoggerFromContext(ctx, log.Logger)
	for _, note := range review.Notes {
		logger.Warn().Str("note", note).Msg("Task needs attention")
	}
	logger.Debug().
		Int("completed", review.Completed).
		Int("failed", review.Failed).
		Msg("Review committed")

	return next, nil
}

// runFinalize closes out intent tasks and renders the user-facing summary.
func (l *Loop) runFinalize(ctx context.Context, sessionID string, snap state.State, iteration taskrunner.Iteration) (summary string, next state.State, err error) {
	ctx = tracing.WithStage(ctx, StageFinalize)
	ctx = tracing.PropagateToAgent(ctx, agents.OriginFinalizer)
	ctx, span := tracing.StartSpan(ctx, "wayfarer.orchestrator", "orchestrator.finalize")
	defer span.End()
	start := time.Now()
	defer func() { finishStage(span, StageFinalize, start, err) }()

	summary, diff, err := l.finalizer.Summarize(ctx, snap, iteration)
	if err != nil {
		return "", state.State{}, err
	}

	next, err = l.commit(ctx, sessionID, diff)
	if err != nil {
		return "", state.State{}, err
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Int("summary_len", len(summary)).
		Msg("Summary rendered")

	return summary, next, nil
}

// commit lands a diff through the session manager. Only lock contention is
// retried; validation and persistence failures surface immediately so no
// stage runs on top of a state that never landed.
func (l *Loop) commit(ctx context.Context, sessionID string, diff state.Diff) (state.State, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	var lastErr error
	for attempt := 0; attempt <= l.commitRetries; attempt++ {
		next, err := l.sessions.CommitWithContext(ctx, sessionID, diff)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, session.ErrBusy) {
			return state.State{}, err
		}

		lastErr = err
		if attempt >= l.commitRetries {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("Commit contended, retrying")

		backoff := time.Duration(attempt+1) * l.retryBackoff
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return state.State{}, ctx.Err()
		}
	}

	return state.State{}, fmt.Errorf("commit failed after %d attempts: %w", l.commitRetries+1, lastErr)
}

// finishStage records the stage counter and marks the span on failure.
func finishStage(span trace.Span, stage string, start time.Time, err error) {
	observability.RecordStage(stage, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// ResumeSession loads a session, creating it from the template on first use,
// and returns a snapshot of it.
func (l *Loop) ResumeSession(ctx context.Context, sessionID string) (state.State, error) {
	return l.sessions.Load(ctx, sessionID)
}

// SessionState returns a snapshot of the session without touching lifecycle.
func (l *Loop) SessionState(ctx context.Context, sessionID string) (state.State, error) {
	return l.sessions.Get(ctx, sessionID)
}

// ClearSession removes the session from the store and the cache.
func (l *Loop) ClearSession(ctx context.Context, sessionID string) error {
	return l.sessions.ClearWithContext(ctx, sessionID)
}
