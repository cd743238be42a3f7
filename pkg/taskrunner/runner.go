package taskrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wayfarerhq/wayfarer/internal/observability"
	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/toolexecutor"
)

const (
	// DefaultWorkers is the size of the worker pool.
	DefaultWorkers = 10

	// DefaultTaskTimeout bounds a single task execution.
	DefaultTaskTimeout = 30 * time.Second

	// DefaultBatchTimeout bounds a whole batch run.
	DefaultBatchTimeout = 2 * time.Minute

	// DefaultMaxRetries is the number of retry attempts after a failed execution.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the base delay between retry attempts.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultCacheSize is the number of entries in the result cache.
	DefaultCacheSize = 256
)

// TaskResult records the outcome of a single task execution
type TaskResult struct {
	TaskID   string           `json:"task_id"`
	Status   state.TaskStatus `json:"status"`
	Output   any              `json:"output,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
	Cached   bool             `json:"cached,omitempty"`
	Attempts int              `json:"attempts"`
}

// Summary aggregates the outcomes of a batch
type Summary struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Iteration is the record of one batch run. Tasks holds the batch in
// submitted order and Results is aligned index-for-index with it.
type Iteration struct {
	Number    int          `json:"number"`
	Timestamp time.Time    `json:"timestamp"`
	Tasks     []state.Task `json:"tasks"`
	Results   []TaskResult `json:"results"`
	Summary   Summary      `json:"summary"`
}

// Runner executes batches of tool-bound tasks against a fixed worker pool.
type Runner struct {
	tools        *toolexecutor.Executor
	workers      int
	taskTimeout  time.Duration
	batchTimeout time.Duration
	maxRetries   int
	retryBackoff time.Duration
	cacheSize    int
	cache        *lru.Cache[string, any]
	batchSeq     atomic.Int64
}

// Option configures a Runner
type Option func(*Runner)

// WithWorkers sets the worker pool size
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTaskTimeout sets the per-task execution timeout
func WithTaskTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.taskTimeout = d
		}
	}
}

// WithBatchTimeout sets the whole-batch timeout
func WithBatchTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.batchTimeout = d
		}
	}
}

// WithMaxRetries sets the number of retry attempts after a failed execution
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between retry attempts
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.retryBackoff = d
		}
	}
}

// WithCacheSize sets the result cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(r *Runner) {
		r.cacheSize = n
	}
}

// New creates a task runner backed by the given tool executor
func New(tools *toolexecutor.Executor, opts ...Option) (*Runner, error) {
	observability.EnsureRegistered()

	if tools == nil {
		return nil, fmt.Errorf("tool executor cannot be nil")
	}

	r := &Runner{
		tools:        tools,
		workers:      DefaultWorkers,
		taskTimeout:  DefaultTaskTimeout,
		batchTimeout: DefaultBatchTimeout,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		cacheSize:    DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cacheSize > 0 {
		cache, err := lru.New[string, any](r.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		r.cache = cache
	}

	log.Info().
		Int("workers", r.workers).
		Dur("task_timeout", r.taskTimeout).
		Dur("batch_timeout", r.batchTimeout).
		Int("max_retries", r.maxRetries).
		Int("cache_size", r.cacheSize).
		Msg("Task runner initialized")

	return r, nil
}

// Run executes a batch of tasks and returns one result per task, aligned with
// the submitted order. Tasks are dispatched highest priority first; ties keep
// their submitted order. A task failure never cancels its siblings, and once
// the batch timeout passes the remaining tasks are reported as failed instead
// of awaited.
func (r *Runner) Run(ctx context.Context, tasks []state.Task) Iteration {
	if ctx == nil {
		ctx = context.Background()
	}

	number := int(r.batchSeq.Add(1))

	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.taskrunner",
		"taskrunner.run_batch",
		attribute.Int("batch", number),
		attribute.Int("tasks", len(tasks)),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	start := time.Now()

	iteration := Iteration{
		Number:    number,
		Timestamp: start,
	}

	if len(tasks) == 0 {
		iteration.Tasks = []state.Task{}
		iteration.Results = []TaskResult{}
		return iteration
	}

	batch := make([]state.Task, len(tasks))
	copy(batch, tasks)

	// Dispatch order: highest priority first, stable for ties. Results still
	// land at the submitted index.
	order := make([]int, len(batch))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return batch[order[i]].Priority > batch[order[j]].Priority
	})

	batchCtx, cancel := context.WithTimeout(ctx, r.batchTimeout)
	defer cancel()

	results := make([]TaskResult, len(batch))

	jobs := make(chan int, len(batch))
	for _, idx := range order {
		jobs <- idx
	}
	close(jobs)

	workers := r.workers
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.runTask(batchCtx, batch[idx])
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	summary := Summary{Total: len(batch), Elapsed: elapsed}
	for _, res := range results {
		if res.Status == state.TaskDone {
			summary.Completed++
		} else {
			summary.Failed++
		}
	}

	iteration.Tasks = batch
	iteration.Results = results
	iteration.Summary = summary

	span.SetAttributes(
		attribute.Int("completed", summary.Completed),
		attribute.Int("failed", summary.Failed),
	)
	observability.RecordBatch(elapsed)

	logger.Info().
		Int("batch", number).
		Int("total", summary.Total).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Dur("elapsed", elapsed).
		Msg("Batch completed")

	return iteration
}

// runTask executes one task with retries, returning a terminal result
func (r *Runner) runTask(ctx context.Context, task state.Task) TaskResult {
	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.taskrunner",
		"taskrunner.run_task",
		attribute.String("task_id", task.TaskID),
		attribute.String("tool", task.Tool),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, log.Logger).With().
		Str("task_id", task.TaskID).
		Str("tool", task.Tool).
		Logger()

	start := time.Now()

	if task.Tool == "" {
		logger.Error().Str("intent", task.Intent).Msg("Task has no tool binding")
		return TaskResult{
			TaskID: task.TaskID,
			Status: state.TaskFailed,
			Error:  "task has no tool binding",
		}
	}

	key, cacheable := r.cacheKey(task)
	if cacheable {
		if output, ok := r.cache.Get(key); ok {
			duration := time.Since(start)
			observability.RecordTaskCompletion(task.Tool, duration, true, true)
			logger.Debug().Msg("Task served from cache")
			return TaskResult{
				TaskID:   task.TaskID,
				Status:   state.TaskDone,
				Output:   output,
				Duration: duration,
				Cached:   true,
			}
		}
	}

	observability.TaskStarted()
	defer observability.TaskFinished()

	logger.Debug().Msg("Task started")

	var res toolexecutor.ToolResult
	attempts := 0
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts = attempt + 1

		taskCtx, cancelTask := context.WithTimeout(ctx, r.taskTimeout)
		res = r.tools.Execute(taskCtx, task.Tool, task.Args)
		cancelTask()

		if res.Success {
			break
		}
		if attempt >= r.maxRetries || ctx.Err() != nil {
			break
		}

		observability.RecordTaskRetry(task.Tool)
		logger.Warn().
			Int("attempt", attempts).
			Str("error", res.Error).
			Msg("Task failed, retrying")

		backoff := time.Duration(attempt+1) * r.retryBackoff
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
	}

	duration := time.Since(start)

	if res.Success {
		if cacheable {
			r.cache.Add(key, res.Output)
		}
		observability.RecordTaskCompletion(task.Tool, duration, true, false)
		logger.Debug().
			Dur("duration", duration).
			Int("attempts", attempts).
			Msg("Task completed")
		return TaskResult{
			TaskID:   task.TaskID,
			Status:   state.TaskDone,
			Output:   res.Output,
			Duration: duration,
			Attempts: attempts,
		}
	}

	errMsg := res.Error
	if ctx.Err() != nil {
		errMsg = "batch timeout exceeded"
	}

	observability.RecordTaskCompletion(task.Tool, duration, false, false)
	logger.Error().
		Dur("duration", duration).
		Int("attempts", attempts).
		Str("error", errMsg).
		Msg("Task failed")

	return TaskResult{
		TaskID:   task.TaskID,
		Status:   state.TaskFailed,
		Error:    errMsg,
		Duration: duration,
		Attempts: attempts,
	}
}

// cacheKey derives a deterministic key from tool name + arguments. Map keys
// are sorted by encoding/json, so equal argument maps hash equal.
func (r *Runner) cacheKey(task state.Task) (string, bool) {
	if r.cache == nil || task.Tool == "" {
		return "", false
	}
	data, err := json.Marshal(task.Args)
	if err != nil {
		return "", false
	}
	return task.Tool + ":" + string(data), true
}

// CacheLen returns the number of cached results
func (r *Runner) CacheLen() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

// PurgeCache drops all cached results
func (r *Runner) PurgeCache() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// Workers returns the configured worker pool size
func (r *Runner) Workers() int {
	return r.workers
}
