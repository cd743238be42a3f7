package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayfarerhq/wayfarer/internal/observability"
	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/state"
	"github.com/wayfarerhq/wayfarer/pkg/statestore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultLockTimeout bounds how long a commit waits for a session lock.
const DefaultLockTimeout = 2 * time.Second

// Reader is the read-only view of session state handed to agents.
// Only the orchestrator holds the full *Manager and can commit.
type Reader interface {
	// Get returns a deep-copy snapshot of the session state, loading it
	// from the store if it is not cached.
	Get(ctx context.Context, sessionID string) (state.State, error)

	// Load ensures the session exists and returns a snapshot of it.
	Load(ctx context.Context, sessionID string) (state.State, error)
}

// entry tracks one cached session. The lock channel has capacity one;
// sending acquires it and receiving releases it, so acquisition can be
// bounded by a timer or context.
type entry struct {
	lock     chan struct{}
	state    state.State
	lastSeen time.Time
}

// Manager owns the canonical state of every session. All mutation goes
// through Commit, which serializes writers per session and persists the
// merged state before it becomes visible to readers.
type Manager struct {
	store       statestore.Store
	template    *Template
	lockTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*entry
}

// Option configures a Manager
type Option func(*Manager)

// WithLockTimeout overrides how long a commit waits for the session lock
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lockTimeout = d
		}
	}
}

// WithTemplate overrides the template new sessions are created from
func WithTemplate(t *Template) Option {
	return func(m *Manager) {
		if t != nil {
			m.template = t
		}
	}
}

// New creates a session manager backed by the given store
func New(store statestore.Store, opts ...Option) (*Manager, error) {
	observability.EnsureRegistered()

	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	m := &Manager{
		store:       store,
		template:    NewTemplate(),
		lockTimeout: DefaultLockTimeout,
		sessions:    make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(m)
	}

	log.Info().
		Dur("lock_timeout", m.lockTimeout).
		Str("template_version", m.template.Version()).
		Msg("Session manager initialized")

	return m, nil
}

// validateSessionID validates the session identifier for use in store keys
func (m *Manager) validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.Contains(sessionID, "..") {
		return fmt.Errorf("session id cannot contain '..'")
	}
	if strings.ContainsAny(sessionID, "/\\") {
		return fmt.Errorf("session id cannot contain path separators")
	}
	if strings.Contains(sessionID, "\x00") {
		return fmt.Errorf("session id cannot contain null bytes")
	}
	return nil
}

// Load ensures the session exists and returns a snapshot of it.
// A session absent from both cache and store is created from the template.
func (m *Manager) Load(ctx context.Context, sessionID string) (state.State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.session",
		"session.load",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("session_id", sessionID).Logger()
	start := time.Now()
	defer func() {
		observability.RecordSessionLoad(time.Since(start))
	}()

	if err := m.validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state.State{}, err
	}

	e, created, err := m.loadEntry(ctx, sessionID, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state.State{}, err
	}

	m.mu.RLock()
	snap := e.state.Clone()
	m.mu.RUnlock()

	if created {
		observability.RecordSessionAudit(ctx, "create", sessionID, nil)
		logger.Info().Msg("Session created")
	} else {
		logger.Debug().Int("tasks", len(snap.Tasks)).Msg("Session loaded")
	}

	return snap, nil
}

// Get returns a deep-copy snapshot of the session state, loading it from
// the store if it is not cached. The snapshot never aliases canonical state.
func (m *Manager) Get(ctx context.Context, sessionID string) (state.State, error) {
	if err := m.validateSessionID(sessionID); err != nil {
		return state.State{}, err
	}

	m.mu.RLock()
	if e, ok := m.sessions[sessionID]; ok {
		snap := e.state.Clone()
		m.mu.RUnlock()
		return snap, nil
	}
	m.mu.RUnlock()

	return m.Load(ctx, sessionID)
}

// loadEntry returns the cached entry for a session, fetching it from the
// store (or creating it from the template) on first use.
func (m *Manager) loadEntry(ctx context.Context, sessionID string, logger zerolog.Logger) (*entry, bool, error) {
	m.mu.Lock()
	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = time.Now()
		m.mu.Unlock()
		return e, false, nil
	}
	m.mu.Unlock()

	// Fetch outside the map lock: the store may be remote.
	loaded, created, err := m.fetch(ctx, sessionID, logger)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have loaded the session meanwhile.
	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = time.Now()
		return e, false, nil
	}

	e := &entry{
		lock:     make(chan struct{}, 1),
		state:    loaded,
		lastSeen: time.Now(),
	}
	m.sessions[sessionID] = e
	observability.SetActiveSessions(len(m.sessions))

	return e, created, nil
}

// fetch reads persisted state for a session, falling back to the template
func (m *Manager) fetch(ctx context.Context, sessionID string, logger zerolog.Logger) (state.State, bool, error) {
	data, err := m.store.Get(ctx, statestore.StateKey(sessionID))
	if errors.Is(err, statestore.ErrNotFound) {
		return m.template.State(), true, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("failed to load session state: %w", err)
	}

	var st state.State
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn().Err(err).Msg("Persisted state is unreadable, starting from template")
		return m.template.State(), true, nil
	}

	return st, false, nil
}

// Commit merges a diff into the session state
func (m *Manager) Commit(sessionID string, diff state.Diff) (state.State, error) {
	return m.CommitWithContext(context.Background(), sessionID, diff)
}

// CommitWithContext merges a diff into the session state. It is the only
// mutating path: writers for the same session are serialized by a bounded
// lock, the merged state is persisted before the in-memory swap, and on
// persist failure the canonical state is left untouched.
func (m *Manager) CommitWithContext(ctx context.Context, sessionID string, diff state.Diff) (state.State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.session",
		"session.commit",
		attribute.String("session_id", sessionID),
		attribute.Int("diff_tasks", len(diff.Tasks)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("session_id", sessionID).Logger()

	outcome := "applied"
	start := time.Now()
	defer func() {
		observability.RecordCommit(outcome, time.Since(start))
	}()

	if err := m.validateSessionID(sessionID); err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state.State{}, err
	}

	if err := diff.Validate(); err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Msg("Commit rejected")
		return state.State{}, err
	}

	if diff.Empty() {
		outcome = "noop"
		logger.Debug().Msg("Empty diff, nothing to commit")
		return m.Get(ctx, sessionID)
	}

	e, _, err := m.loadEntry(ctx, sessionID, logger)
	if err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state.State{}, err
	}

	// Acquire the session lock, bounded by the lock timeout.
	timer := time.NewTimer(m.lockTimeout)
	defer timer.Stop()
	select {
	case e.lock <- struct{}{}:
	case <-timer.C:
		outcome = "conflict"
		observability.RecordCommitConflict()
		err := fmt.Errorf("%w: session %q", ErrBusy, sessionID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Dur("waited", time.Since(start)).Msg("Commit timed out waiting for session lock")
		return state.State{}, err
	case <-ctx.Done():
		outcome = "canceled"
		span.SetStatus(codes.Error, ctx.Err().Error())
		return state.State{}, ctx.Err()
	}
	defer func() {
		<-e.lock
	}()

	m.mu.RLock()
	cur := e.state
	m.mu.RUnlock()

	next, err := state.Merge(cur, diff)
	if err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Msg("Commit rejected")
		return state.State{}, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		outcome = "persist_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state.State{}, fmt.Errorf("failed to marshal session state: %w", err)
	}

	persistStart := time.Now()
	err = m.store.Set(ctx, statestore.StateKey(sessionID), data)
	observability.RecordStatePersist(time.Since(persistStart))
	if err != nil {
		outcome = "persist_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Failed to persist session state, commit rolled back")
		return state.State{}, fmt.Errorf("failed to persist session state: %w", err)
	}

	// Persist succeeded: swap the canonical state.
	m.mu.Lock()
	e.state = next
	e.lastSeen = time.Now()
	m.mu.Unlock()

	observability.RecordCommitAudit(ctx, sessionID, outcome, map[string]any{
		"diff_tasks": len(diff.Tasks),
		"tasks":      len(next.Tasks),
	})
	logger.Debug().
		Int("diff_tasks", len(diff.Tasks)).
		Int("tasks", len(next.Tasks)).
		Msg("Commit applied")

	return next.Clone(), nil
}

// Clear removes a session from the store and the cache
func (m *Manager) Clear(sessionID string) error {
	return m.ClearWithContext(context.Background(), sessionID)
}

// ClearWithContext removes a session from the store and the cache.
// Clearing an unknown session is a no-op.
func (m *Manager) ClearWithContext(ctx context.Context, sessionID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(
		ctx,
		"wayfarer.session",
		"session.clear",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("session_id", sessionID).Logger()

	if err := m.validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Wait for any in-flight commit before dropping the session.
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		timer := time.NewTimer(m.lockTimeout)
		defer timer.Stop()
		select {
		case e.lock <- struct{}{}:
			defer func() {
				<-e.lock
			}()
		case <-timer.C:
			err := fmt.Errorf("%w: session %q", ErrBusy, sessionID)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := m.store.Delete(ctx, statestore.StateKey(sessionID)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear session state: %w", err)
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	observability.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	observability.RecordSessionAudit(ctx, "clear", sessionID, nil)
	logger.Info().Msg("Session cleared")

	return nil
}

// Sessions returns the ids of all cached sessions, sorted
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StoredSessions returns the ids of all persisted sessions, sorted
func (m *Manager) StoredSessions(ctx context.Context) ([]string, error) {
	keys, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored sessions: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, ok := statestore.SessionID(key)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Evict drops cached sessions idle for longer than olderThan. Sessions
// with a commit in flight are skipped. Persisted state is untouched, so
// an evicted session reloads from the store on next use.
func (m *Manager) Evict(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	evicted := 0
	for id, e := range m.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		select {
		case e.lock <- struct{}{}:
		default:
			continue
		}
		delete(m.sessions, id)
		<-e.lock
		evicted++
		observability.RecordCacheEviction()
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if evicted > 0 {
		observability.SetActiveSessions(remaining)
		log.Debug().
			Int("evicted", evicted).
			Int("remaining", remaining).
			Msg("Idle sessions evicted")
	}

	return evicted
}

// Close drops all cached sessions. The store is owned by the caller and
// is not closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	log.Info().Msg("Session manager closed")

	return nil
}
