package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/logger"
	"github.com/wayfarerhq/wayfarer/internal/observability"
	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/wayfarerhq/wayfarer/pkg/agents"
	"github.com/wayfarerhq/wayfarer/pkg/orchestrator"
	"github.com/wayfarerhq/wayfarer/pkg/session"
	"github.com/wayfarerhq/wayfarer/pkg/statestore"
	"github.com/wayfarerhq/wayfarer/pkg/taskrunner"
	"github.com/wayfarerhq/wayfarer/pkg/toolexecutor"
)

// runtime is the wired engine behind one CLI invocation.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	store    statestore.Store
	template *session.Template
	manager  *session.Manager
	janitor  *session.Janitor
	loop     *orchestrator.Loop
	metrics  *http.Server
}

// newRuntime loads the configuration and wires the engine bottom-up:
// store, session manager, tool executor, task runner, agents, loop.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	rt := &runtime{cfg: cfg, log: lg}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
	}

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			lg.Warn().Err(err).Str("path", cfg.Logging.AuditFile).Msg("Audit trail disabled")
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = store

	mgrOpts := []session.Option{
		session.WithLockTimeout(time.Duration(cfg.Session.LockTimeoutMS) * time.Millisecond),
	}
	if cfg.Session.TemplatePath != "" {
		tpl, err := session.NewTemplateFromFile(cfg.Session.TemplatePath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to load state template: %w", err)
		}
		if err := tpl.Watch(); err != nil {
			lg.Warn().Err(err).Msg("Template hot-reload disabled")
		}
		rt.template = tpl
		mgrOpts = append(mgrOpts, session.WithTemplate(tpl))
	}

	manager, err := session.New(store, mgrOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.manager = manager

	if cfg.Session.EvictSchedule != "" {
		janitor := session.NewJanitor(manager, cfg.Session.EvictSchedule,
			time.Duration(cfg.Session.EvictAfterMin)*time.Minute)
		if err := janitor.Start(); err != nil {
			lg.Warn().Err(err).Msg("Session janitor disabled")
		} else {
			rt.janitor = janitor
		}
	}

	tools := toolexecutor.New(
		toolexecutor.WithTimeout(time.Duration(cfg.Executor.TaskTimeout) * time.Second),
	)
	if err := toolexecutor.RegisterTravelTools(tools); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	runner, err := taskrunner.New(tools,
		taskrunner.WithWorkers(cfg.Executor.Workers),
		taskrunner.WithTaskTimeout(time.Duration(cfg.Executor.TaskTimeout)*time.Second),
		taskrunner.WithBatchTimeout(time.Duration(cfg.Executor.BatchTimeout)*time.Second),
		taskrunner.WithMaxRetries(cfg.Executor.MaxRetries),
		taskrunner.WithRetryBackoff(time.Duration(cfg.Executor.RetryBackoffMS)*time.Millisecond),
		taskrunner.WithCacheSize(cfg.Executor.CacheSize),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	loop, err := orchestrator.New(orchestrator.Config{
		Sessions:      manager,
		Runner:        runner,
		Intake:        agents.NewRuleIntake(),
		Planner:       agents.NewRulePlanner(),
		Follower:      agents.NewRuleFollower(),
		Finalizer:     agents.NewRuleFinalizer(),
		CommitRetries: cfg.Session.CommitRetries,
		RetryBackoff:  time.Duration(cfg.Session.RetryBackoffMS) * time.Millisecond,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.loop = loop

	if cfg.Metrics.Enabled {
		rt.metrics = serveMetrics(cfg.Metrics.Address)
	}

	return rt, nil
}

// openStore selects the state store backend from the configuration.
func openStore(cfg *config.Config) (statestore.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return statestore.NewMemory(), nil
	case "sqlite":
		store, err := statestore.NewSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	case "redis":
		opts := []statestore.RedisOption{}
		if cfg.Store.Redis.KeyPrefix != "" {
			opts = append(opts, statestore.WithPrefix(cfg.Store.Redis.KeyPrefix))
		}
		if cfg.Store.Redis.TTL > 0 {
			opts = append(opts, statestore.WithTTL(time.Duration(cfg.Store.Redis.TTL)*time.Second))
		}
		return statestore.NewRedis(cfg.Store.Redis.Address, cfg.Store.Redis.Password, cfg.Store.Redis.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// serveMetrics exposes the Prometheus registry on its own listener.
func serveMetrics(address string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{Addr: address, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("address", address).Msg("Metrics listener stopped")
		}
	}()

	return srv
}

// Close tears the runtime down in reverse order of construction.
func (rt *runtime) Close() {
	if rt.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = rt.metrics.Shutdown(ctx)
		cancel()
	}
	if rt.janitor != nil {
		_ = rt.janitor.Stop()
	}
	if rt.manager != nil {
		_ = rt.manager.Close()
	}
	if rt.template != nil {
		_ = rt.template.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
	if rt.cfg != nil && rt.cfg.Tracing.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = tracing.ShutdownOpenTelemetry(ctx)
		cancel()
	}
	if rt.log != nil {
		_ = rt.log.Close()
	}
}
