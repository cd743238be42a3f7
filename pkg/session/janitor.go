package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEvictSchedule = "*/10 * * * *"
	DefaultIdleAfter     = time.Hour
)

// Janitor evicts idle cached sessions on a cron schedule. It only drops
// in-memory entries; persisted state is never touched, so evicted
// sessions reload from the store on next use.
type Janitor struct {
	manager   *Manager
	schedule  string
	idleAfter time.Duration
	cron      *cron.Cron
	running   bool
}

// NewJanitor creates a janitor for the given manager
func NewJanitor(manager *Manager, schedule string, idleAfter time.Duration) *Janitor {
	if schedule == "" {
		schedule = DefaultEvictSchedule
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}

	return &Janitor{
		manager:   manager,
		schedule:  schedule,
		idleAfter: idleAfter,
	}
}

// Start starts the eviction schedule
func (j *Janitor) Start() error {
	if j.running {
		return fmt.Errorf("janitor is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("invalid evict schedule: %w", err)
	}
	c.Start()

	j.cron = c
	j.running = true

	log.Info().
		Str("schedule", j.schedule).
		Dur("idle_after", j.idleAfter).
		Msg("Session janitor started")

	return nil
}

// Stop stops the eviction schedule, waiting for a running sweep to finish
func (j *Janitor) Stop() error {
	if !j.running {
		return fmt.Errorf("janitor is not running")
	}

	<-j.cron.Stop().Done()
	j.running = false

	log.Info().Msg("Session janitor stopped")

	return nil
}

// IsRunning returns whether the janitor is running
func (j *Janitor) IsRunning() bool {
	return j.running
}

// IdleAfter returns the idle duration after which sessions are evicted
func (j *Janitor) IdleAfter() time.Duration {
	return j.idleAfter
}

// SweepNow immediately runs an eviction sweep
func (j *Janitor) SweepNow() int {
	return j.manager.Evict(j.idleAfter)
}

func (j *Janitor) sweep() {
	evicted := j.manager.Evict(j.idleAfter)
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Janitor sweep complete")
	}
}
