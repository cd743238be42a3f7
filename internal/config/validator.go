package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBackend validates a state store backend name
func (v *Validator) ValidateBackend(backend string) error {
	switch backend {
	case "memory", "sqlite", "redis":
		return nil
	case "":
		return fmt.Errorf("store backend cannot be empty")
	default:
		return fmt.Errorf("unknown store backend %q (expected memory, sqlite, or redis)", backend)
	}
}

// ValidateAddress validates a host:port listen or dial address
func (v *Validator) ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("address %q is missing a port", addr)
	}
	_ = host

	return nil
}

// ValidateCronSchedule validates a five-field cron schedule
func (v *Validator) ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("cron schedule cannot be empty")
	}

	if strings.HasPrefix(schedule, "@") {
		// Descriptors like @hourly are accepted by the scheduler as-is.
		switch schedule {
		case "@yearly", "@annually", "@monthly", "@weekly", "@daily", "@midnight", "@hourly":
			return nil
		}
		if strings.HasPrefix(schedule, "@every ") {
			return nil
		}
		return fmt.Errorf("unknown cron descriptor %q", schedule)
	}

	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return fmt.Errorf("cron schedule %q must have 5 fields, got %d", schedule, len(fields))
	}

	fieldPattern := regexp.MustCompile(`^[\d*/,\-]+$`)
	for i, f := range fields {
		if !fieldPattern.MatchString(f) {
			return fmt.Errorf("cron schedule %q has an invalid field at position %d", schedule, i+1)
		}
	}

	return nil
}

// ValidateLogLevel validates a log level name
func (v *Validator) ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	case "":
		return fmt.Errorf("log level cannot be empty")
	default:
		return fmt.Errorf("unknown log level %q (expected debug, info, warn, or error)", level)
	}
}

// ValidateSessionID validates a session identifier for use in store keys
func (v *Validator) ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	pattern := regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	if !pattern.MatchString(sessionID) {
		return fmt.Errorf("session id %q may only contain letters, digits, hyphens, and underscores", sessionID)
	}

	return nil
}
