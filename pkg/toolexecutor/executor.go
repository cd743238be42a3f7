package toolexecutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wayfarerhq/wayfarer/internal/observability"
	"github.com/wayfarerhq/wayfarer/internal/tracing"
	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// ToolHandler is the function signature for tool execution
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// ToolResult represents the result of a tool execution. Failures are
// reported in the result, never as Go errors, so one bad tool call can
// be absorbed without disturbing its siblings.
type ToolResult struct {
	Success   bool           `json:"success"`
	Output    any            `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DefaultTimeout bounds a single tool execution unless overridden.
const DefaultTimeout = 30 * time.Second

// Executor manages and executes tools
type Executor struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	timeout time.Duration
	mu      sync.RWMutex
}

// Option configures an Executor
type Option func(*Executor)

// WithTimeout overrides the per-execution timeout
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates a new Executor
func New(opts ...Option) *Executor {
	e := &Executor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	log.Info().Dur("timeout", e.timeout).Msg("Tool executor initialized")

	return e
}

// Register registers a new tool
func (e *Executor) Register(def ToolDefinition) error {
	// Validate tool definition
	if err := e.validateToolDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	// Generate JSON Schema
	schema, err := e.generateJSONSchema(def)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.tools[def.Name] = &def
	e.schemas[def.Name] = schema

	log.Info().Str("tool", def.Name).Msg("Tool registered")

	return nil
}

// Unregister removes a tool
func (e *Executor) Unregister(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.tools, name)
	delete(e.schemas, name)

	log.Info().Str("tool", name).Msg("Tool unregistered")
}

// Get returns a tool definition by name
func (e *Executor) Get(name string) *ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.tools[name]
}

// List returns all registered tool names
func (e *Executor) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tools := make([]string, 0, len(e.tools))
	for name := range e.tools {
		tools = append(tools, name)
	}

	return tools
}

// Count returns the number of registered tools
func (e *Executor) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.tools)
}

// Execute executes a tool with the given arguments. The outcome is always
// a ToolResult: unknown tools, invalid arguments, handler errors, and
// timeouts all come back as failed results.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]any) ToolResult {
	startTime := time.Now()
	actor := tracing.GetAgentOrigin(ctx)

	e.mu.RLock()
	tool := e.tools[toolName]
	schema := e.schemas[toolName]
	timeout := e.timeout
	e.mu.RUnlock()

	if tool == nil {
		log.Error().Str("tool", toolName).Msg("Tool not found")
		return e.finish(ctx, toolName, actor, startTime, ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", toolName),
		})
	}

	// Validate arguments
	if err := e.validateArgs(schema, args); err != nil {
		log.Error().Str("tool", toolName).Err(err).Msg("Argument validation failed")
		return e.finish(ctx, toolName, actor, startTime, ToolResult{
			Success: false,
			Error:   fmt.Sprintf("argument validation failed: %v", err),
		})
	}

	log.Debug().Str("tool", toolName).Str("actor", actor).Msg("Executing tool")

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Execute tool
	resultChan := make(chan any, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := tool.Handler(timeoutCtx, args)
		if err != nil {
			errChan <- err
		} else {
			resultChan <- result
		}
	}()

	// Wait for result or timeout
	select {
	case result := <-resultChan:
		duration := time.Since(startTime)

		// Truncate output if too large
		output, truncated := e.truncateOutput(result)

		log.Debug().
			Str("tool", toolName).
			Dur("duration", duration).
			Bool("truncated", truncated).
			Msg("Tool execution completed")

		return e.finish(ctx, toolName, actor, startTime, ToolResult{
			Success:   true,
			Output:    output,
			Truncated: truncated,
			Metadata: map[string]any{
				"duration": duration.Milliseconds(),
			},
		})

	case err := <-errChan:
		duration := time.Since(startTime)

		log.Error().
			Str("tool", toolName).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")

		return e.finish(ctx, toolName, actor, startTime, ToolResult{
			Success: false,
			Error:   err.Error(),
			Metadata: map[string]any{
				"duration": duration.Milliseconds(),
			},
		})

	case <-timeoutCtx.Done():
		duration := time.Since(startTime)

		log.Error().
			Str("tool", toolName).
			Dur("duration", duration).
			Msg("Tool execution timeout")

		return e.finish(ctx, toolName, actor, startTime, ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool execution timeout after %v", timeout),
			Metadata: map[string]any{
				"duration": duration.Milliseconds(),
				"timeout":  true,
			},
		})
	}
}

// finish records metrics and audit for an execution before returning it
func (e *Executor) finish(ctx context.Context, toolName, actor string, startTime time.Time, result ToolResult) ToolResult {
	duration := time.Since(startTime)
	observability.RecordToolExecution(toolName, duration, result.Success)

	status := "completed"
	if !result.Success {
		status = "failed"
	}
	observability.RecordToolAudit(ctx, toolName, actor, status, map[string]any{
		"duration_ms": duration.Milliseconds(),
	})

	return result
}

// validateToolDefinition validates a tool definition
func (e *Executor) validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	// Validate parameters
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}

		// Validate type
		validTypes := map[string]bool{
			"string": true, "number": true, "boolean": true,
			"object": true, "array": true, "integer": true,
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}

// generateJSONSchema generates a JSON Schema from tool parameters
func (e *Executor) generateJSONSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	schemaMap := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           make(map[string]any),
	}

	properties := schemaMap["properties"].(map[string]any)
	required := []string{}

	for _, param := range def.Parameters {
		paramSchema := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}

		if param.Default != nil {
			paramSchema["default"] = param.Default
		}

		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return nil, err
	}

	return schema, nil
}

// validateArgs validates arguments against a JSON Schema
func (e *Executor) validateArgs(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	argsLoader := gojsonschema.NewGoLoader(args)
	result, err := schema.Validate(argsLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		errors := []string{}
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("validation errors: %v", errors)
	}

	return nil
}

// truncateOutput truncates output if it exceeds the size limit
func (e *Executor) truncateOutput(output any) (any, bool) {
	const maxSize = 10 * 1024 // 10KB

	// Convert to string for size check
	str := fmt.Sprintf("%v", output)

	if len(str) <= maxSize {
		return output, false
	}

	truncated := str[:maxSize] + "\n... [output truncated]"
	log.Warn().
		Int("original", len(str)).
		Int("truncated", maxSize).
		Msg("Output truncated")

	return truncated, true
}
