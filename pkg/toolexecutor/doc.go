// Package toolexecutor registers and executes the structured tools that
// planned tasks are bound to.
//
// Invariants:
// - Tool names are unique.
// - Arguments are schema-validated before execution.
// - Execute never returns a Go error: unknown tools, bad arguments,
//   handler failures, and timeouts all come back as failed ToolResults.
//
// Usage:
//
//	exec := toolexecutor.New()
//	_ = exec.Register(toolexecutor.ToolDefinition{
//		Name: "echo",
//		Description: "Echo input",
//		Parameters: []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]any) (any, error) { return args["text"], nil },
//	})
//	result := exec.Execute(ctx, "echo", map[string]any{"text": "hello"})
package toolexecutor
