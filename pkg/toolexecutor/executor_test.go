package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Register(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "test_tool",
		Description: "A test tool",
		Parameters: []ToolParameter{
			{
				Name:        "input",
				Type:        "string",
				Description: "Input parameter",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "result", nil
		},
	}

	err := e.Register(def)
	assert.NoError(t, err)

	// Verify tool is registered
	tool := e.Get("test_tool")
	assert.NotNil(t, tool)
	assert.Equal(t, "test_tool", tool.Name)
}

func TestExecutor_Register_InvalidDefinition(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		def  ToolDefinition
	}{
		{
			name: "empty name",
			def: ToolDefinition{
				Description: "Test",
				Handler:     func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
			},
		},
		{
			name: "empty description",
			def: ToolDefinition{
				Name:    "test",
				Handler: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
			},
		},
		{
			name: "nil handler",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
			},
		},
		{
			name: "bad parameter type",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Parameters: []ToolParameter{
					{Name: "p", Type: "uuid", Description: "P", Required: true},
				},
				Handler: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Register(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "echo",
		Description: "Echo tool",
		Parameters: []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "Message to echo",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args["message"], nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "echo", map[string]any{
		"message": "Hello, World!",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "Hello, World!", result.Output)
	assert.Empty(t, result.Error)
}

func TestExecutor_Execute_ToolNotFound(t *testing.T) {
	e := New()

	result := e.Execute(context.Background(), "nonexistent", map[string]any{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool not found")
}

func TestExecutor_Execute_ValidationError(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "test",
		Description: "Test tool",
		Parameters: []ToolParameter{
			{
				Name:        "required_param",
				Type:        "string",
				Description: "Required parameter",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	// Execute without required argument
	result := e.Execute(context.Background(), "test", map[string]any{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "validation")
}

func TestExecutor_Execute_RejectsUnknownArgs(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "strict",
		Description: "Strict tool",
		Parameters: []ToolParameter{
			{Name: "known", Type: "string", Description: "Known", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "strict", map[string]any{
		"surprise": true,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "validation")
}

func TestExecutor_Execute_HandlerError(t *testing.T) {
	e := New()

	expectedErr := errors.New("handler error")
	def := ToolDefinition{
		Name:        "failing_tool",
		Description: "A tool that fails",
		Parameters:  []ToolParameter{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, expectedErr
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "failing_tool", map[string]any{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "handler error")
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	e := New(WithTimeout(100 * time.Millisecond))

	def := ToolDefinition{
		Name:        "slow_tool",
		Description: "A slow tool",
		Parameters:  []ToolParameter{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			select {
			case <-time.After(2 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "slow_tool", map[string]any{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
}

func TestExecutor_Execute_OutputTruncation(t *testing.T) {
	e := New()

	// Create large output (> 10KB)
	largeOutput := make([]byte, 15*1024)
	for i := range largeOutput {
		largeOutput[i] = 'A'
	}

	def := ToolDefinition{
		Name:        "large_output",
		Description: "Tool with large output",
		Parameters:  []ToolParameter{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return string(largeOutput), nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "large_output", map[string]any{})

	assert.True(t, result.Success)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Output.(string), "truncated")
}

func TestExecutor_List(t *testing.T) {
	e := New()

	tools := []string{"tool1", "tool2", "tool3"}
	for _, name := range tools {
		def := ToolDefinition{
			Name:        name,
			Description: "Test tool",
			Parameters:  []ToolParameter{},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return nil, nil
			},
		}
		err := e.Register(def)
		require.NoError(t, err)
	}

	list := e.List()
	assert.ElementsMatch(t, tools, list)
}

func TestExecutor_Unregister(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "test_tool",
		Description: "Test tool",
		Parameters:  []ToolParameter{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	// Verify tool exists
	assert.NotNil(t, e.Get("test_tool"))

	// Unregister
	e.Unregister("test_tool")

	// Verify tool is removed
	assert.Nil(t, e.Get("test_tool"))
}

func TestExecutor_Count(t *testing.T) {
	e := New()

	assert.Equal(t, 0, e.Count())

	for i := 0; i < 5; i++ {
		def := ToolDefinition{
			Name:        fmt.Sprintf("tool%d", i),
			Description: "Test tool",
			Parameters:  []ToolParameter{},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return nil, nil
			},
		}
		err := e.Register(def)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, e.Count())
}

func TestExecutor_ParameterTypes(t *testing.T) {
	e := New()

	def := ToolDefinition{
		Name:        "multi_param",
		Description: "Tool with multiple parameter types",
		Parameters: []ToolParameter{
			{Name: "str", Type: "string", Description: "String param", Required: true},
			{Name: "num", Type: "number", Description: "Number param", Required: true},
			{Name: "bool", Type: "boolean", Description: "Boolean param", Required: true},
			{Name: "obj", Type: "object", Description: "Object param", Required: false},
			{Name: "arr", Type: "array", Description: "Array param", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}

	err := e.Register(def)
	require.NoError(t, err)

	result := e.Execute(context.Background(), "multi_param", map[string]any{
		"str":  "test",
		"num":  42.5,
		"bool": true,
		"obj":  map[string]any{"key": "value"},
		"arr":  []any{1, 2, 3},
	})

	assert.True(t, result.Success)
}
