package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes a minimal config into a temp directory so commands
// never touch the real home directory.
func writeTestConfig(t *testing.T, backend string) string {
	t.Helper()

	dir := t.TempDir()
	body := fmt.Sprintf(`{
  "data_dir": %q,
  "store": {"backend": %q},
  "session": {"lock_timeout_ms": 2000, "commit_retries": 3, "retry_backoff_ms": 50},
  "executor": {"workers": 4, "task_timeout": 5, "batch_timeout": 30, "max_retries": 1, "retry_backoff_ms": 20, "cache_size": 64},
  "logging": {"level": "error", "console": false}
}`, dir, backend)

	cfgPath := filepath.Join(dir, "wayfarer.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	cmd.SetArgs(args)

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)

	err := cmd.Execute()
	return output.String(), err
}

func TestPlanCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()

		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == "plan" {
				found = true
				break
			}
		}
		assert.True(t, found, "plan command should exist")
	})

	t.Run("requires a message", func(t *testing.T) {
		cfgPath := writeTestConfig(t, "memory")

		_, err := runCommand(t, "--config", cfgPath, "plan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires at least 1 arg")
	})

	t.Run("plans a trip", func(t *testing.T) {
		cfgPath := writeTestConfig(t, "memory")

		output, err := runCommand(t,
			"--config", cfgPath,
			"plan", "--session", "city-hop", "--json=false",
			"Plan a trip from Lisbon to Tokyo between 2026-03-10 and 2026-03-17",
		)
		require.NoError(t, err)

		assert.Contains(t, output, "Trip plan: Lisbon to Tokyo (2026-03-10 to 2026-03-17)")
		assert.Contains(t, output, "4 of 4 searches completed.")
		assert.Contains(t, output, "session: city-hop")
		assert.Contains(t, output, "trace: ")
	})

	t.Run("json output", func(t *testing.T) {
		cfgPath := writeTestConfig(t, "memory")

		output, err := runCommand(t,
			"--config", cfgPath,
			"plan", "--session", "city-hop", "--json",
			"Plan a trip from Lisbon to Tokyo between 2026-03-10 and 2026-03-17",
		)
		require.NoError(t, err)

		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(output), &resp))
		assert.Equal(t, "city-hop", resp["session_id"])
		assert.Equal(t, "done", resp["stage"])
		assert.NotEmpty(t, resp["trace_id"])
		assert.Contains(t, resp["summary"], "Lisbon to Tokyo")
	})
}
