package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "logs", "wayfarer.log")

	w, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer w.Close()

	// Directory was created
	_, err = os.Stat(filepath.Dir(logFile))
	assert.NoError(t, err)

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestRotatingWriter_RotatesAtCap(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "wayfarer.log")

	// 1MB cap; write two ~600KB chunks to force one rotation
	w, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	defer w.Close()

	chunk := []byte(strings.Repeat("x", 600*1024))
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	matches, err := filepath.Glob(logFile + ".*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Active file holds only the post-rotation chunk
	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "wayfarer.log")
	require.NoError(t, os.WriteFile(logFile, []byte("existing\n"), 0644))

	w, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	_, err = w.Write([]byte("appended\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "existing\nappended\n", string(data))
}
