package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/pkg/statestore"
)

func TestJanitor_Defaults(t *testing.T) {
	m, _ := setupTestManager(t)
	defer m.Close()

	j := NewJanitor(m, "", 0)
	assert.Equal(t, DefaultEvictSchedule, j.schedule)
	assert.Equal(t, DefaultIdleAfter, j.IdleAfter())
	assert.False(t, j.IsRunning())
}

func TestJanitor_StartStop(t *testing.T) {
	m, _ := setupTestManager(t)
	defer m.Close()

	j := NewJanitor(m, "*/10 * * * *", time.Hour)

	require.NoError(t, j.Start())
	assert.True(t, j.IsRunning())

	// Starting again should fail
	assert.Error(t, j.Start())

	require.NoError(t, j.Stop())
	assert.False(t, j.IsRunning())

	// Stopping again should fail
	assert.Error(t, j.Stop())
}

func TestJanitor_InvalidSchedule(t *testing.T) {
	m, _ := setupTestManager(t)
	defer m.Close()

	j := NewJanitor(m, "not a schedule", time.Hour)
	assert.Error(t, j.Start())
}

func TestJanitor_SweepNow(t *testing.T) {
	store := statestore.NewMemory()
	m, err := New(store)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Load(context.Background(), "idle-trip")
	require.NoError(t, err)

	j := NewJanitor(m, "", time.Nanosecond)
	time.Sleep(10 * time.Millisecond)

	evicted := j.SweepNow()
	assert.Equal(t, 1, evicted)
	assert.Empty(t, m.Sessions())
}
