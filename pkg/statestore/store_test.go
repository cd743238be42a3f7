package statestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Missing key
	_, err := store.Get(ctx, "state_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Set / Get roundtrip
	require.NoError(t, store.Set(ctx, "state_abc", []byte(`{"tasks":[]}`)))
	val, err := store.Get(ctx, "state_abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"tasks":[]}`), val)

	// Overwrite
	require.NoError(t, store.Set(ctx, "state_abc", []byte(`{"tasks":[1]}`)))
	val, err = store.Get(ctx, "state_abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"tasks":[1]}`), val)

	// List sees all keys
	require.NoError(t, store.Set(ctx, "state_def", []byte(`{}`)))
	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"state_abc", "state_def"}, keys)

	// Delete, then deleting again is fine
	require.NoError(t, store.Delete(ctx, "state_abc"))
	_, err = store.Get(ctx, "state_abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "state_abc"))
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemory()
	defer store.Close()

	runStoreContract(t, store)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemory()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "state_abc", []byte("original")))
	val, err := store.Get(ctx, "state_abc")
	require.NoError(t, err)
	val[0] = 'X'

	again, err := store.Get(ctx, "state_abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "states.db"))
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.db")
	ctx := context.Background()

	store, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "state_abc", []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	val, err := reopened.Get(ctx, "state_abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), val)
}

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisFromClient(client)
	defer store.Close()

	runStoreContract(t, store)
}

func TestRedisStore_PrefixIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	ctx := context.Background()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	a := NewRedisFromClient(client, WithPrefix("a:"))
	b := NewRedisFromClient(client, WithPrefix("b:"))

	require.NoError(t, a.Set(ctx, "state_abc", []byte("from-a")))
	_, err = b.Get(ctx, "state_abc")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := a.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"state_abc"}, keys)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "state_abc123", StateKey("abc123"))
}
