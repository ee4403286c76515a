package blips

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeContract(t *testing.T, store SettingStore) {
	t.Helper()
	_, err := store.Get("wind-api-key")
	require.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, store.Put("wind-api-key", "abc123"))
	v, err := store.Get("wind-api-key")
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)

	// Put is an upsert.
	require.NoError(t, store.Put("wind-api-key", "def456"))
	v, err = store.Get("wind-api-key")
	require.NoError(t, err)
	assert.Equal(t, "def456", v)

	require.NoError(t, store.Delete("wind-api-key"))
	_, err = store.Get("wind-api-key")
	require.ErrorIs(t, err, ErrSettingNotFound)

	// Deleting a missing key is not an error.
	require.NoError(t, store.Delete("never-set"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("units", "metric"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get("units")
	require.NoError(t, err)
	assert.Equal(t, "metric", v)
}
