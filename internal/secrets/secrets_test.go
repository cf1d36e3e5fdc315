package secrets_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/secrets"
)

func newTestStore(t *testing.T) *secrets.BoltStore {
	t.Helper()

	store, err := secrets.NewBoltStore(filepath.Join(t.TempDir(), "secrets.db"), "test-passphrase")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	id := uuid.New()
	key := secrets.Key(id, secrets.KindPassword)

	require.NoError(t, store.Save(key, "hunter2"))

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestBoltStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, errors.ErrSecretNotFound)
}

func TestBoltStoreValuesEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.db")

	store, err := secrets.NewBoltStore(path, "pass-a")
	require.NoError(t, err)
	require.NoError(t, store.Save("k", "plaintext-secret"))
	require.NoError(t, store.Close())

	// A store opened with a different passphrase must not decrypt.
	other, err := secrets.NewBoltStore(path, "pass-b")
	require.NoError(t, err)
	defer other.Close()

	_, err = other.Get("k")
	assert.Error(t, err)
}

func TestDeleteAll(t *testing.T) {
	store := secrets.NewMemory()
	id := uuid.New()

	require.NoError(t, store.Save(secrets.Key(id, secrets.KindPassword), "pw"))
	require.NoError(t, store.Save(secrets.Key(id, secrets.KindPrivateKey), "key"))

	require.NoError(t, secrets.DeleteAll(store, id))

	_, err := store.Get(secrets.Key(id, secrets.KindPassword))
	assert.ErrorIs(t, err, errors.ErrSecretNotFound)
	_, err = store.Get(secrets.Key(id, secrets.KindPrivateKey))
	assert.ErrorIs(t, err, errors.ErrSecretNotFound)
}

func TestDeleteAllIdempotent(t *testing.T) {
	store := secrets.NewMemory()
	id := uuid.New()

	require.NoError(t, secrets.DeleteAll(store, id))
	require.NoError(t, secrets.DeleteAll(store, id))
}
