package transfer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/library"
	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/remote"
	"github.com/romvault/romvault/internal/secrets"
	"github.com/romvault/romvault/internal/transfer"
)

func newUploadFixture(t *testing.T) (*transfer.Executor, *remote.Mock, *profile.Profile, secrets.Store) {
	t.Helper()

	mock := remote.NewMock()
	store := secrets.NewMemory()
	lib := library.NewStore(t.TempDir())
	exec := transfer.NewExecutor(lib, nil, remote.MockFactory(mock), store, nil)

	p := profile.New("nas", "nas.local", 22, "pi", profile.AuthPassword)
	require.NoError(t, store.Save(secrets.Key(p.ID, secrets.KindPassword), "pw"))

	return exec, mock, p, store
}

func writeLocalFile(t *testing.T, name string, size int) transfer.LocalFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return transfer.LocalFile{LocalPath: path, SizeBytes: int64(size)}
}

func TestUploadStreamsFilesInOrder(t *testing.T) {
	exec, mock, p, _ := newUploadFixture(t)

	a := writeLocalFile(t, "a.zip", 100)
	b := writeLocalFile(t, "b.zip", 50)

	var last, total int64
	err := exec.Upload(context.Background(), p, "/roms/snes", []transfer.LocalFile{a, b}, func(done, tot int64) {
		last, total = done, tot
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/roms/snes/a.zip", "/roms/snes/b.zip"}, mock.UploadPaths)
	assert.Len(t, mock.Uploaded["/roms/snes/a.zip"], 100)
	assert.Equal(t, int64(150), last)
	assert.Equal(t, int64(150), total)
	assert.Contains(t, mock.MkdirPaths, "/roms/snes")
	assert.True(t, mock.Closed, "connection released after use")
}

func TestUploadMissingPasswordFailsBeforeNetwork(t *testing.T) {
	exec, mock, p, store := newUploadFixture(t)
	require.NoError(t, store.Delete(secrets.Key(p.ID, secrets.KindPassword)))

	f := writeLocalFile(t, "a.zip", 10)
	err := exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{f}, nil)

	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidCredentials, errors.KindOf(err))
	assert.Equal(t, 0, mock.ConnectCnt, "no connection attempt on missing credentials")
}

func TestUploadKeyAuthRequiresPrivateKey(t *testing.T) {
	exec, mock, _, store := newUploadFixture(t)

	p := profile.New("keyed", "nas.local", 22, "pi", profile.AuthKey)
	f := writeLocalFile(t, "a.zip", 10)

	err := exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{f}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidCredentials, errors.KindOf(err))
	assert.Equal(t, 0, mock.ConnectCnt)

	// With a key present the precondition passes and the transfer runs.
	require.NoError(t, store.Save(secrets.Key(p.ID, secrets.KindPrivateKey), "-----BEGIN KEY-----"))
	require.NoError(t, exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{f}, nil))
	assert.Equal(t, 1, mock.ConnectCnt)
}

func TestUploadRejectsDuplicateFileNames(t *testing.T) {
	exec, mock, p, _ := newUploadFixture(t)

	// Same basename from two different directories would overwrite each
	// other at the destination.
	a := writeLocalFile(t, "a.zip", 10)
	b := writeLocalFile(t, "a.zip", 20)

	err := exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{a, b}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidationFailed, errors.KindOf(err))
	assert.Equal(t, 0, mock.ConnectCnt, "rejected before any network call")
}

func TestUploadConnectErrorPropagates(t *testing.T) {
	exec, mock, p, _ := newUploadFixture(t)
	mock.ConnectErr = errors.NewConnectionError(errors.New("refused"), "nas.local:22")

	f := writeLocalFile(t, "a.zip", 10)
	err := exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{f}, nil)

	require.Error(t, err)
	assert.Equal(t, errors.KindConnectionFailed, errors.KindOf(err))
	assert.True(t, mock.Closed, "connection released even on failure")
}

func TestUploadProgressClampedAgainstDoubleReports(t *testing.T) {
	exec, mock, p, _ := newUploadFixture(t)
	mock.ProgressChunk = 30
	mock.DoubleReport = true

	f := writeLocalFile(t, "a.zip", 100)

	var prev, last int64
	err := exec.Upload(context.Background(), p, "/roms", []transfer.LocalFile{f}, func(done, total int64) {
		assert.GreaterOrEqual(t, done, prev)
		assert.LessOrEqual(t, done, total)
		prev = done
		last = done
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), last, "cumulative bytes clamped to the real size")
}

func TestPreflightDuplicatesReportsNameCollisions(t *testing.T) {
	exec, mock, p, _ := newUploadFixture(t)
	mock.Entries["/roms/snes"] = []remote.Entry{
		{Name: "a.zip", Size: 100},
		{Name: "saves", IsDir: true},
	}

	a := writeLocalFile(t, "a.zip", 100)
	b := writeLocalFile(t, "b.zip", 50)

	warnings := exec.PreflightDuplicates(context.Background(), p, "/roms/snes", []transfer.LocalFile{a, b})

	require.Len(t, warnings, 1)
	assert.Equal(t, "a.zip", warnings[0].FileName)
	assert.True(t, warnings[0].SizeMatch())
	assert.Equal(t, 1, mock.ListCnt, "exactly one listing")
}

func TestPreflightDuplicatesAdvisoryOnFailure(t *testing.T) {
	exec, mock, p, store := newUploadFixture(t)
	mock.ListErr = errors.New("permission denied")

	f := writeLocalFile(t, "a.zip", 10)
	assert.Empty(t, exec.PreflightDuplicates(context.Background(), p, "/roms", []transfer.LocalFile{f}))

	// Unresolvable credentials degrade the same way, before any I/O.
	require.NoError(t, store.Delete(secrets.Key(p.ID, secrets.KindPassword)))
	connects := mock.ConnectCnt
	assert.Empty(t, exec.PreflightDuplicates(context.Background(), p, "/roms", []transfer.LocalFile{f}))
	assert.Equal(t, connects, mock.ConnectCnt)
}

func TestUploadCancelledContext(t *testing.T) {
	exec, _, p, _ := newUploadFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := writeLocalFile(t, "a.zip", 10)
	err := exec.Upload(ctx, p, "/roms", []transfer.LocalFile{f}, nil)

	require.Error(t, err)
	assert.Equal(t, errors.KindCancelled, errors.KindOf(err))
}
