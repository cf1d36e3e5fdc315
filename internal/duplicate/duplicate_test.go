package duplicate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romvault/romvault/internal/duplicate"
	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/remote"
)

var testCreds = profile.Credentials{Host: "nas.local", Port: 22, Username: "pi", Password: "pw"}

func TestDetectReportsNameCollision(t *testing.T) {
	mock := remote.NewMock()
	mock.Entries["/roms"] = []remote.Entry{
		{Name: "game.zip", Size: 1000},
		{Name: "other.zip", Size: 50},
	}

	candidates := []duplicate.Candidate{{Name: "game.zip", SizeBytes: 1000}}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/roms", candidates)

	require.Len(t, warnings, 1)
	assert.Equal(t, "game.zip", warnings[0].FileName)
	assert.Equal(t, int64(1000), warnings[0].ExistingSize)
	assert.Equal(t, int64(1000), warnings[0].NewSize)
	assert.Equal(t, "/roms", warnings[0].RemotePath)
	assert.True(t, warnings[0].SizeMatch())
}

func TestDetectSizeMismatch(t *testing.T) {
	mock := remote.NewMock()
	mock.Entries["/roms"] = []remote.Entry{{Name: "game.zip", Size: 1000}}

	candidates := []duplicate.Candidate{{Name: "game.zip", SizeBytes: 999}}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/roms", candidates)

	require.Len(t, warnings, 1)
	assert.False(t, warnings[0].SizeMatch())
}

func TestDetectIgnoresDirectories(t *testing.T) {
	mock := remote.NewMock()
	mock.Entries["/roms"] = []remote.Entry{{Name: "game.zip", Size: 0, IsDir: true}}

	candidates := []duplicate.Candidate{{Name: "game.zip", SizeBytes: 1000}}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/roms", candidates)

	assert.Empty(t, warnings)
}

func TestDetectListsExactlyOnce(t *testing.T) {
	mock := remote.NewMock()
	mock.Entries["/roms"] = []remote.Entry{
		{Name: "a.zip", Size: 1},
		{Name: "b.zip", Size: 2},
	}

	candidates := []duplicate.Candidate{
		{Name: "a.zip", SizeBytes: 1},
		{Name: "b.zip", SizeBytes: 2},
		{Name: "c.zip", SizeBytes: 3},
	}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/roms", candidates)

	assert.Len(t, warnings, 2)
	assert.Equal(t, 1, mock.ListCnt)
	assert.True(t, mock.Closed, "connection must be released")
}

func TestDetectListErrorYieldsEmptySet(t *testing.T) {
	mock := remote.NewMock()
	mock.ListErr = errors.New("no such directory")

	candidates := []duplicate.Candidate{{Name: "game.zip", SizeBytes: 1000}}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/missing", candidates)

	assert.Empty(t, warnings)
}

func TestDetectConnectErrorYieldsEmptySet(t *testing.T) {
	mock := remote.NewMock()
	mock.ConnectErr = errors.New("unreachable")

	candidates := []duplicate.Candidate{{Name: "game.zip", SizeBytes: 1000}}
	warnings := duplicate.Detect(context.Background(), mock, testCreds, profile.AuthPassword, "/roms", candidates)

	assert.Empty(t, warnings)
}
