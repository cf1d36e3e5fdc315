// Package remote abstracts the file-transfer protocol used to reach
// user-configured file servers. The engine only depends on the Client
// interface; the live implementation speaks SFTP.
package remote

import (
	"context"
	"io"

	"github.com/romvault/romvault/internal/profile"
)

// Entry is one item of a remote directory listing.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Client is an opaque connection to one remote file server. A Client is
// single-use: Connect, perform operations, Close.
type Client interface {
	// Connect dials and authenticates using the resolved credentials.
	Connect(ctx context.Context, creds profile.Credentials, method profile.AuthMethod) error

	// List returns the entries of a remote directory.
	List(ctx context.Context, path string) ([]Entry, error)

	// Upload streams r to remotePath, reporting byte increments.
	Upload(ctx context.Context, r io.Reader, remotePath string, progress func(int64)) error

	// Download streams remotePath to w, reporting byte increments.
	Download(ctx context.Context, remotePath string, w io.Writer, progress func(int64)) error

	// Mkdir creates a remote directory, including intermediate segments.
	Mkdir(ctx context.Context, path string) error

	// Close releases the connection. Safe to call on a client that never
	// connected.
	Close() error
}

// Factory creates a fresh Client per connection use, so every transfer
// gets its own scoped connect/disconnect pair.
type Factory func() Client
