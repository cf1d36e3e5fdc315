// Package transfer executes multi-file upload and download operations:
// admission check, per-file streaming with cumulative progress, and
// commit-or-rollback on completion.
package transfer

import (
	"context"
	"io"

	"github.com/romvault/romvault/internal/device"
	"github.com/romvault/romvault/internal/library"
	"github.com/romvault/romvault/internal/remote"
	"github.com/romvault/romvault/internal/secrets"
)

// ContentFetcher streams one catalog content file. Implemented by
// catalog.Client.
type ContentFetcher interface {
	FetchFile(ctx context.Context, romID int64, fileName string, w io.Writer, progress func(int64)) (int64, error)
}

// Executor moves files between the catalog, the local library, and
// remote file servers.
type Executor struct {
	library *library.Store
	catalog ContentFetcher
	factory remote.Factory
	secrets secrets.Store
	space   device.Space
}

// NewExecutor wires an executor. factory is invoked once per connection
// use so every file transfer gets its own scoped connect/disconnect.
func NewExecutor(lib *library.Store, catalog ContentFetcher, factory remote.Factory, secretStore secrets.Store, space device.Space) *Executor {
	if space == nil {
		space = device.NewDiskSpace()
	}

	return &Executor{
		library: lib,
		catalog: catalog,
		factory: factory,
		secrets: secretStore,
		space:   space,
	}
}
