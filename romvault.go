// Package romvault is the transfer-and-local-storage engine for a ROM
// collection client. It keeps the on-disk record of downloaded ROM sets,
// caches remote-server reachability, and executes multi-file transfers
// with progress, cancellation, and rollback.
package romvault

import (
	"fmt"
	"path/filepath"

	"github.com/romvault/romvault/internal/catalog"
	"github.com/romvault/romvault/internal/config"
	"github.com/romvault/romvault/internal/device"
	"github.com/romvault/romvault/internal/health"
	"github.com/romvault/romvault/internal/library"
	"github.com/romvault/romvault/internal/registry"
	"github.com/romvault/romvault/internal/remote"
	"github.com/romvault/romvault/internal/secrets"
	"github.com/romvault/romvault/internal/transfer"
)

// Engine bundles the engine's components behind one construction point.
// All fields are ready to use after New returns.
type Engine struct {
	Config   *config.Config
	Library  *library.Store
	Registry *registry.Registry
	Secrets  secrets.Store
	Health   *health.Monitor
	Executor *transfer.Executor

	secretDB *secrets.BoltStore
}

// Options overrides pieces of the default wiring. Zero values keep the
// defaults.
type Options struct {
	// CatalogPassword pairs with the configured catalog username for
	// Basic authentication. Secrets never live in the config file.
	CatalogPassword string

	// SecretsPassphrase protects stored credentials at rest.
	SecretsPassphrase string
}

// New loads configuration and wires the engine. Callers own Close.
func New(opts Options) (*Engine, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	secretStore, err := secrets.NewBoltStore(filepath.Join(cfg.DataDir, "secrets.db"), opts.SecretsPassphrase)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(filepath.Join(cfg.DataDir, "registry.db"), secretStore)
	if err != nil {
		secretStore.Close()
		return nil, err
	}

	lib := library.NewStore(cfg.LibraryDir)

	monitor := health.NewMonitor(
		health.ConnectProber(remote.SFTPFactory, secretStore),
		cfg.Health.ProbeTimeout,
		cfg.Health.StatusTTL,
	)
	reg.SetDeleteHook(monitor.ClearEntry)

	cat := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Username, opts.CatalogPassword)
	cat.SetTimeout(cfg.Catalog.Timeout)

	executor := transfer.NewExecutor(lib, cat, remote.SFTPFactory, secretStore, device.NewDiskSpace())

	return &Engine{
		Config:   cfg,
		Library:  lib,
		Registry: reg,
		Secrets:  secretStore,
		Health:   monitor,
		Executor: executor,
		secretDB: secretStore,
	}, nil
}

// Close releases the engine's databases.
func (e *Engine) Close() error {
	var firstErr error

	if err := e.Registry.Close(); err != nil {
		firstErr = err
	}
	if err := e.secretDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
