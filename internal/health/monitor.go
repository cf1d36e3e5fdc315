// Package health maintains a per-connection reachability cache fed by
// bounded-time probes. Status is display-only: transfers never wait on
// or consult a probe.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/remote"
	"github.com/romvault/romvault/internal/secrets"
)

const (
	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 10 * time.Second

	// DefaultStatusTTL is how long a cached status is trusted.
	DefaultStatusTTL = 30 * time.Second
)

// Prober performs one connectivity+auth check against a profile. It must
// honor context cancellation.
type Prober func(ctx context.Context, p profile.Profile) error

// ConnectProber probes by resolving credentials and performing a full
// connect/authenticate/disconnect cycle.
func ConnectProber(factory remote.Factory, store secrets.Store) Prober {
	return func(ctx context.Context, p profile.Profile) error {
		creds, err := secrets.Resolve(store, &p)
		if err != nil {
			return err
		}

		client := factory()
		defer client.Close()

		return client.Connect(ctx, creds, p.AuthMethod)
	}
}

type entry struct {
	status    profile.Status
	checkedAt time.Time
}

// Monitor caches connection statuses keyed by profile id. All cache
// access is serialized through one mutex; concurrent probes for
// different profiles never wait on each other's I/O.
type Monitor struct {
	mu    sync.RWMutex
	cache map[uuid.UUID]entry

	probe   Prober
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
}

// NewMonitor creates a monitor around the given prober. Zero durations
// fall back to the defaults.
func NewMonitor(probe Prober, timeout, ttl time.Duration) *Monitor {
	return NewMonitorWithNow(probe, timeout, ttl, time.Now)
}

// NewMonitorWithNow creates a monitor with a custom time source (for tests).
func NewMonitorWithNow(probe Prober, timeout, ttl time.Duration, now func() time.Time) *Monitor {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		cache:   make(map[uuid.UUID]entry),
		probe:   probe,
		timeout: timeout,
		ttl:     ttl,
		now:     now,
	}
}

// Check returns the profile's status, probing only when the cached entry
// is missing, expired, or force is set. The probe is hard-bounded by the
// monitor's timeout; the slower of probe and timer is cancelled, not
// leaked.
func (m *Monitor) Check(ctx context.Context, p *profile.Profile, force bool) profile.Status {
	if !force {
		if status, ok := m.Cached(p.ID); ok {
			p.Status = status
			return status
		}
	}

	p.Status = profile.StatusConnecting

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.probe(probeCtx, *p)
	}()

	var err error
	select {
	case err = <-done:
	case <-probeCtx.Done():
		// cancel() stops the losing probe; its result is discarded.
		err = errors.NewTimeoutError(probeCtx.Err(), p.Addr())
	}

	status := profile.StatusConnected
	if err != nil {
		status = profile.StatusError
		log.Debug().Err(err).Str("profile", p.ID.String()).Msg("probe failed")
	}

	m.mu.Lock()
	m.cache[p.ID] = entry{status: status, checkedAt: m.now()}
	m.mu.Unlock()

	p.Status = status
	return status
}

// CheckAll probes every profile concurrently, each with its own
// independent timeout. One profile's failure does not affect another's
// outcome.
func (m *Monitor) CheckAll(ctx context.Context, profiles []*profile.Profile, force bool) map[uuid.UUID]profile.Status {
	results := make(map[uuid.UUID]profile.Status, len(profiles))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range profiles {
		p := p
		g.Go(func() error {
			status := m.Check(gctx, p, force)

			mu.Lock()
			results[p.ID] = status
			mu.Unlock()

			return nil
		})
	}

	// Probes never return errors through the group; Wait only joins.
	_ = g.Wait()

	return results
}

// Cached returns the cached status for a profile if a non-expired entry
// exists.
func (m *Monitor) Cached(id uuid.UUID) (profile.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.cache[id]
	if !ok || m.now().Sub(e.checkedAt) > m.ttl {
		return profile.StatusDisconnected, false
	}

	return e.status, true
}

// ClearCache drops every cached entry.
func (m *Monitor) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache = make(map[uuid.UUID]entry)
}

// ClearEntry drops one profile's cached entry, used when the profile is
// edited or deleted so stale status is never shown.
func (m *Monitor) ClearEntry(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, id)
}
