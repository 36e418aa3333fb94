package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/codewithtanvir/find-your-ride-partner/internal/kv"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
	"github.com/codewithtanvir/find-your-ride-partner/internal/observability"
)

// ErrNoData means the network fetch failed and no snapshot, fresh or stale,
// was available. Callers render it as a "no data available" state, not as a
// hard failure.
var ErrNoData = errors.New("no ride data available")

// FetchFunc loads the user's rides and profile from the backend.
type FetchFunc func(ctx context.Context) ([]models.Ride, *models.Profile, error)

// Manager applies the cache-first refresh protocol per user: a valid
// snapshot is served without touching the network; otherwise the fetch runs
// (deduplicated across concurrent callers), a success rewrites the snapshot
// and a failure falls back to whatever stale snapshot exists.
type Manager struct {
	store kv.Store
	clock Clock
	log   *slog.Logger
	group singleflight.Group
}

func NewManager(store kv.Store, clock Clock, log *slog.Logger) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, clock: clock, log: log}
}

// Snapshot returns the given user's view of the shared store.
func (m *Manager) Snapshot(userID string) *Snapshot {
	return NewSnapshot(kv.Prefixed(m.store, "snapshot:"+userID+":"), m.clock, m.log)
}

type fetched struct {
	rides   []models.Ride
	profile *models.Profile
}

// Load returns the user's rides and profile, consulting the snapshot cache
// before the network.
func (m *Manager) Load(ctx context.Context, userID string, fetch FetchFunc) ([]models.Ride, *models.Profile, error) {
	snap := m.Snapshot(userID)

	if snap.Valid(ctx) {
		if rides, profile := snap.Read(ctx); profile != nil {
			observability.SnapshotHits.Inc()
			return rides, profile, nil
		}
	}
	observability.SnapshotMisses.Inc()

	v, err, _ := m.group.Do(userID, func() (any, error) {
		rides, profile, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		snap.Write(ctx, rides, profile)
		return fetched{rides: rides, profile: profile}, nil
	})
	if err != nil {
		if rides, profile := snap.Read(ctx); profile != nil {
			observability.SnapshotFallbacks.Inc()
			m.log.Warn("serving stale snapshot after fetch failure", "user_id", userID, "error", err)
			return rides, profile, nil
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	f := v.(fetched)
	return f.rides, f.profile, nil
}

// Invalidate drops the user's snapshot, forcing the next Load to refetch.
// Used after mutations so a freshly posted ride shows up immediately.
func (m *Manager) Invalidate(ctx context.Context, userID string) {
	m.Snapshot(userID).Clear(ctx)
}
