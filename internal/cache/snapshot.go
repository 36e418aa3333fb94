// Package cache implements the offline data cache: a snapshot of the
// current user's rides and profile persisted in a key-value store with a
// fixed 15-minute freshness window.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/codewithtanvir/find-your-ride-partner/internal/kv"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

// TTL is how long a written snapshot counts as fresh.
const TTL = 15 * time.Minute

const (
	keyRides     = "rides"
	keyProfile   = "profile"
	keyLastFetch = "lastFetchTime"
)

// Clock supplies "now" so freshness can be tested without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Snapshot stores the last-fetched rides and profile under three keys:
// keyRides, keyProfile and keyLastFetch (millisecond epoch). The three
// writes are not transactional; a torn write is accepted and surfaces as a
// cache miss or a stale read, never as an error.
type Snapshot struct {
	store kv.Store
	clock Clock
	log   *slog.Logger
}

func NewSnapshot(store kv.Store, clock Clock, log *slog.Logger) *Snapshot {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Snapshot{store: store, clock: clock, log: log}
}

// Valid reports whether a fetch stamp exists and is younger than TTL.
func (s *Snapshot) Valid(ctx context.Context) bool {
	raw, ok, err := s.store.Get(ctx, keyLastFetch)
	if err != nil || !ok {
		return false
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return s.clock.Now().Sub(time.UnixMilli(ms)) < TTL
}

// Read returns the persisted snapshot. Missing, corrupt or unparsable
// storage yields (nil, nil); corruption is logged and swallowed so one bad
// record never aborts a data load.
func (s *Snapshot) Read(ctx context.Context) ([]models.Ride, *models.Profile) {
	rawRides, ok, err := s.store.Get(ctx, keyRides)
	if err != nil || !ok {
		return nil, nil
	}
	rawProfile, ok, err := s.store.Get(ctx, keyProfile)
	if err != nil || !ok {
		return nil, nil
	}

	var rides []models.Ride
	if err := json.Unmarshal(rawRides, &rides); err != nil {
		s.log.Warn("discarding corrupt ride snapshot", "error", err)
		return nil, nil
	}
	var profile models.Profile
	if err := json.Unmarshal(rawProfile, &profile); err != nil {
		s.log.Warn("discarding corrupt profile snapshot", "error", err)
		return nil, nil
	}
	return rides, &profile
}

// Write persists a new snapshot and stamps the fetch time. Writes are best
// effort: a storage failure (quota, connectivity) is logged and the prior
// state is left to serve stale reads.
func (s *Snapshot) Write(ctx context.Context, rides []models.Ride, profile *models.Profile) {
	rawRides, err := json.Marshal(rides)
	if err != nil {
		s.log.Warn("snapshot write skipped", "error", err)
		return
	}
	rawProfile, err := json.Marshal(profile)
	if err != nil {
		s.log.Warn("snapshot write skipped", "error", err)
		return
	}
	if err := s.store.Set(ctx, keyRides, rawRides); err != nil {
		s.log.Warn("snapshot ride write failed", "error", err)
		return
	}
	if err := s.store.Set(ctx, keyProfile, rawProfile); err != nil {
		s.log.Warn("snapshot profile write failed", "error", err)
		return
	}
	stamp := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
	if err := s.store.Set(ctx, keyLastFetch, []byte(stamp)); err != nil {
		s.log.Warn("snapshot stamp write failed", "error", err)
	}
}

// Clear removes all three keys unconditionally.
func (s *Snapshot) Clear(ctx context.Context) {
	for _, k := range []string{keyRides, keyProfile, keyLastFetch} {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warn("snapshot clear failed", "key", k, "error", err)
		}
	}
}
