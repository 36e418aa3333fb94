package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codewithtanvir/find-your-ride-partner/internal/kv"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

type countingFetch struct {
	calls int
	fail  bool
}

func (f *countingFetch) fetch(ctx context.Context) ([]models.Ride, *models.Profile, error) {
	f.calls++
	if f.fail {
		return nil, nil, errors.New("network down")
	}
	return []models.Ride{{ID: "r1"}}, testProfile, nil
}

func TestManagerServesValidCacheWithoutFetch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(kv.NewMemory(), clock, nil)
	f := &countingFetch{}
	ctx := context.Background()

	if _, _, err := m.Load(ctx, "u1", f.fetch); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, _, err := m.Load(ctx, "u1", f.fetch); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected a single fetch while cache is valid, got %d", f.calls)
	}

	clock.Advance(TTL + time.Minute)
	if _, _, err := m.Load(ctx, "u1", f.fetch); err != nil {
		t.Fatalf("load after expiry: %v", err)
	}
	if f.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", f.calls)
	}
}

func TestManagerFallsBackToStaleSnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(kv.NewMemory(), clock, nil)
	f := &countingFetch{}
	ctx := context.Background()

	if _, _, err := m.Load(ctx, "u1", f.fetch); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	clock.Advance(TTL + time.Minute)
	f.fail = true
	rides, profile, err := m.Load(ctx, "u1", f.fetch)
	if err != nil {
		t.Fatalf("stale fallback must not error: %v", err)
	}
	if len(rides) != 1 || profile == nil {
		t.Fatalf("expected stale snapshot, got %v %v", rides, profile)
	}
}

func TestManagerNoDataWhenOfflineAndEmpty(t *testing.T) {
	m := NewManager(kv.NewMemory(), nil, nil)
	f := &countingFetch{fail: true}

	_, _, err := m.Load(context.Background(), "u1", f.fetch)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestManagerIsolatesUsers(t *testing.T) {
	m := NewManager(kv.NewMemory(), nil, nil)
	ctx := context.Background()

	fa := &countingFetch{}
	if _, _, err := m.Load(ctx, "alice", fa.fetch); err != nil {
		t.Fatalf("alice load: %v", err)
	}

	fb := &countingFetch{fail: true}
	if _, _, err := m.Load(ctx, "bob", fb.fetch); !errors.Is(err, ErrNoData) {
		t.Fatalf("bob must not see alice's snapshot, got err=%v", err)
	}
}

func TestManagerInvalidateForcesRefetch(t *testing.T) {
	m := NewManager(kv.NewMemory(), nil, nil)
	f := &countingFetch{}
	ctx := context.Background()

	_, _, _ = m.Load(ctx, "u1", f.fetch)
	m.Invalidate(ctx, "u1")
	_, _, _ = m.Load(ctx, "u1", f.fetch)
	if f.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", f.calls)
	}
}
