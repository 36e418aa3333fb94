package match

import (
	"sort"
	"strings"
	"time"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

// Window is how far apart two departures may be and still pair up.
// The boundary is inclusive: exactly 30 minutes apart still matches.
const Window = 30 * time.Minute

// Match pairs the current user's posted rides against a candidate pool and
// returns the candidates that share a route with at least one of them.
//
// A candidate c matches a ride m when the lowercased From/To labels are equal
// (directional: A->B never matches B->A), both departures fall on the same
// UTC calendar day, and the departures are within Window of each other.
// Retained candidates are ordered by proximity of their departure to now,
// closest first; ties keep input order.
//
// The function is pure and never fails: a candidate or ride with a missing
// or malformed From, To or Time simply never matches. A candidate that
// matches several of the user's rides appears once.
func Match(myRides, candidates []models.Ride, now time.Time) []models.Ride {
	if len(myRides) == 0 || len(candidates) == 0 {
		return []models.Ride{}
	}

	type plan struct {
		from, to string
		at       time.Time
	}
	plans := make([]plan, 0, len(myRides))
	for _, m := range myRides {
		at, ok := parseTime(m.Time)
		if !ok || m.From == "" || m.To == "" {
			continue
		}
		plans = append(plans, plan{strings.ToLower(m.From), strings.ToLower(m.To), at})
	}

	type scored struct {
		ride models.Ride
		dist time.Duration
	}
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		at, ok := parseTime(c.Time)
		if !ok || c.From == "" || c.To == "" {
			continue
		}
		from, to := strings.ToLower(c.From), strings.ToLower(c.To)
		for _, p := range plans {
			if p.from != from || p.to != to {
				continue
			}
			if !sameDay(p.at, at) {
				continue
			}
			if absDuration(p.at.Sub(at)) > Window {
				continue
			}
			kept = append(kept, scored{c, absDuration(at.Sub(now))})
			break
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].dist < kept[j].dist })

	out := make([]models.Ride, len(kept))
	for i, s := range kept {
		out[i] = s.ride
	}
	return out
}

// FilterCohort re-validates a candidate pool that is normally pre-filtered
// upstream: it drops the user's own rides and any ride outside the gender
// cohort. Rides without a gender value are kept; the pool query owns that
// invariant.
func FilterCohort(gender models.Gender, userID string, candidates []models.Ride) []models.Ride {
	out := make([]models.Ride, 0, len(candidates))
	for _, c := range candidates {
		if c.UserID != "" && c.UserID == userID {
			continue
		}
		if c.Gender != "" && gender != "" && c.Gender != gender {
			continue
		}
		out = append(out, c)
	}
	return out
}

// parseTime accepts RFC3339 with or without sub-second precision.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sameDay compares calendar dates in UTC. Comparing each timestamp's local
// date would make day-matching depend on the poster's zone, so everything is
// canonicalized first.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
