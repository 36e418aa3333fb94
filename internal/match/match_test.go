package match

import (
	"testing"
	"time"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

func ride(id, from, to string, at time.Time) models.Ride {
	return models.Ride{ID: id, From: from, To: to, Time: at.Format(time.RFC3339)}
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestMatchSameRouteWithinWindow(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	cands := []models.Ride{ride("c1", "campus", "KURIL", base.Add(20*time.Minute))}
	got := Match(mine, cands, base)
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected c1 to match, got %v", got)
	}
}

func TestMatchWindowBoundaryInclusive(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	exact := ride("c1", "Campus", "Kuril", base.Add(30*time.Minute))
	over := ride("c2", "Campus", "Kuril", base.Add(30*time.Minute+time.Second))

	if got := Match(mine, []models.Ride{exact}, base); len(got) != 1 {
		t.Fatalf("exactly 30m apart must match, got %v", got)
	}
	if got := Match(mine, []models.Ride{over}, base); len(got) != 0 {
		t.Fatalf("30m1s apart must not match, got %v", got)
	}
}

func TestMatchRouteIsDirectional(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	cands := []models.Ride{ride("c1", "Kuril", "Campus", base.Add(5*time.Minute))}
	if got := Match(mine, cands, base); len(got) != 0 {
		t.Fatalf("reversed route must not match, got %v", got)
	}
}

func TestMatchRequiresSameCalendarDay(t *testing.T) {
	// 23:50 and 00:10 the next day are 20 minutes apart but on different days.
	late := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	mine := []models.Ride{ride("m1", "Campus", "Kuril", late)}
	cands := []models.Ride{ride("c1", "Campus", "Kuril", late.Add(20*time.Minute))}
	if got := Match(mine, cands, late); len(got) != 0 {
		t.Fatalf("cross-midnight pair must not match, got %v", got)
	}
}

func TestMatchOrdersByProximityToNow(t *testing.T) {
	now := base
	mine := []models.Ride{ride("m1", "Campus", "Kuril", now)}
	cands := []models.Ride{
		ride("plus10", "Campus", "Kuril", now.Add(10*time.Minute)),
		ride("plus40", "Campus", "Kuril", now.Add(25*time.Minute)),
		ride("minus5", "Campus", "Kuril", now.Add(-5*time.Minute)),
	}
	got := Match(mine, cands, now.Add(-15*time.Minute))
	// relative to now-15m the distances are 25m, 40m and 10m
	want := []string{"minus5", "plus10", "plus40"}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestMatchStableOnTies(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	a := ride("a", "Campus", "Kuril", base.Add(10*time.Minute))
	b := ride("b", "Campus", "Kuril", base.Add(10*time.Minute))
	got := Match(mine, []models.Ride{a, b}, base)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("tie must keep input order, got %v", got)
	}
}

func TestMatchCandidateIncludedOnce(t *testing.T) {
	mine := []models.Ride{
		ride("m1", "Campus", "Kuril", base),
		ride("m2", "Campus", "Kuril", base.Add(10*time.Minute)),
	}
	cands := []models.Ride{ride("c1", "Campus", "Kuril", base.Add(5*time.Minute))}
	if got := Match(mine, cands, base); len(got) != 1 {
		t.Fatalf("candidate matching two own rides must appear once, got %v", got)
	}
}

func TestMatchMalformedFieldsNeverMatch(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	cands := []models.Ride{
		{ID: "badtime", From: "Campus", To: "Kuril", Time: "not-a-timestamp"},
		{ID: "nofrom", To: "Kuril", Time: base.Format(time.RFC3339)},
		{ID: "notime", From: "Campus", To: "Kuril"},
	}
	if got := Match(mine, cands, base); len(got) != 0 {
		t.Fatalf("malformed candidates must be skipped, got %v", got)
	}

	// a malformed own ride must not abort matching for the rest
	mine = append([]models.Ride{{ID: "m0", From: "Campus", To: "Kuril", Time: "garbage"}}, mine...)
	cands = []models.Ride{ride("c1", "Campus", "Kuril", base.Add(5*time.Minute))}
	if got := Match(mine, cands, base); len(got) != 1 {
		t.Fatalf("valid pair must still match, got %v", got)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	c := ride("c1", "Campus", "Kuril", base)
	if got := Match(nil, []models.Ride{c}, base); len(got) != 0 {
		t.Fatalf("empty myRides must yield empty result, got %v", got)
	}
	if got := Match([]models.Ride{c}, nil, base); len(got) != 0 {
		t.Fatalf("empty candidates must yield empty result, got %v", got)
	}
}

func TestMatchIsIdempotent(t *testing.T) {
	mine := []models.Ride{ride("m1", "Campus", "Kuril", base)}
	cands := []models.Ride{
		ride("c1", "Campus", "Kuril", base.Add(5*time.Minute)),
		ride("c2", "Campus", "Kuril", base.Add(-10*time.Minute)),
	}
	first := Match(mine, cands, base)
	second := Match(mine, cands, base)
	if len(first) != len(second) {
		t.Fatalf("length differs across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("position %d differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestFilterCohort(t *testing.T) {
	cands := []models.Ride{
		{ID: "self", UserID: "u1", Gender: models.GenderMale},
		{ID: "other", UserID: "u2", Gender: models.GenderMale},
		{ID: "cross", UserID: "u3", Gender: models.GenderFemale},
		{ID: "untagged", UserID: "u4"},
	}
	got := FilterCohort(models.GenderMale, "u1", cands)
	if len(got) != 2 || got[0].ID != "other" || got[1].ID != "untagged" {
		t.Fatalf("expected [other untagged], got %v", got)
	}
}
