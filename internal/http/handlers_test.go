package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codewithtanvir/find-your-ride-partner/internal/admin"
	"github.com/codewithtanvir/find-your-ride-partner/internal/backend"
	"github.com/codewithtanvir/find-your-ride-partner/internal/cache"
	"github.com/codewithtanvir/find-your-ride-partner/internal/kv"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

func testServer(t *testing.T) (*Server, *backend.MemoryStore) {
	t.Helper()
	store := backend.NewMemoryStore()
	cm := cache.NewManager(kv.NewMemory(), nil, nil)
	adm := admin.NewService(store, nil, nil)
	return NewServer(store, backend.NewMemoryBlobStore(), cm, nil, adm, nil, nil, nil), store
}

func seedProfile(t *testing.T, store *backend.MemoryStore, userID string, gender models.Gender, role models.Role) {
	t.Helper()
	err := store.UpsertProfile(context.Background(), &models.Profile{
		UserID: userID, Name: userID, Gender: gender, Role: role,
		Status: models.StatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, srv *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(identityHeader, userID)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestMatchesEndpoint(t *testing.T) {
	srv, store := testServer(t)
	seedProfile(t, store, "me", models.GenderMale, models.RoleUser)
	seedProfile(t, store, "peer", models.GenderMale, models.RoleUser)
	seedProfile(t, store, "far", models.GenderMale, models.RoleUser)

	// fixed timestamps: the clock only influences result ordering
	depart := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = store.InsertRide(ctx, &models.Ride{ID: "mine", UserID: "me", From: "Campus", To: "Kuril",
		Time: depart.Format(time.RFC3339), Gender: models.GenderMale})
	_ = store.InsertRide(ctx, &models.Ride{ID: "good", UserID: "peer", From: "campus", To: "kuril",
		Time: depart.Add(10 * time.Minute).Format(time.RFC3339), Gender: models.GenderMale})
	_ = store.InsertRide(ctx, &models.Ride{ID: "late", UserID: "far", From: "Campus", To: "Kuril",
		Time: depart.Add(2 * time.Hour).Format(time.RFC3339), Gender: models.GenderMale})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/rides/matches", "me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Matches []models.Ride `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].ID != "good" {
		t.Fatalf("expected only the in-window ride, got %v", resp.Matches)
	}
	if resp.Matches[0].PosterName != "peer" {
		t.Fatalf("candidate must carry poster contact fields, got %+v", resp.Matches[0])
	}
}

func TestMatchesRequiresProfile(t *testing.T) {
	srv, _ := testServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/rides/matches", "nobody", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing profile, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateRideValidation(t *testing.T) {
	srv, store := testServer(t)
	seedProfile(t, store, "me", models.GenderFemale, models.RoleUser)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/rides", "me",
		`{"from":"Campus","to":"Kuril","time":"yesterday"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed time must be rejected, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/v1/rides", "me",
		`{"from":"Campus","to":"Kuril","time":"2025-03-10T09:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var ride models.Ride
	_ = json.Unmarshal(w.Body.Bytes(), &ride)
	if ride.Gender != models.GenderFemale {
		t.Fatalf("ride must inherit the poster's gender, got %q", ride.Gender)
	}
}

func TestCreateRideWithoutProfile(t *testing.T) {
	srv, _ := testServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/rides", "ghost",
		`{"from":"Campus","to":"Kuril","time":"2025-03-10T09:00:00Z"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestDeleteRideOwnership(t *testing.T) {
	srv, store := testServer(t)
	seedProfile(t, store, "owner", models.GenderMale, models.RoleUser)
	seedProfile(t, store, "other", models.GenderMale, models.RoleUser)
	_ = store.InsertRide(context.Background(), &models.Ride{ID: "r1", UserID: "owner"})

	if w := doJSON(t, srv, http.MethodDelete, "/api/v1/rides/r1", "other", ""); w.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete must be forbidden, got %d", w.Code)
	}
	if w := doJSON(t, srv, http.MethodDelete, "/api/v1/rides/r1", "owner", ""); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete failed: %d", w.Code)
	}
}

func TestAdminSurfaceRequiresRole(t *testing.T) {
	srv, store := testServer(t)
	seedProfile(t, store, "user", models.GenderMale, models.RoleUser)
	seedProfile(t, store, "boss", models.GenderMale, models.RoleAdmin)

	if w := doJSON(t, srv, http.MethodPost, "/admin/users/user/block", "user", "{}"); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin must get 403, got %d", w.Code)
	}
	if w := doJSON(t, srv, http.MethodPost, "/admin/users/user/block", "boss", `{"reason":"abuse"}`); w.Code != http.StatusNoContent {
		t.Fatalf("admin block failed: %d", w.Code)
	}

	w := doJSON(t, srv, http.MethodGet, "/admin/audit", "boss", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit listing failed: %d", w.Code)
	}
	var resp struct {
		Audit []models.AuditEntry `json:"audit"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Audit) != 1 || resp.Audit[0].Action != models.AuditBlockUser {
		t.Fatalf("expected one block_user entry, got %v", resp.Audit)
	}
}

func TestProfileUpsertKeepsModerationFields(t *testing.T) {
	srv, store := testServer(t)
	seedProfile(t, store, "me", models.GenderMale, models.RoleUser)

	// a client cannot grant itself the admin role through profile setup
	w := doJSON(t, srv, http.MethodPut, "/api/v1/profile", "me",
		`{"name":"Tanvir","gender":"Male","whatsapp":"+880123","role":"admin","status":"active"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert failed: %d %s", w.Code, w.Body.String())
	}

	p, _ := store.ProfileByUser(context.Background(), "me")
	if p.Role != models.RoleUser || p.Status != models.StatusActive || p.Name != "Tanvir" {
		t.Fatalf("unexpected profile %+v", p)
	}
}
