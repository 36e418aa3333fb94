package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewithtanvir/find-your-ride-partner/internal/admin"
	"github.com/codewithtanvir/find-your-ride-partner/internal/backend"
	"github.com/codewithtanvir/find-your-ride-partner/internal/cache"
	"github.com/codewithtanvir/find-your-ride-partner/internal/match"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
	"github.com/codewithtanvir/find-your-ride-partner/internal/observability"
	"github.com/codewithtanvir/find-your-ride-partner/internal/offline"
)

// identityHeader carries the opaque user identity minted by the external
// auth service that fronts this API.
const identityHeader = "X-User-ID"

const maxAvatarBytes = 2 << 20

type Server struct {
	store   backend.Store
	blobs   backend.BlobStore
	cache   *cache.Manager
	gateway *offline.Gateway
	admin   *admin.Service
	watch   *offline.Watcher
	origin  *url.URL
	logger  *slog.Logger
	mux     *mux.Router
}

func NewServer(store backend.Store, blobs backend.BlobStore, cm *cache.Manager, gw *offline.Gateway, adm *admin.Service, watch *offline.Watcher, origin *url.URL, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if watch == nil {
		watch = offline.NewWatcher(true)
	}
	s := &Server{
		store: store, blobs: blobs, cache: cm, gateway: gw, admin: adm,
		watch: watch, origin: origin, logger: logger, mux: mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rides", s.handleCreateRide).Methods("POST")
	api.HandleFunc("/rides/{id}", s.handleDeleteRide).Methods("DELETE")
	api.HandleFunc("/rides/matches", s.handleMatches).Methods("GET")
	api.HandleFunc("/profile", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/profile", s.handleUpsertProfile).Methods("PUT")
	api.HandleFunc("/profile/avatar", s.handleUploadAvatar).Methods("POST")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	adm := s.mux.PathPrefix("/admin").Subrouter()
	adm.Use(s.requireAdmin)
	adm.HandleFunc("/users/{id}/block", s.handleBlockUser).Methods("POST")
	adm.HandleFunc("/users/{id}/unblock", s.handleUnblockUser).Methods("POST")
	adm.HandleFunc("/rides/{id}", s.handleAdminDeleteRide).Methods("DELETE")
	adm.HandleFunc("/profiles/{id}", s.handleAdminDeleteProfile).Methods("DELETE")
	adm.HandleFunc("/audit", s.handleAudit).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())

	// everything else is a static-asset request served through the offline
	// gateway; registered last so API routes keep precedence
	if s.gateway != nil {
		s.mux.PathPrefix("/").HandlerFunc(s.handleAsset)
	}
}

func (s *Server) identity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(identityHeader))
}

type rideRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Time string `json:"time"`
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req rideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if _, err := time.Parse(time.RFC3339, req.Time); err != nil {
		writeError(w, http.StatusBadRequest, "time must be an RFC3339 timestamp")
		return
	}

	profile, err := s.store.ProfileByUser(r.Context(), userID)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusUnprocessableEntity, "complete your profile before posting a ride")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if profile.Gender == "" {
		writeError(w, http.StatusUnprocessableEntity, "profile gender is required for matching")
		return
	}
	if profile.Status == models.StatusBlocked {
		writeError(w, http.StatusForbidden, "account is blocked")
		return
	}

	ride := &models.Ride{
		ID:        uuid.NewString(),
		UserID:    userID,
		From:      req.From,
		To:        req.To,
		Time:      req.Time,
		Gender:    profile.Gender,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertRide(r.Context(), ride); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.cache.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleDeleteRide(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	rideID := mux.Vars(r)["id"]
	ride, err := s.store.RideByID(r.Context(), rideID)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ride not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if ride.UserID != userID && !s.isAdmin(r) {
		writeError(w, http.StatusForbidden, "not your ride")
		return
	}
	if err := s.store.DeleteRide(r.Context(), rideID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.cache.Invalidate(r.Context(), ride.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	ctx := r.Context()

	myRides, profile, err := s.cache.Load(ctx, userID, s.fetchSnapshot(userID))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "complete your profile before matching")
			return
		}
		if errors.Is(err, cache.ErrNoData) {
			// offline with an empty cache: an explicit empty state, not an error
			writeJSON(w, http.StatusOK, map[string]any{
				"matches": []models.Ride{},
				"notice":  "no data available",
			})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if profile == nil || profile.Gender == "" {
		writeError(w, http.StatusUnprocessableEntity, "profile gender is required for matching")
		return
	}

	candidates, err := s.store.CandidateRides(ctx, profile.Gender, userID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	pool := match.FilterCohort(profile.Gender, userID, candidates)
	matches := match.Match(myRides, pool, time.Now())

	observability.MatchesComputed.Inc()
	observability.MatchesReturned.Add(float64(len(matches)))
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// fetchSnapshot is the network path behind the snapshot cache: the user's
// profile plus their posted rides in one round trip.
func (s *Server) fetchSnapshot(userID string) cache.FetchFunc {
	return func(ctx context.Context) ([]models.Ride, *models.Profile, error) {
		profile, err := s.store.ProfileByUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		rides, err := s.store.RidesByUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		return rides, profile, nil
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	profile, err := s.store.ProfileByUser(r.Context(), userID)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not set up")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var p models.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Gender != models.GenderMale && p.Gender != models.GenderFemale {
		writeError(w, http.StatusUnprocessableEntity, "gender is required")
		return
	}

	now := time.Now().UTC()
	p.UserID = userID
	p.UpdatedAt = now
	existing, err := s.store.ProfileByUser(r.Context(), userID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		p.CreatedAt = now
		p.Role = models.RoleUser
		p.Status = models.StatusActive
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		// role and status are moderation-owned, never client-settable
		p.CreatedAt = existing.CreatedAt
		p.Role = existing.Role
		p.Status = existing.Status
	}

	if err := s.store.UpsertProfile(r.Context(), &p); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.cache.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, &p)
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := s.identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}
	if len(data) > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar exceeds 2MB")
		return
	}

	key := fmt.Sprintf("%s-%s", userID, uuid.NewString())
	avatarURL, err := s.blobs.Upload(r.Context(), key, data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if profile, err := s.store.ProfileByUser(r.Context(), userID); err == nil {
		profile.AvatarURL = avatarURL
		profile.UpdatedAt = time.Now().UTC()
		if err := s.store.UpsertProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.cache.Invalidate(r.Context(), userID)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"avatar_url": avatarURL})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"online": s.watch.Online()})
}

func (s *Server) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, func(ctx context.Context, actorID, targetID, reason string) error {
		return s.admin.BlockUser(ctx, actorID, targetID, reason)
	})
}

func (s *Server) handleUnblockUser(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, func(ctx context.Context, actorID, targetID, reason string) error {
		return s.admin.UnblockUser(ctx, actorID, targetID, reason)
	})
}

func (s *Server) handleAdminDeleteRide(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, func(ctx context.Context, actorID, targetID, reason string) error {
		return s.admin.DeleteRide(ctx, actorID, targetID, reason)
	})
}

func (s *Server) handleAdminDeleteProfile(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, func(ctx context.Context, actorID, targetID, reason string) error {
		return s.admin.DeleteProfile(ctx, actorID, targetID, reason)
	})
}

type moderationRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actorID, targetID, reason string) error) {
	var req moderationRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional
	}
	targetID := mux.Vars(r)["id"]
	err := action(r.Context(), s.identity(r), targetID, req.Reason)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.admin.Audit(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": entries})
}

// handleAsset funnels non-API traffic through the offline gateway, which
// proxies the static asset origin with a network-first cache policy.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	target := s.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	req := &offline.Request{Method: r.Method, URL: target.String(), Navigate: isNavigation(r)}

	resp, err := s.gateway.Handle(r.Context(), req)
	switch {
	case err != nil:
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	case resp == nil:
		writeError(w, http.StatusServiceUnavailable, "offline and not cached")
	default:
		resp.WriteTo(w)
	}
}

// isNavigation mirrors a browser's top-level document load.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (s *Server) isAdmin(r *http.Request) bool {
	p, err := s.store.ProfileByUser(r.Context(), s.identity(r))
	return err == nil && p.Role == models.RoleAdmin
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
