package backend

import (
	"context"
	"sort"
	"sync"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

// MemoryStore keeps everything in process memory. It backs local runs
// without a database and the handler tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	rides    map[string]models.Ride
	audit    []models.AuditEntry
	order    []string // ride insertion order, for deterministic listings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]models.Profile),
		rides:    make(map[string]models.Ride),
	}
}

func (m *MemoryStore) ProfileByUser(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = *p
	return nil
}

func (m *MemoryStore) DeleteProfile(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, userID)
	return nil
}

func (m *MemoryStore) UpdateProfileStatus(ctx context.Context, userID string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) RidesByUser(ctx context.Context, userID string) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Ride
	for _, id := range m.order {
		r := m.rides[id]
		if r.UserID == userID {
			out = append(out, models.Ride{ID: r.ID, UserID: r.UserID, From: r.From, To: r.To, Time: r.Time})
		}
	}
	return out, nil
}

func (m *MemoryStore) CandidateRides(ctx context.Context, gender models.Gender, excludeUserID string) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Ride
	for _, id := range m.order {
		r, ok := m.rides[id]
		if !ok || r.Gender != gender || r.UserID == excludeUserID {
			continue
		}
		if p, ok := m.profiles[r.UserID]; ok {
			if p.Status == models.StatusBlocked {
				continue
			}
			r.PosterName = p.Name
			r.PosterWhatsApp = p.WhatsApp
			r.PosterEmail = p.Email
			r.PosterAvatar = p.AvatarURL
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) RideByID(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) InsertRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rides[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) DeleteRide(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, id)
	return nil
}

func (m *MemoryStore) SaveAudit(ctx context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *MemoryStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AuditEntry, len(m.audit))
	copy(out, m.audit)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
