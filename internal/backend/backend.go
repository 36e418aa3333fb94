// Package backend is the persistence boundary the app delegates to. The
// interfaces mirror the queries and mutations of the hosted data service the
// web client talked to; both a Postgres and an in-memory implementation are
// provided.
package backend

import (
	"context"
	"errors"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store covers profiles, rides and the moderation audit trail.
type Store interface {
	ProfileByUser(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, userID string) error
	UpdateProfileStatus(ctx context.Context, userID string, status models.Status) error

	// RidesByUser returns the user's own rides projected to route fields.
	RidesByUser(ctx context.Context, userID string) ([]models.Ride, error)
	// CandidateRides returns active posters' rides in the gender cohort,
	// excluding the given user, joined with poster contact fields.
	CandidateRides(ctx context.Context, gender models.Gender, excludeUserID string) ([]models.Ride, error)
	RideByID(ctx context.Context, id string) (*models.Ride, error)
	InsertRide(ctx context.Context, r *models.Ride) error
	DeleteRide(ctx context.Context, id string) error

	SaveAudit(ctx context.Context, e *models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// BlobStore persists uploaded binaries (avatars) and returns a public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}
