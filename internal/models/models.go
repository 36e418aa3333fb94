package models

import "time"

// Gender partitions the matching pool. Rides only ever match inside one cohort.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Ride is a planned trip posted by a user. From and To are free-form location
// labels compared case-insensitively; Time is the planned departure as an
// RFC3339 timestamp kept in wire form so a malformed value degrades to a
// non-match instead of failing a whole listing. Rides are created and
// deleted, never edited in place.
type Ride struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Time      string    `json:"time"`
	Gender    Gender    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Poster contact fields, populated only on candidate queries.
	PosterName     string `json:"poster_name,omitempty"`
	PosterWhatsApp string `json:"poster_whatsapp,omitempty"`
	PosterEmail    string `json:"poster_email,omitempty"`
	PosterAvatar   string `json:"poster_avatar,omitempty"`
}

// Profile is the per-user record, upserted on profile setup.
type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Gender    Gender    `json:"gender"`
	WhatsApp  string    `json:"whatsapp"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditAction enumerates the moderation actions recorded in the audit trail.
type AuditAction string

const (
	AuditBlockUser     AuditAction = "block_user"
	AuditUnblockUser   AuditAction = "unblock_user"
	AuditDeleteRide    AuditAction = "delete_ride"
	AuditDeleteProfile AuditAction = "delete_profile"
)

// AuditEntry is one moderation event. Entries are append-only.
type AuditEntry struct {
	ID       string      `json:"id"`
	ActorID  string      `json:"actor_id"`
	Action   AuditAction `json:"action"`
	TargetID string      `json:"target_id"`
	Reason   string      `json:"reason,omitempty"`
	At       time.Time   `json:"at"`
}
