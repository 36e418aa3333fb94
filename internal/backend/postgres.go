package backend

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) ProfileByUser(ctx context.Context, userID string) (*models.Profile, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT user_id, name, gender, whatsapp, email, avatar_url, role, status, created_at, updated_at
		 FROM profiles WHERE user_id=$1`, userID)
	var pr models.Profile
	err := row.Scan(&pr.UserID, &pr.Name, &pr.Gender, &pr.WhatsApp, &pr.Email, &pr.AvatarURL,
		&pr.Role, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (p *PostgresStore) UpsertProfile(ctx context.Context, pr *models.Profile) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO profiles(user_id, name, gender, whatsapp, email, avatar_url, role, status, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (user_id) DO UPDATE SET
		   name=EXCLUDED.name, gender=EXCLUDED.gender, whatsapp=EXCLUDED.whatsapp,
		   email=EXCLUDED.email, avatar_url=EXCLUDED.avatar_url, updated_at=EXCLUDED.updated_at`,
		pr.UserID, pr.Name, pr.Gender, pr.WhatsApp, pr.Email, pr.AvatarURL, pr.Role, pr.Status,
		pr.CreatedAt, pr.UpdatedAt)
	return err
}

func (p *PostgresStore) DeleteProfile(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id=$1`, userID)
	return err
}

func (p *PostgresStore) UpdateProfileStatus(ctx context.Context, userID string, status models.Status) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE profiles SET status=$1, updated_at=$2 WHERE user_id=$3`, status, time.Now(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) RidesByUser(ctx context.Context, userID string) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, from_loc, to_loc, depart_time FROM rides WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		r := models.Ride{UserID: userID}
		if err := rows.Scan(&r.ID, &r.From, &r.To, &r.Time); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CandidateRides(ctx context.Context, gender models.Gender, excludeUserID string) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.from_loc, r.to_loc, r.depart_time, r.gender,
		        pr.name, pr.whatsapp, pr.email, pr.avatar_url
		 FROM rides r
		 JOIN profiles pr ON pr.user_id = r.user_id
		 WHERE r.gender=$1 AND r.user_id<>$2 AND pr.status=$3
		 ORDER BY r.created_at`, gender, excludeUserID, models.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		var r models.Ride
		if err := rows.Scan(&r.ID, &r.UserID, &r.From, &r.To, &r.Time, &r.Gender,
			&r.PosterName, &r.PosterWhatsApp, &r.PosterEmail, &r.PosterAvatar); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) RideByID(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, from_loc, to_loc, depart_time, gender, created_at FROM rides WHERE id=$1`, id)
	var r models.Ride
	err := row.Scan(&r.ID, &r.UserID, &r.From, &r.To, &r.Time, &r.Gender, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStore) InsertRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(id, user_id, from_loc, to_loc, depart_time, gender, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.UserID, r.From, r.To, r.Time, r.Gender, r.CreatedAt)
	return err
}

func (p *PostgresStore) DeleteRide(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM rides WHERE id=$1`, id)
	return err
}

func (p *PostgresStore) SaveAudit(ctx context.Context, e *models.AuditEntry) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO audit_log(id, actor_id, action, target_id, reason, at)
		 VALUES($1,$2,$3,$4,$5,$6)`,
		e.ID, e.ActorID, e.Action, e.TargetID, e.Reason, e.At)
	return err
}

func (p *PostgresStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, actor_id, action, target_id, reason, at
		 FROM audit_log ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &e.Reason, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
