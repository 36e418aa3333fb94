// Package admin implements moderation: blocking users and removing rides or
// profiles, each action recorded in the audit trail.
package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codewithtanvir/find-your-ride-partner/internal/backend"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

// Publisher forwards audit entries to the event broker. Optional; publishing
// is best effort and never blocks a moderation action.
type Publisher interface {
	Publish(ctx context.Context, e models.AuditEntry) error
}

type Service struct {
	Store     backend.Store
	Publisher Publisher
	Log       *slog.Logger
}

func NewService(store backend.Store, pub Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{Store: store, Publisher: pub, Log: log}
}

func (s *Service) BlockUser(ctx context.Context, actorID, userID, reason string) error {
	if err := s.Store.UpdateProfileStatus(ctx, userID, models.StatusBlocked); err != nil {
		return err
	}
	s.record(ctx, actorID, models.AuditBlockUser, userID, reason)
	return nil
}

func (s *Service) UnblockUser(ctx context.Context, actorID, userID, reason string) error {
	if err := s.Store.UpdateProfileStatus(ctx, userID, models.StatusActive); err != nil {
		return err
	}
	s.record(ctx, actorID, models.AuditUnblockUser, userID, reason)
	return nil
}

func (s *Service) DeleteRide(ctx context.Context, actorID, rideID, reason string) error {
	if err := s.Store.DeleteRide(ctx, rideID); err != nil {
		return err
	}
	s.record(ctx, actorID, models.AuditDeleteRide, rideID, reason)
	return nil
}

func (s *Service) DeleteProfile(ctx context.Context, actorID, userID, reason string) error {
	if err := s.Store.DeleteProfile(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, actorID, models.AuditDeleteProfile, userID, reason)
	return nil
}

func (s *Service) Audit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return s.Store.ListAudit(ctx, limit)
}

// record appends the entry to the trail and publishes it. Neither failure
// undoes the moderation action itself.
func (s *Service) record(ctx context.Context, actorID string, action models.AuditAction, targetID, reason string) {
	e := models.AuditEntry{
		ID:       uuid.NewString(),
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Reason:   reason,
		At:       time.Now().UTC(),
	}
	if err := s.Store.SaveAudit(ctx, &e); err != nil {
		s.Log.Error("audit entry not saved", "action", action, "target", targetID, "error", err)
	}
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, e); err != nil {
		s.Log.Warn("audit entry not published", "action", action, "target", targetID, "error", err)
	}
}
