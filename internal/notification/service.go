// Package notification manages in-app notifications, keyed by owner.
package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

// ListLimit caps notification listings
const ListLimit = 100

// Service creates and manages user notifications
type Service struct {
	notificationRepo repo.NotificationRepo
	userRepo         repo.UserRepo
}

// NewService creates a notification service
func NewService(notificationRepo repo.NotificationRepo, userRepo repo.UserRepo) *Service {
	return &Service{notificationRepo: notificationRepo, userRepo: userRepo}
}

// Create adds a notification for a user
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType, title, message string) (model.Notification, error) {
	entry := model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}
	if err := s.notificationRepo.Insert(ctx, &entry); err != nil {
		return model.Notification{}, err
	}
	return entry, nil
}

// List returns the user's notifications, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	return s.notificationRepo.ListForUser(ctx, userID, ListLimit)
}

// MarkRead marks one of the user's notifications read
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	err := s.notificationRepo.MarkRead(ctx, userID, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.E(apperr.NotFound, "notification not found")
	}
	return err
}

// MarkAllRead marks all of the user's notifications read
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}

// SendDailyReminders creates the daily health-check reminder for every user.
// Per-user failures are logged and skipped.
func (s *Service) SendDailyReminders(ctx context.Context) error {
	ids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	failed := 0
	for _, id := range ids {
		_, err := s.Create(ctx, id, "reminder",
			"Daily Health Check",
			"Remember to log your meals, activities, and sleep today!")
		if err != nil {
			log.Printf("daily reminder for user %s failed: %v", id, err)
			failed++
		}
	}
	log.Printf("daily reminders: %d sent, %d failed", len(ids)-failed, failed)
	return nil
}
