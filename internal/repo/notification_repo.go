package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// NotificationRepo defines the interface for notification repository operations.
// Notifications are keyed by owner; no table scans.
type NotificationRepo interface {
	Insert(ctx context.Context, notification *model.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo creates a new NotificationRepo instance
func NewNotificationRepo(db *sql.DB) NotificationRepo {
	return &notificationRepo{db: db}
}

// Insert creates a new notification for a user
func (r *notificationRepo) Insert(ctx context.Context, notification *model.Notification) error {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, notification.UserID, notification.Type, notification.Title, notification.Message,
	).Scan(&idStr, &notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	notification.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("parse notification ID: %w", err)
	}
	return nil
}

// ListForUser returns up to limit notifications for the user, newest first
func (r *notificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var idStr, userStr string
		if err := rows.Scan(&idStr, &userStr, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID, _ = uuid.Parse(idStr)
		n.UserID, _ = uuid.Parse(userStr)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one notification read; the owner condition prevents cross-user updates
func (r *notificationRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks all of the user's unread notifications read and returns the count
func (r *notificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
