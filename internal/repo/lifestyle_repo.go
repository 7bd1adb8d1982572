package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// LifestyleRepo defines the interface for lifestyle log repository operations
type LifestyleRepo interface {
	Insert(ctx context.Context, log *model.LifestyleLog) error
	ListByKindSince(ctx context.Context, userID uuid.UUID, kind string, since time.Time) ([]model.LifestyleLog, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.LifestyleLog, error)
}

type lifestyleRepo struct {
	db *sql.DB
}

// NewLifestyleRepo creates a new LifestyleRepo instance
func NewLifestyleRepo(db *sql.DB) LifestyleRepo {
	return &lifestyleRepo{db: db}
}

const lifestyleColumns = `id, user_id, kind, image_url, storage_key, nutrition, notes,
	activity_type, duration_min, intensity, sleep_hours, sleep_quality, stress_level, created_at`

// Insert creates a new lifestyle log. Logs are immutable once created.
func (r *lifestyleRepo) Insert(ctx context.Context, log *model.LifestyleLog) error {
	var nutrition interface{}
	if len(log.Nutrition) > 0 {
		nutrition = []byte(log.Nutrition)
	}
	var idStr string
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO lifestyle_logs
			(user_id, kind, image_url, storage_key, nutrition, notes,
			 activity_type, duration_min, intensity, sleep_hours, sleep_quality, stress_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, log.UserID, log.Kind, log.ImageURL, log.StorageKey, nutrition, log.Notes,
		log.ActivityType, log.DurationMin, log.Intensity, log.SleepHours, log.SleepQuality, log.StressLevel,
	).Scan(&idStr, &createdAt)
	if err != nil {
		return fmt.Errorf("insert lifestyle log: %w", err)
	}
	log.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("parse log ID: %w", err)
	}
	log.CreatedAt = createdAt
	return nil
}

// ListByKindSince returns the user's logs of one kind created at or after since, newest first.
func (r *lifestyleRepo) ListByKindSince(ctx context.Context, userID uuid.UUID, kind string, since time.Time) ([]model.LifestyleLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lifestyleColumns+`
		FROM lifestyle_logs
		WHERE user_id = $1 AND kind = $2 AND created_at >= $3
		ORDER BY created_at DESC
	`, userID, kind, since)
	if err != nil {
		return nil, fmt.Errorf("query lifestyle logs: %w", err)
	}
	defer rows.Close()
	return scanLifestyleLogs(rows)
}

// ListSince returns all of the user's logs created at or after since, newest first.
func (r *lifestyleRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.LifestyleLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lifestyleColumns+`
		FROM lifestyle_logs
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query lifestyle logs: %w", err)
	}
	defer rows.Close()
	return scanLifestyleLogs(rows)
}

func scanLifestyleLogs(rows *sql.Rows) ([]model.LifestyleLog, error) {
	var logs []model.LifestyleLog
	for rows.Next() {
		var entry model.LifestyleLog
		var idStr, userIDStr string
		var nutrition []byte
		err := rows.Scan(
			&idStr,
			&userIDStr,
			&entry.Kind,
			&entry.ImageURL,
			&entry.StorageKey,
			&nutrition,
			&entry.Notes,
			&entry.ActivityType,
			&entry.DurationMin,
			&entry.Intensity,
			&entry.SleepHours,
			&entry.SleepQuality,
			&entry.StressLevel,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lifestyle log: %w", err)
		}
		entry.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse log ID: %w", err)
		}
		entry.UserID, err = uuid.Parse(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse user ID: %w", err)
		}
		entry.Nutrition = nutrition
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
