package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// SymptomRepo defines the interface for symptom log repository operations
type SymptomRepo interface {
	Insert(ctx context.Context, log *model.SymptomLog) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]model.SymptomLog, error)
}

type symptomRepo struct {
	db *sql.DB
}

// NewSymptomRepo creates a new SymptomRepo instance
func NewSymptomRepo(db *sql.DB) SymptomRepo {
	return &symptomRepo{db: db}
}

// Insert creates a new symptom log
func (r *symptomRepo) Insert(ctx context.Context, log *model.SymptomLog) error {
	symptoms, err := json.Marshal(log.Symptoms)
	if err != nil {
		return fmt.Errorf("marshal symptoms: %w", err)
	}
	recommendations, err := json.Marshal(log.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	var idStr string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO symptom_logs (user_id, symptoms, analysis, recommendations, urgency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, log.UserID, symptoms, log.Analysis, recommendations, log.Urgency).Scan(&idStr, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert symptom log: %w", err)
	}
	log.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("parse log ID: %w", err)
	}
	return nil
}

// Recent returns up to limit logs for the user, newest first.
func (r *symptomRepo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]model.SymptomLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, symptoms, analysis, recommendations, urgency, created_at
		FROM symptom_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query symptom logs: %w", err)
	}
	defer rows.Close()

	var out []model.SymptomLog
	for rows.Next() {
		var entry model.SymptomLog
		var idStr, userIDStr string
		var symptoms, recommendations []byte
		err := rows.Scan(&idStr, &userIDStr, &symptoms, &entry.Analysis, &recommendations, &entry.Urgency, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan symptom log: %w", err)
		}
		entry.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse log ID: %w", err)
		}
		entry.UserID, err = uuid.Parse(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse user ID: %w", err)
		}
		if err := json.Unmarshal(symptoms, &entry.Symptoms); err != nil {
			return nil, fmt.Errorf("unmarshal symptoms: %w", err)
		}
		if err := json.Unmarshal(recommendations, &entry.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
