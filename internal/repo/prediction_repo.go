package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// PredictionRepo defines the interface for prediction snapshot repository operations.
// Snapshots are append-only; "current" is the newest by creation time.
type PredictionRepo interface {
	Insert(ctx context.Context, snapshot *model.PredictionSnapshot) error
	GetLatest(ctx context.Context, userID uuid.UUID) (model.PredictionSnapshot, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]model.PredictionSnapshot, error)
}

type predictionRepo struct {
	db *sql.DB
}

// NewPredictionRepo creates a new PredictionRepo instance
func NewPredictionRepo(db *sql.DB) PredictionRepo {
	return &predictionRepo{db: db}
}

// Insert appends a new prediction snapshot
func (r *predictionRepo) Insert(ctx context.Context, snapshot *model.PredictionSnapshot) error {
	factors, err := json.Marshal(snapshot.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	recommendations, err := json.Marshal(snapshot.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	var idStr string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO prediction_snapshots (user_id, risk_score, factors, recommendations)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, snapshot.UserID, snapshot.RiskScore, factors, recommendations).Scan(&idStr, &snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prediction snapshot: %w", err)
	}
	snapshot.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("parse snapshot ID: %w", err)
	}
	return nil
}

const predictionColumns = `id, user_id, risk_score, factors, recommendations, created_at`

func scanPrediction(scan func(...interface{}) error) (model.PredictionSnapshot, error) {
	var s model.PredictionSnapshot
	var idStr, userIDStr string
	var factors, recommendations []byte
	err := scan(&idStr, &userIDStr, &s.RiskScore, &factors, &recommendations, &s.CreatedAt)
	if err != nil {
		return model.PredictionSnapshot{}, err
	}
	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("parse snapshot ID: %w", err)
	}
	s.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("parse user ID: %w", err)
	}
	if err := json.Unmarshal(factors, &s.Factors); err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("unmarshal factors: %w", err)
	}
	if err := json.Unmarshal(recommendations, &s.Recommendations); err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return s, nil
}

// GetLatest returns the most recently created snapshot for the user, or ErrSnapshotNotFound.
func (r *predictionRepo) GetLatest(ctx context.Context, userID uuid.UUID) (model.PredictionSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+predictionColumns+` FROM prediction_snapshots
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1
	`, userID)
	s, err := scanPrediction(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.PredictionSnapshot{}, ErrSnapshotNotFound
		}
		return model.PredictionSnapshot{}, fmt.Errorf("query latest prediction: %w", err)
	}
	return s, nil
}

// History returns up to limit snapshots, newest first.
func (r *predictionRepo) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.PredictionSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+predictionColumns+` FROM prediction_snapshots
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query prediction history: %w", err)
	}
	defer rows.Close()

	var out []model.PredictionSnapshot
	for rows.Next() {
		s, err := scanPrediction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
