package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// LifeScoreRepo defines the interface for LifeScore snapshot repository operations
type LifeScoreRepo interface {
	Upsert(ctx context.Context, snapshot *model.LifeScoreSnapshot) error
	GetByDate(ctx context.Context, userID uuid.UUID, date string) (model.LifeScoreSnapshot, error)
	GetLatest(ctx context.Context, userID uuid.UUID) (model.LifeScoreSnapshot, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]model.LifeScoreSnapshot, error)
}

// ErrSnapshotNotFound is returned when no snapshot exists for the requested key
var ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

type lifescoreRepo struct {
	db *sql.DB
}

// NewLifeScoreRepo creates a new LifeScoreRepo instance
func NewLifeScoreRepo(db *sql.DB) LifeScoreRepo {
	return &lifescoreRepo{db: db}
}

// Upsert writes the snapshot keyed by (user, date), overwriting any prior snapshot for that day.
func (r *lifescoreRepo) Upsert(ctx context.Context, snapshot *model.LifeScoreSnapshot) error {
	factors, err := json.Marshal(snapshot.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO lifescore_snapshots (user_id, date, move, fuel, recharge, overall, factors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, date) DO UPDATE
		SET move = EXCLUDED.move, fuel = EXCLUDED.fuel, recharge = EXCLUDED.recharge,
		    overall = EXCLUDED.overall, factors = EXCLUDED.factors, updated_at = now()
		RETURNING created_at, updated_at
	`, snapshot.UserID, snapshot.Date, snapshot.Move, snapshot.Fuel, snapshot.Recharge,
		snapshot.Overall, factors,
	).Scan(&snapshot.CreatedAt, &snapshot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert lifescore snapshot: %w", err)
	}
	return nil
}

const lifescoreColumns = `user_id, to_char(date, 'YYYY-MM-DD'), move, fuel, recharge, overall, factors, created_at, updated_at`

func scanSnapshot(scan func(...interface{}) error) (model.LifeScoreSnapshot, error) {
	var s model.LifeScoreSnapshot
	var userIDStr string
	var factors []byte
	err := scan(&userIDStr, &s.Date, &s.Move, &s.Fuel, &s.Recharge, &s.Overall, &factors, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.LifeScoreSnapshot{}, err
	}
	s.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.LifeScoreSnapshot{}, fmt.Errorf("parse user ID: %w", err)
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &s.Factors); err != nil {
			return model.LifeScoreSnapshot{}, fmt.Errorf("unmarshal factors: %w", err)
		}
	}
	return s, nil
}

// GetByDate returns the snapshot for (user, date), or ErrSnapshotNotFound.
func (r *lifescoreRepo) GetByDate(ctx context.Context, userID uuid.UUID, date string) (model.LifeScoreSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+lifescoreColumns+` FROM lifescore_snapshots WHERE user_id = $1 AND date = $2
	`, userID, date)
	s, err := scanSnapshot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.LifeScoreSnapshot{}, ErrSnapshotNotFound
		}
		return model.LifeScoreSnapshot{}, fmt.Errorf("query lifescore snapshot: %w", err)
	}
	return s, nil
}

// GetLatest returns the user's most recent snapshot, or ErrSnapshotNotFound.
func (r *lifescoreRepo) GetLatest(ctx context.Context, userID uuid.UUID) (model.LifeScoreSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+lifescoreColumns+` FROM lifescore_snapshots
		WHERE user_id = $1 ORDER BY date DESC LIMIT 1
	`, userID)
	s, err := scanSnapshot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.LifeScoreSnapshot{}, ErrSnapshotNotFound
		}
		return model.LifeScoreSnapshot{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	return s, nil
}

// History returns up to limit snapshots, most recent first.
func (r *lifescoreRepo) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.LifeScoreSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lifescoreColumns+` FROM lifescore_snapshots
		WHERE user_id = $1 ORDER BY date DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	var out []model.LifeScoreSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
