package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// VerificationRepo defines the interface for verification code repository operations.
// Each (user, contact) pair has at most one row; issuing a new code replaces the old one.
type VerificationRepo interface {
	Upsert(ctx context.Context, code *model.VerificationCode) error
	Get(ctx context.Context, userID uuid.UUID, contact string) (model.VerificationCode, error)
	MarkVerified(ctx context.Context, userID uuid.UUID, contact string) error
}

// ErrCodeNotFound is returned when no verification code exists for the pair
var ErrCodeNotFound = fmt.Errorf("verification code not found")

type verificationRepo struct {
	db *sql.DB
}

// NewVerificationRepo creates a new VerificationRepo instance
func NewVerificationRepo(db *sql.DB) VerificationRepo {
	return &verificationRepo{db: db}
}

// Upsert writes the code for (user, contact), superseding any prior code for the
// same pair. A superseded code is no longer checkable.
func (r *verificationRepo) Upsert(ctx context.Context, code *model.VerificationCode) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO verification_codes (user_id, contact, code, kind, expires_at, verified)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (user_id, contact) DO UPDATE
		SET code = EXCLUDED.code, kind = EXCLUDED.kind, expires_at = EXCLUDED.expires_at,
		    verified = FALSE, created_at = now()
		RETURNING created_at
	`, code.UserID, code.Contact, code.Code, code.Kind, code.ExpiresAt).Scan(&code.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert verification code: %w", err)
	}
	return nil
}

// Get returns the code row for (user, contact), or ErrCodeNotFound.
func (r *verificationRepo) Get(ctx context.Context, userID uuid.UUID, contact string) (model.VerificationCode, error) {
	var v model.VerificationCode
	var userIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, contact, code, kind, expires_at, verified, created_at
		FROM verification_codes
		WHERE user_id = $1 AND contact = $2
	`, userID, contact).Scan(
		&userIDStr,
		&v.Contact,
		&v.Code,
		&v.Kind,
		&v.ExpiresAt,
		&v.Verified,
		&v.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.VerificationCode{}, ErrCodeNotFound
		}
		return model.VerificationCode{}, fmt.Errorf("query verification code: %w", err)
	}
	v.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.VerificationCode{}, fmt.Errorf("parse user ID: %w", err)
	}
	return v, nil
}

// MarkVerified sets verified = TRUE on the code row
func (r *verificationRepo) MarkVerified(ctx context.Context, userID uuid.UUID, contact string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET verified = TRUE WHERE user_id = $1 AND contact = $2
	`, userID, contact)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrCodeNotFound
	}
	return nil
}
