package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// ProfileUpdate holds the optional fields of a profile update; nil fields are untouched
type ProfileUpdate struct {
	Name        *string
	Phone       *string
	CoachName   *string
	CoachAvatar *string
}

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, email, passwordHash, name string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (model.User, error)
	MarkContactVerified(ctx context.Context, id uuid.UUID, kind, contact string) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, email, password_hash, name, phone, email_verified, phone_verified, coach_name, coach_avatar, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	var idStr string
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Phone,
		&user.EmailVerified,
		&user.PhoneVerified,
		&user.CoachName,
		&user.CoachAvatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("parse user ID: %w", err)
	}
	return user, nil
}

// ErrDuplicateEmail is returned when creating a user with an email that already exists
var ErrDuplicateEmail = fmt.Errorf("email already registered")

// Create inserts a new user with a normalized email
func (r *userRepo) Create(ctx context.Context, email, passwordHash, name string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, name)

	user, err := scanUser(row)
	if err != nil {
		if strings.Contains(err.Error(), "users_email_key") {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, fmt.Errorf("user not found: %w", err)
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, fmt.Errorf("user not found: %w", err)
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ListIDs returns the IDs of all users (batch recompute driver)
func (r *userRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateProfile applies the non-nil fields of update and returns the updated user
func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (model.User, error) {
	set := []string{"updated_at = now()"}
	args := []interface{}{id}
	next := 2

	appendField := func(column string, value *string) {
		if value != nil {
			set = append(set, fmt.Sprintf("%s = $%d", column, next))
			args = append(args, *value)
			next++
		}
	}
	appendField("name", update.Name)
	appendField("phone", update.Phone)
	appendField("coach_name", update.CoachName)
	appendField("coach_avatar", update.CoachAvatar)

	query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, query, args...)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, fmt.Errorf("user not found: %w", err)
		}
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// MarkContactVerified stamps the user's phone or email as verified and sets the confirmed value
func (r *userRepo) MarkContactVerified(ctx context.Context, id uuid.UUID, kind, contact string) error {
	var query string
	switch kind {
	case model.ContactKindPhone:
		query = `UPDATE users SET phone_verified = TRUE, phone = $2, updated_at = now() WHERE id = $1`
	case model.ContactKindEmail:
		query = `UPDATE users SET email_verified = TRUE, email = $2, updated_at = now() WHERE id = $1`
	default:
		return fmt.Errorf("unknown contact kind %q", kind)
	}
	result, err := r.db.ExecContext(ctx, query, id, contact)
	if err != nil {
		return fmt.Errorf("mark contact verified: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
