package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

// ErrRefreshTokenReuseDetected signals that a revoked refresh token was presented.
// All of the user's sessions are revoked in response.
var ErrRefreshTokenReuseDetected = errors.New("refresh token reuse detected")

// AuthService orchestrates registration, login, and refresh token rotation
type AuthService struct {
	jwtService      *JWTService
	userRepo        repo.UserRepo
	refreshRepo     repo.RefreshRepo
	refreshTokenTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	jwtService *JWTService,
	userRepo repo.UserRepo,
	refreshRepo repo.RefreshRepo,
	refreshTokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		jwtService:      jwtService,
		userRepo:        userRepo,
		refreshRepo:     refreshRepo,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// Register creates a new user with a bcrypt-hashed password
func (s *AuthService) Register(ctx context.Context, email, password, name string) (model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.userRepo.Create(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return model.User{}, apperr.E(apperr.Validation, "user with this email already exists")
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks credentials and issues an access token plus a refresh token
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Same message for missing user and bad password
		return model.User{}, "", "", apperr.E(apperr.Unauthenticated, "invalid email or password")
	}
	if !CheckPassword(user.PasswordHash, password) {
		return model.User{}, "", "", apperr.E(apperr.Unauthenticated, "invalid email or password")
	}

	accessToken, err := s.jwtService.SignAccessToken(user.ID, user.Email)
	if err != nil {
		return model.User{}, "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, hashHex, err := GenerateRefreshToken()
	if err != nil {
		return model.User{}, "", "", err
	}
	if _, err := s.refreshRepo.Create(ctx, user.ID, hashHex, time.Now().Add(s.refreshTokenTTL)); err != nil {
		return model.User{}, "", "", fmt.Errorf("create refresh session: %w", err)
	}

	return user, accessToken, refreshToken, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and replaced,
// and presenting an already-revoked token revokes every session for the user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	hashHex := HashRefreshToken(refreshToken)

	session, err := s.refreshRepo.FindByTokenHash(ctx, hashHex)
	if err != nil {
		// Reuse detection: a revoked session with this hash means the token leaked
		if revoked, lookupErr := s.refreshRepo.FindByTokenHashIncludeRevoked(ctx, hashHex); lookupErr == nil && revoked.RevokedAt != nil {
			_ = s.refreshRepo.RevokeAllForUser(ctx, revoked.UserID)
			return "", "", ErrRefreshTokenReuseDetected
		}
		return "", "", apperr.E(apperr.Unauthenticated, "invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return "", "", fmt.Errorf("load user: %w", err)
	}

	newToken, newHash, err := GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}
	newSessionID, err := s.refreshRepo.Create(ctx, session.UserID, newHash, time.Now().Add(s.refreshTokenTTL))
	if err != nil {
		return "", "", fmt.Errorf("create refresh session: %w", err)
	}
	if err := s.refreshRepo.RevokeAndSetReplacedBy(ctx, session.ID, newSessionID); err != nil {
		return "", "", fmt.Errorf("revoke old session: %w", err)
	}

	accessToken, err := s.jwtService.SignAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	return accessToken, newToken, nil
}

// Logout revokes the refresh session for the presented token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	hashHex := HashRefreshToken(refreshToken)
	session, err := s.refreshRepo.FindByTokenHash(ctx, hashHex)
	if err != nil {
		return apperr.E(apperr.Unauthenticated, "invalid or expired refresh token")
	}
	if err := s.refreshRepo.Revoke(ctx, session.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
