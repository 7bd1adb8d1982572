package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/myora/server/internal/auth"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

type contextKey string

const (
	userKey   contextKey = "user"
	userIDKey contextKey = "user_id"
)

// Identity resolves request credentials to a user, allowing substitution in tests
type Identity interface {
	Resolve(r *http.Request) (model.User, error)
}

// JWTIdentity resolves a Bearer token via the JWT service and loads the user
type JWTIdentity struct {
	JWT      *auth.JWTService
	UserRepo repo.UserRepo
}

// Resolve validates the Authorization header and returns the authenticated user
func (i *JWTIdentity) Resolve(r *http.Request) (model.User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return model.User{}, errMissingCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return model.User{}, errMissingCredentials
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return model.User{}, errMissingCredentials
	}

	claims, err := i.JWT.VerifyToken(tokenString)
	if err != nil {
		return model.User{}, errInvalidCredentials
	}

	user, err := i.UserRepo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return model.User{}, errInvalidCredentials
	}
	return user, nil
}

var (
	errMissingCredentials = &authError{"missing or malformed authorization header"}
	errInvalidCredentials = &authError{"invalid or expired token"}
)

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

// AuthMiddleware resolves the request identity and attaches the user to context
func AuthMiddleware(identity Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := identity.Resolve(r)
			if err != nil {
				respondUnauthenticated(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			ctx = context.WithValue(ctx, userIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the user attached to the request context (set by AuthMiddleware)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// GetUserID extracts the authenticated user's ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

func respondUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
