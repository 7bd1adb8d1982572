package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/auth"
	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

// AuthHandler handles authentication and profile endpoints. The per-IP rate
// limit on auth routes is applied by the router, not here.
type AuthHandler struct {
	authService *auth.AuthService
	userRepo    repo.UserRepo
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, userRepo repo.UserRepo) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userRepo:    userRepo,
	}
}

// userResponse is the user object in API responses
type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`
	CoachName     string `json:"coachName,omitempty"`
	CoachAvatar   string `json:"coachAvatar,omitempty"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		CoachName:     u.CoachName,
		CoachAvatar:   u.CoachAvatar,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {

	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.authService.Register(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{
		"user": toUserResponse(user),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         userResponse `json:"user"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {

	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, accessToken, refreshToken, err := h.authService.Login(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		logMaskedEmail(req.Email, "Login failed: %v", err)
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		User:         toUserResponse(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HandleRefresh handles POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshTokens(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenReuseDetected) {
			respondWithError(w, http.StatusUnauthorized, "refresh_token_reuse_detected")
			return
		}
		respondWithError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	respondData(w, http.StatusOK, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
	})
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.authService.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		respondWithError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	respondData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /me (protected)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondData(w, http.StatusOK, toUserResponse(*user))
}

type profileUpdateRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	CoachName   *string `json:"coachName"`
	CoachAvatar *string `json:"coachAvatar"`
}

// HandleUpdateProfile handles PUT /me/profile (protected)
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req profileUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name == nil && req.Phone == nil && req.CoachName == nil && req.CoachAvatar == nil {
		respondError(w, apperr.E(apperr.Validation, "no profile fields to update"))
		return
	}

	updated, err := h.userRepo.UpdateProfile(r.Context(), user.ID, repo.ProfileUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		CoachName:   req.CoachName,
		CoachAvatar: req.CoachAvatar,
	})
	if err != nil {
		respondError(w, apperr.Wrap(apperr.Internal, "failed to update profile", err))
		return
	}

	respondData(w, http.StatusOK, toUserResponse(updated))
}

// logMaskedEmail logs a message with a masked email address
func logMaskedEmail(email, format string, args ...interface{}) {
	log.Printf("Email "+maskEmail(email)+": "+format, args...)
}

// maskEmail masks the local part of an email for logging (e.g. jo***@example.com)
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 2 {
		return "***"
	}
	return email[:2] + "***" + email[at:]
}
