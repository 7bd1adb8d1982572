package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/verification"
)

// VerificationHandler handles contact verification endpoints
type VerificationHandler struct {
	service        *verification.Service
	contactLimiter *middleware.RateLimiter
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(service *verification.Service) *VerificationHandler {
	// 5 codes per contact per 10min
	return &VerificationHandler{
		service:        service,
		contactLimiter: middleware.NewRateLimiter(10*time.Minute, 5),
	}
}

type sendCodeRequest struct {
	Contact string `json:"contact" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=phone email"`
}

// HandleSend handles POST /verify/send
func (h *VerificationHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	contact := strings.TrimSpace(req.Contact)

	if !h.contactLimiter.Allow("contact:" + contact) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	result, err := h.service.Send(r.Context(), userID, contact, req.Type)
	if err != nil {
		respondError(w, err)
		return
	}

	data := map[string]interface{}{
		"message":    "code_sent",
		"dispatched": result.Dispatched,
	}
	if result.Code != "" {
		data["devCode"] = result.Code
	}
	respondData(w, http.StatusOK, data)
}

type checkCodeRequest struct {
	Contact string `json:"contact" validate:"required"`
	Code    string `json:"code" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=phone email"`
}

// HandleCheck handles POST /verify/check
func (h *VerificationHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req checkCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	// The code is compared exactly as submitted; only the contact is normalized
	verified, err := h.service.Check(r.Context(), userID, strings.TrimSpace(req.Contact), req.Code, req.Type)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"verified": verified})
}
