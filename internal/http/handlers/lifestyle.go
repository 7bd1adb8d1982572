package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/lifestyle"
	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
)

// LifestyleHandler handles lifestyle logging endpoints
type LifestyleHandler struct {
	service *lifestyle.Service
}

// NewLifestyleHandler creates a new lifestyle handler
func NewLifestyleHandler(service *lifestyle.Service) *LifestyleHandler {
	return &LifestyleHandler{service: service}
}

// lifestyleLogResponse is the JSON shape of one lifestyle entry
type lifestyleLogResponse struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Nutrition    json.RawMessage `json:"nutrition,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	ActivityType string          `json:"activityType,omitempty"`
	Duration     int             `json:"duration,omitempty"`
	Intensity    string          `json:"intensity,omitempty"`
	Hours        float64         `json:"hours,omitempty"`
	Quality      string          `json:"quality,omitempty"`
	StressLevel  int             `json:"stressLevel,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toLogResponse(l model.LifestyleLog) lifestyleLogResponse {
	return lifestyleLogResponse{
		ID:           l.ID.String(),
		Type:         l.Kind,
		ImageURL:     l.ImageURL,
		Nutrition:    l.Nutrition,
		Notes:        l.Notes,
		ActivityType: l.ActivityType,
		Duration:     l.DurationMin,
		Intensity:    l.Intensity,
		Hours:        l.SleepHours,
		Quality:      l.SleepQuality,
		StressLevel:  l.StressLevel,
		CreatedAt:    l.CreatedAt,
	}
}

func toLogResponses(logs []model.LifestyleLog) []lifestyleLogResponse {
	out := make([]lifestyleLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogResponse(l))
	}
	return out
}

type mealRequest struct {
	Image       string `json:"image" validate:"required"`
	ContentType string `json:"contentType"`
	Notes       string `json:"notes"`
}

// HandleLogMeal handles POST /lifestyle/meal
func (h *LifestyleHandler) HandleLogMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req mealRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		respondError(w, apperr.Wrap(apperr.Validation, "image must be base64 encoded", err))
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	entry, err := h.service.LogMeal(r.Context(), userID, image, contentType, req.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toLogResponse(entry))
}

type activityRequest struct {
	Type      string `json:"type" validate:"required"`
	Duration  int    `json:"duration" validate:"required,min=1"`
	Intensity string `json:"intensity" validate:"omitempty,oneof=low moderate high"`
}

// HandleLogActivity handles POST /lifestyle/activity
func (h *LifestyleHandler) HandleLogActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req activityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.service.LogActivity(r.Context(), userID, req.Type, req.Duration, req.Intensity)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toLogResponse(entry))
}

type sleepRequest struct {
	Hours   float64 `json:"hours" validate:"required,gt=0,lte=24"`
	Quality string  `json:"quality" validate:"omitempty,oneof=poor fair good excellent"`
}

// HandleLogSleep handles POST /lifestyle/sleep
func (h *LifestyleHandler) HandleLogSleep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sleepRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.service.LogSleep(r.Context(), userID, req.Hours, req.Quality)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toLogResponse(entry))
}

type stressRequest struct {
	Level int    `json:"level" validate:"required,min=1,max=10"`
	Notes string `json:"notes"`
}

// HandleLogStress handles POST /lifestyle/stress
func (h *LifestyleHandler) HandleLogStress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req stressRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.service.LogStress(r.Context(), userID, req.Level, req.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toLogResponse(entry))
}

// HandleLogs handles GET /lifestyle/logs?type=&days=
func (h *LifestyleHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kind := r.URL.Query().Get("type")
	switch kind {
	case "", model.LogKindMeal, model.LogKindActivity, model.LogKindSleep, model.LogKindStress:
	default:
		respondError(w, apperr.E(apperr.Validation, "unknown log type"))
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, apperr.E(apperr.Validation, "days must be a positive integer"))
			return
		}
		days = parsed
	}

	logs, err := h.service.Logs(r.Context(), userID, kind, days)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"logs": toLogResponses(logs)})
}
