package handlers

import (
	"net/http"
	"time"

	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/symptom"
)

// SymptomHandler handles symptom checker endpoints
type SymptomHandler struct {
	service *symptom.Service
}

// NewSymptomHandler creates a new symptom handler
func NewSymptomHandler(service *symptom.Service) *SymptomHandler {
	return &SymptomHandler{service: service}
}

type symptomLogResponse struct {
	ID              string    `json:"id"`
	Symptoms        []string  `json:"symptoms"`
	Analysis        string    `json:"analysis"`
	Recommendations []string  `json:"recommendations"`
	Urgency         string    `json:"urgency"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toSymptomResponse(s model.SymptomLog) symptomLogResponse {
	return symptomLogResponse{
		ID:              s.ID.String(),
		Symptoms:        s.Symptoms,
		Analysis:        s.Analysis,
		Recommendations: s.Recommendations,
		Urgency:         s.Urgency,
		CreatedAt:       s.CreatedAt,
	}
}

type symptomCheckRequest struct {
	Symptoms []string `json:"symptoms" validate:"required,min=1,dive,required"`
}

// HandleCheck handles POST /symptoms/check
func (h *SymptomHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req symptomCheckRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.Analyze(r.Context(), userID, req.Symptoms)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toSymptomResponse(result))
}

// HandleHistory handles GET /symptoms/history
func (h *SymptomHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	logs, err := h.service.History(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]symptomLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toSymptomResponse(l))
	}
	respondData(w, http.StatusOK, map[string]interface{}{"checks": out})
}
