package handlers

import (
	"net/http"
	"time"

	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/prediction"
)

// PredictionHandler handles health risk prediction endpoints
type PredictionHandler struct {
	service *prediction.Service
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(service *prediction.Service) *PredictionHandler {
	return &PredictionHandler{service: service}
}

type predictionResponse struct {
	ID              string    `json:"id"`
	RiskScore       int       `json:"riskScore"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toPredictionResponse(p model.PredictionSnapshot) predictionResponse {
	return predictionResponse{
		ID:              p.ID.String(),
		RiskScore:       p.RiskScore,
		Factors:         p.Factors,
		Recommendations: p.Recommendations,
		CreatedAt:       p.CreatedAt,
	}
}

// HandleCompute handles POST /predictions
func (h *PredictionHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snapshot, err := h.service.Compute(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toPredictionResponse(snapshot))
}

// HandleCurrent handles GET /predictions/current
func (h *PredictionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snapshot, err := h.service.Current(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toPredictionResponse(snapshot))
}

// HandleHistory handles GET /predictions/history
func (h *PredictionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snapshots, err := h.service.History(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]predictionResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, toPredictionResponse(s))
	}
	respondData(w, http.StatusOK, map[string]interface{}{"predictions": out})
}
