package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/lifescore"
	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
)

// LifeScoreHandler handles composite score endpoints
type LifeScoreHandler struct {
	service *lifescore.Service
}

// NewLifeScoreHandler creates a new lifescore handler
func NewLifeScoreHandler(service *lifescore.Service) *LifeScoreHandler {
	return &LifeScoreHandler{service: service}
}

type lifeScoreResponse struct {
	Date      string             `json:"date"`
	Move      int                `json:"move"`
	Fuel      int                `json:"fuel"`
	Recharge  int                `json:"recharge"`
	Overall   int                `json:"overall"`
	Factors   model.ScoreFactors `json:"factors"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toScoreResponse(s model.LifeScoreSnapshot) lifeScoreResponse {
	return lifeScoreResponse{
		Date:      s.Date,
		Move:      s.Move,
		Fuel:      s.Fuel,
		Recharge:  s.Recharge,
		Overall:   s.Overall,
		Factors:   s.Factors,
		UpdatedAt: s.UpdatedAt,
	}
}

// HandleCalculate handles POST /lifescore/calculate
func (h *LifeScoreHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
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
	respondData(w, http.StatusOK, toScoreResponse(snapshot))
}

// HandleCurrent handles GET /lifescore/current
func (h *LifeScoreHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
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
	respondData(w, http.StatusOK, toScoreResponse(snapshot))
}

// HandleHistory handles GET /lifescore/history?limit=
func (h *LifeScoreHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, apperr.E(apperr.Validation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	snapshots, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]lifeScoreResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, toScoreResponse(s))
	}
	respondData(w, http.StatusOK, map[string]interface{}{"scores": out})
}
