package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/chat"
	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
)

// ChatHandler handles AI health coach chat endpoints
type ChatHandler struct {
	service *chat.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatMessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessageResponse(m model.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

type sendMessageRequest struct {
	Message        string `json:"message" validate:"required"`
	ConversationID string `json:"conversationId"`
}

// HandleSend handles POST /chat/send
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			respondError(w, apperr.E(apperr.Validation, "conversationId must be a UUID"))
			return
		}
		conversationID = &parsed
	}

	reply, err := h.service.Send(r.Context(), userID, req.Message, conversationID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toMessageResponse(reply))
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HandleConversations handles GET /chat/conversations
func (h *ChatHandler) HandleConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversations, err := h.service.Conversations(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, conversationResponse{
			ID:        c.ConversationID.String(),
			Title:     c.Title,
			UpdatedAt: c.UpdatedAt,
		})
	}
	respondData(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

// HandleMessages handles GET /chat/conversations/{conversationID}/messages
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, apperr.E(apperr.Validation, "conversationID must be a UUID"))
		return
	}

	messages, err := h.service.Messages(r.Context(), userID, conversationID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	respondData(w, http.StatusOK, map[string]interface{}{"messages": out})
}
