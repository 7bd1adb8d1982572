// Package chat implements the AI health assistant conversation flow.
package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/llm"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

const systemPrompt = "You are a helpful health assistant for MyOra. Provide accurate, empathetic health guidance. Always remind users to consult healthcare professionals for serious concerns."

// Service persists conversations and relays them to the reasoning service
type Service struct {
	messageRepo repo.MessageRepo
	llmClient   llm.Client
}

// NewService creates a chat service
func NewService(messageRepo repo.MessageRepo, llmClient llm.Client) *Service {
	return &Service{messageRepo: messageRepo, llmClient: llmClient}
}

// Send appends the user's message to the conversation (creating one when
// conversationID is nil), requests an assistant reply with the full history,
// persists both messages, and returns the assistant message.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, message string, conversationID *uuid.UUID) (model.ChatMessage, error) {
	var history []llm.Message
	var convID uuid.UUID
	if conversationID != nil {
		owner, err := s.messageRepo.ConversationOwner(ctx, *conversationID)
		if err != nil {
			return model.ChatMessage{}, apperr.E(apperr.NotFound, "conversation not found")
		}
		if owner != userID {
			return model.ChatMessage{}, apperr.E(apperr.NotFound, "conversation not found")
		}
		convID = *conversationID

		messages, err := s.messageRepo.ListByConversation(ctx, convID)
		if err != nil {
			return model.ChatMessage{}, fmt.Errorf("load conversation: %w", err)
		}
		for _, m := range messages {
			history = append(history, llm.Message{Role: m.Role, Content: m.Content})
		}
	} else {
		convID = uuid.New()
	}

	history = append(history, llm.Message{Role: "user", Content: message})

	response, err := s.llmClient.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    history,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("reasoning service: %w", err)
	}
	if response == "" {
		response = "I apologize, I could not generate a response."
	}

	userMsg := model.ChatMessage{ConversationID: convID, UserID: userID, Role: "user", Content: message}
	if err := s.messageRepo.Insert(ctx, &userMsg); err != nil {
		return model.ChatMessage{}, fmt.Errorf("persist user message: %w", err)
	}
	assistantMsg := model.ChatMessage{ConversationID: convID, UserID: userID, Role: "assistant", Content: response}
	if err := s.messageRepo.Insert(ctx, &assistantMsg); err != nil {
		return model.ChatMessage{}, fmt.Errorf("persist assistant message: %w", err)
	}

	return assistantMsg, nil
}

// Conversations lists the user's conversations, most recently active first
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]model.ConversationSummary, error) {
	return s.messageRepo.ListConversations(ctx, userID)
}

// Messages returns a conversation's messages in chronological order, enforcing ownership
func (s *Service) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]model.ChatMessage, error) {
	owner, err := s.messageRepo.ConversationOwner(ctx, conversationID)
	if err != nil {
		return nil, apperr.E(apperr.NotFound, "conversation not found")
	}
	if owner != userID {
		return nil, apperr.E(apperr.NotFound, "conversation not found")
	}
	return s.messageRepo.ListByConversation(ctx, conversationID)
}
