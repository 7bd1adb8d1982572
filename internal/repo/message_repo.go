package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
)

// MessageRepo defines the interface for chat message repository operations
type MessageRepo interface {
	Insert(ctx context.Context, message *model.ChatMessage) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.ChatMessage, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]model.ConversationSummary, error)
	ConversationOwner(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error)
}

// ErrConversationNotFound is returned when a conversation has no messages
var ErrConversationNotFound = fmt.Errorf("conversation not found")

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

// Insert appends a message to a conversation
func (r *messageRepo) Insert(ctx context.Context, message *model.ChatMessage) error {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (conversation_id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, message.ConversationID, message.UserID, message.Role, message.Content).Scan(&idStr, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	message.ID, err = uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("parse message ID: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's messages in chronological order
func (r *messageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1 ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query conversation messages: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var idStr, convStr, userStr string
		if err := rows.Scan(&idStr, &convStr, &userStr, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.ID, _ = uuid.Parse(idStr)
		msg.ConversationID, _ = uuid.Parse(convStr)
		msg.UserID, _ = uuid.Parse(userStr)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// ListConversations returns the user's conversations, most recently active first.
// The title is the first user message of the conversation, truncated to 50 characters.
func (r *messageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]model.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id,
		       COALESCE((
		           SELECT left(content, 50) FROM chat_messages first_msg
		           WHERE first_msg.conversation_id = m.conversation_id AND first_msg.role = 'user'
		           ORDER BY first_msg.created_at ASC LIMIT 1
		       ), 'Conversation'),
		       MAX(created_at)
		FROM chat_messages m
		WHERE user_id = $1
		GROUP BY conversation_id
		ORDER BY MAX(created_at) DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationSummary
	for rows.Next() {
		var summary model.ConversationSummary
		var convStr string
		if err := rows.Scan(&convStr, &summary.Title, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		summary.ConversationID, err = uuid.Parse(convStr)
		if err != nil {
			return nil, fmt.Errorf("parse conversation ID: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// ConversationOwner returns the user owning the conversation, or ErrConversationNotFound
func (r *messageRepo) ConversationOwner(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error) {
	var userStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id FROM chat_messages WHERE conversation_id = $1 LIMIT 1
	`, conversationID).Scan(&userStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, ErrConversationNotFound
		}
		return uuid.Nil, fmt.Errorf("query conversation owner: %w", err)
	}
	owner, err := uuid.Parse(userStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse user ID: %w", err)
	}
	return owner, nil
}
