package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/akravets/coinboard/pkg/models"
)

// Repository stores chats and their messages in Postgres.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateChat opens a new conversation for a user.
func (r *Repository) CreateChat(ctx context.Context, userID, title string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO chats (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at
	`, userID, title).StructScan(&chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &chat, nil
}

// GetChat returns a chat by id, or sql.ErrNoRows.
func (r *Repository) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `
		SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = $1
	`, chatID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns a user's chats, most recently updated first.
func (r *Repository) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats := []models.Chat{}
	err := r.db.SelectContext(ctx, &chats, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chats WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// AddMessage appends one turn to a chat and bumps the chat's updated_at.
func (r *Repository) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	visualizations := msg.Visualizations
	if visualizations == nil {
		visualizations = []models.Visualization{}
	}
	encoded, err := json.Marshal(visualizations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal visualizations: %w", err)
	}

	var saved models.Message
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO messages (chat_id, role, content, visualizations)
		VALUES ($1, $2, $3, $4)
		RETURNING id, chat_id, role, content, created_at
	`, msg.ChatID, msg.Role, msg.Content, encoded).StructScan(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	saved.Visualizations = visualizations

	if _, err := r.db.ExecContext(ctx,
		`UPDATE chats SET updated_at = NOW() WHERE id = $1`, msg.ChatID); err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}

	return &saved, nil
}

// ListMessages returns a chat's messages in chronological order.
func (r *Repository) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, visualizations, created_at
		FROM messages WHERE chat_id = $1
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg     models.Message
			encoded []byte
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &encoded, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Visualizations = []models.Visualization{}
		if len(encoded) > 0 {
			if err := json.Unmarshal(encoded, &msg.Visualizations); err != nil {
				return nil, fmt.Errorf("failed to decode visualizations: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// IsNotFound reports whether err means the chat does not exist.
func IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}
