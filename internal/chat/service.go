package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/llm"
	"github.com/akravets/coinboard/internal/graphs"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// ErrChatNotFound is returned when the chat does not exist or belongs to a
// different user. Both cases look identical to the caller.
var ErrChatNotFound = errors.New("chat not found")

// Store is the persistence slice the chat service depends on.
type Store interface {
	CreateChat(ctx context.Context, userID, title string) (*models.Chat, error)
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// Completer is the LLM client slice the chat service depends on.
type Completer interface {
	Complete(ctx context.Context, system string, turns []llm.Turn) (string, error)
	Stream(ctx context.Context, system string, turns []llm.Turn, onDelta func(string) error) (string, error)
}

// VisualizationBuilder turns an LLM reply into chart payloads.
type VisualizationBuilder interface {
	BuildVisualizations(ctx context.Context, content string) []models.Visualization
}

// Universe lists the assets the assistant is allowed to reference.
type Universe interface {
	AvailableAssets(ctx context.Context) ([]models.AssetSummary, error)
}

// Service brokers chat messages to the LLM and post-processes replies.
type Service struct {
	store    Store
	llm      Completer
	graphs   VisualizationBuilder
	universe Universe
}

func NewService(store Store, completer Completer, graphs VisualizationBuilder, universe Universe) *Service {
	return &Service{store: store, llm: completer, graphs: graphs, universe: universe}
}

// CreateChat opens a new conversation.
func (s *Service) CreateChat(ctx context.Context, userID, title string) (*models.Chat, error) {
	if title == "" {
		title = "New chat"
	}
	return s.store.CreateChat(ctx, userID, title)
}

// ListChats returns the user's conversations.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.store.ListChats(ctx, userID)
}

// History returns a chat's messages after an ownership check.
func (s *Service) History(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	if _, err := s.ownedChat(ctx, chatID, userID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID)
}

// SendMessage handles the blocking (non-streaming) path: save the user
// turn, complete, post-process, save and return the assistant turn.
func (s *Service) SendMessage(ctx context.Context, chatID, userID, content string) (*models.Message, error) {
	if _, err := s.ownedChat(ctx, chatID, userID); err != nil {
		return nil, err
	}

	turns, err := s.appendUserTurn(ctx, chatID, content)
	if err != nil {
		return nil, err
	}

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Complete(ctx, system, turns)
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	return s.saveReply(ctx, chatID, reply)
}

// StreamMessage handles the streaming path. Events are pushed through send
// in order: start, content deltas, visualizations, complete. A failure
// after streaming has begun is reported as an error event through the
// already-open stream, since the response status is long gone.
func (s *Service) StreamMessage(ctx context.Context, chatID, userID, content string, send func(models.StreamEvent) error) error {
	if _, err := s.ownedChat(ctx, chatID, userID); err != nil {
		return err
	}

	turns, err := s.appendUserTurn(ctx, chatID, content)
	if err != nil {
		return err
	}

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return err
	}

	if err := send(models.StreamEvent{Type: models.EventStart}); err != nil {
		return err
	}

	reply, err := s.llm.Stream(ctx, system, turns, func(delta string) error {
		return send(models.StreamEvent{Type: models.EventContent, Content: delta})
	})
	if err != nil {
		logger.Error("llm stream failed", zap.String("chat_id", chatID), zap.Error(err))
		_ = send(models.StreamEvent{Type: models.EventError, Error: "assistant stream failed"})
		return err
	}

	saved, err := s.saveReply(ctx, chatID, reply)
	if err != nil {
		_ = send(models.StreamEvent{Type: models.EventError, Error: "failed to store reply"})
		return err
	}

	for i := range saved.Visualizations {
		if err := send(models.StreamEvent{
			Type:          models.EventVisualization,
			Visualization: &saved.Visualizations[i],
		}); err != nil {
			return err
		}
	}

	return send(models.StreamEvent{Type: models.EventComplete, MessageID: saved.ID})
}

// saveReply post-processes the raw LLM text and stores the assistant turn.
// Post-processing is best-effort: on any trouble the raw text ships with an
// empty visualization list rather than failing the request.
func (s *Service) saveReply(ctx context.Context, chatID, reply string) (*models.Message, error) {
	visualizations := s.graphs.BuildVisualizations(ctx, reply)
	text := stripOrRaw(reply)

	return s.store.AddMessage(ctx, &models.Message{
		ChatID:         chatID,
		Role:           models.RoleAssistant,
		Content:        text,
		Visualizations: visualizations,
	})
}

// stripOrRaw removes graph-data blocks; if that would leave nothing (a
// reply that was one big directive block), the raw text is kept so the
// user never sees an empty message.
func stripOrRaw(reply string) string {
	stripped := graphs.StripDirectives(reply)
	if stripped == "" && strings.TrimSpace(reply) != "" {
		return reply
	}
	return stripped
}

func (s *Service) appendUserTurn(ctx context.Context, chatID, content string) ([]llm.Turn, error) {
	if _, err := s.store.AddMessage(ctx, &models.Message{
		ChatID:  chatID,
		Role:    models.RoleUser,
		Content: content,
	}); err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, llm.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns, nil
}

func (s *Service) systemPrompt(ctx context.Context) (string, error) {
	available, err := s.universe.AvailableAssets(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load asset universe: %w", err)
	}
	return llm.BuildSystemPrompt(available), nil
}

func (s *Service) ownedChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrChatNotFound
	}
	return chat, nil
}
