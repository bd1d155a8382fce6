package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/config"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// Turn is one message of the conversation sent to the completion API.
type Turn struct {
	Role    models.MessageRole
	Content string
}

// Client wraps the hosted chat-completion API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient creates a new LLM client.
func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Complete sends the conversation and returns the full reply text.
func (c *Client) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, c.request(system, turns))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	logger.Debug("llm completion finished",
		zap.Duration("latency", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// Stream sends the conversation and invokes onDelta for every incremental
// text delta. It returns the accumulated full reply. A non-nil error from
// onDelta aborts the stream.
func (c *Client) Stream(ctx context.Context, system string, turns []Turn, onDelta func(delta string) error) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.request(system, turns))
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer stream.Close()

	var full string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full, nil
		}
		if err != nil {
			return full, fmt.Errorf("stream receive failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full += delta
		if err := onDelta(delta); err != nil {
			return full, err
		}
	}
}

func (c *Client) request(system string, turns []Turn) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})

	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}
