package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/chat"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

func (s *Server) handleCreateChat(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	// Body is optional; an empty one means a default title.
	_ = c.ShouldBindJSON(&req)

	created, err := s.chat.CreateChat(c.Request.Context(), currentUser(c).ID, req.Title)
	if err != nil {
		logger.Error("failed to create chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) handleListChats(c *gin.Context) {
	chats, err := s.chat.ListChats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		logger.Error("failed to list chats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (s *Server) handleListMessages(c *gin.Context) {
	messages, err := s.chat.History(c.Request.Context(), c.Param("chatId"), currentUser(c).ID)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		logger.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// handleSendMessage is the blocking path: the full assistant reply comes
// back as one JSON message.
func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	reply, err := s.chat.SendMessage(c.Request.Context(), c.Param("chatId"), currentUser(c).ID, req.Content)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		logger.Error("failed to send message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// handleStreamMessage is the SSE path. The user's message rides in the
// content query parameter; events are written as `data: {json}` lines as
// the assistant produces them.
func (s *Server) handleStreamMessage(c *gin.Context) {
	content := c.Query("content")
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content query parameter is required"})
		return
	}

	chatID := c.Param("chatId")
	userID := currentUser(c).ID

	// Ownership problems must surface as a status code, before the
	// stream opens.
	if _, err := s.chat.History(c.Request.Context(), chatID, userID); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open stream"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)

	send := func(ev models.StreamEvent) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := s.chat.StreamMessage(c.Request.Context(), chatID, userID, content, send); err != nil {
		// Headers are long gone; the error already went out as an
		// error event where possible.
		logger.Error("chat stream ended with error",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
	}
}
