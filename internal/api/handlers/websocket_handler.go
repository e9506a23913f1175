package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/chat"
	"github.com/wikiai/backend/internal/middleware/validation"
	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/logger"
)

type WebSocketHandler struct {
	chat ChatService
}

func NewWebSocketHandler(chat ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		chat: chat,
	}
}

type wsRequest struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	SessionID   string `json:"session_id"`
}

// HandleConnection answers "chat" frames with a status frame, the reply word by word, then the stored record.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsRequest

		err := c.ReadJSON(&msg)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "chat" {
			continue
		}

		logger.Info("Processing WebSocket chat message", zap.String("session_id", msg.SessionID))

		err = h.streamResponse(c, msg)
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process chat message")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req wsRequest) error {
	if err := h.sendFrame(c, "status", "Processing message..."); err != nil {
		return err
	}

	record, err := h.chat.Chat(context.Background(), chat.Request{
		Message:     validation.Sanitize(req.Message),
		MessageType: req.MessageType,
		SessionID:   validation.Sanitize(req.SessionID),
	})
	if err != nil {
		return err
	}

	words := splitIntoWords(record.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendFrame(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, record)
}

func (h *WebSocketHandler) sendFrame(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, record *models.ChatMessage) error {
	return c.WriteJSON(map[string]interface{}{
		"type":     "complete",
		"message":  record,
		"degraded": record.Degraded,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	_ = c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

// splitIntoWords splits on spaces and keeps each newline as its own token.
func splitIntoWords(text string) []string {
	var words []string
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			words = append(words, "\n")
		}
		words = append(words, strings.Fields(line)...)
	}
	return words
}
