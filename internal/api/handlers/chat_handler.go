package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/chat"
	"github.com/wikiai/backend/internal/middleware/validation"
	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/logger"
)

type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (*models.ChatMessage, error)
	AnalyzeFile(ctx context.Context, q chat.FileQuestion) (*models.ChatMessage, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req struct {
		Message     string `json:"message"`
		MessageType string `json:"message_type"`
		SessionID   string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	msg, err := h.chat.Chat(c.UserContext(), chat.Request{
		Message:     validation.Sanitize(req.Message),
		MessageType: req.MessageType,
		SessionID:   validation.Sanitize(req.SessionID),
	})
	if err != nil {
		logger.Error("Failed to process chat message", zap.Error(err))
		return errorResponse(c, err, "Failed to process chat message")
	}

	return respondMessage(c, msg)
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	messages, err := h.chat.History(c.UserContext(), sessionID)
	if err != nil {
		logger.Error("Failed to load chat history", zap.String("session_id", sessionID), zap.Error(err))
		return errorResponse(c, err, "Failed to load chat history")
	}

	return c.JSON(messages)
}

func (h *ChatHandler) AnalyzeFile(c *fiber.Ctx) error {
	var req struct {
		Question      string `json:"question"`
		ExtractedText string `json:"extracted_text"`
		Filename      string `json:"filename"`
		MessageType   string `json:"message_type"`
		SessionID     string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	msg, err := h.chat.AnalyzeFile(c.UserContext(), chat.FileQuestion{
		Question:      validation.Sanitize(req.Question),
		ExtractedText: req.ExtractedText,
		Filename:      req.Filename,
		MessageType:   req.MessageType,
		SessionID:     validation.Sanitize(req.SessionID),
	})
	if err != nil {
		logger.Error("Failed to analyze file", zap.String("filename", req.Filename), zap.Error(err))
		return errorResponse(c, err, "Failed to analyze file")
	}

	return respondMessage(c, msg)
}

func respondMessage(c *fiber.Ctx, msg *models.ChatMessage) error {
	if msg.Degraded {
		c.Set(HeaderAIDegraded, "true")
	}
	return c.JSON(msg)
}
