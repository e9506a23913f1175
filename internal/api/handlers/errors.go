package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wikiai/backend/internal/chat"
	"github.com/wikiai/backend/internal/docgen"
	"github.com/wikiai/backend/internal/ingestion"
)

// HeaderAIDegraded marks a reply produced without the AI provider.
const HeaderAIDegraded = "X-AI-Degraded"

func statusFor(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, docgen.ErrInvalidFormat),
		errors.Is(err, ingestion.ErrUnsupportedFormat),
		errors.Is(err, ingestion.ErrEmptyContent),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrEmptyQuestion):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorResponse exposes client errors verbatim and hides internal ones behind fallback.
func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(err)
	msg := fallback
	if status < fiber.StatusInternalServerError {
		msg = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}
