package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/trust"
	"github.com/wikiai/backend/pkg/logger"
)

type SourceAnalyzer interface {
	Analyze(ctx context.Context, urls []string, inspect bool) []trust.Assessment
}

type SourcesHandler struct {
	analyzer SourceAnalyzer
}

func NewSourcesHandler(analyzer SourceAnalyzer) *SourcesHandler {
	return &SourcesHandler{
		analyzer: analyzer,
	}
}

// Analyze scores a JSON array of URLs. ?inspect=true also reads each page.
func (h *SourcesHandler) Analyze(c *fiber.Ctx) error {
	var urls []string
	if err := json.Unmarshal(c.Body(), &urls); err != nil {
		logger.Error("Failed to parse sources", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body must be a JSON array of URLs",
		})
	}

	inspect := c.QueryBool("inspect", false)
	analyzed := h.analyzer.Analyze(c.UserContext(), urls, inspect)

	return c.JSON(fiber.Map{
		"analyzed_sources": analyzed,
	})
}
