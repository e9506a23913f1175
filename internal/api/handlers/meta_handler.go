package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/pkg/logger"
)

const banner = "API WikiAI - Assistant IA pour étudiants québécois"

type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type subjectGroup struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

var subjects = map[string]subjectGroup{
	"sciences": {
		Name:     "Sciences et mathématique",
		Subjects: []string{"Mathématique", "Science et technologie", "Chimie", "Physique", "Informatique"},
	},
	"langues": {
		Name:     "Langues",
		Subjects: []string{"Français", "Anglais, langue seconde", "Espagnol"},
	},
	"univers_social": {
		Name:     "Univers social",
		Subjects: []string{"Histoire du Québec et du Canada", "Géographie", "Culture et citoyenneté québécoise", "Éducation financière"},
	},
	"arts_sport": {
		Name:     "Arts et éducation physique",
		Subjects: []string{"Arts plastiques", "Musique", "Art dramatique", "Danse", "Éducation physique et à la santé"},
	},
}

type MetaHandler struct {
	readiness ReadinessChecker
}

func NewMetaHandler(readiness ReadinessChecker) *MetaHandler {
	return &MetaHandler{
		readiness: readiness,
	}
}

func (h *MetaHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": banner,
	})
}

func (h *MetaHandler) Subjects(c *fiber.Ctx) error {
	return c.JSON(subjects)
}

func (h *MetaHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *MetaHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.readiness.Ready(ctx); err != nil {
		logger.Warn("Readiness check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"status": "ready",
	})
}
