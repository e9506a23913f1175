// Package api assembles the HTTP application: middleware, handlers and routes.
package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/api/handlers"
	"github.com/wikiai/backend/internal/docgen"
	"github.com/wikiai/backend/internal/ingestion"
	"github.com/wikiai/backend/internal/metrics"
	"github.com/wikiai/backend/internal/middleware/security"
	"github.com/wikiai/backend/internal/middleware/validation"
	"github.com/wikiai/backend/pkg/config"
	appLogger "github.com/wikiai/backend/pkg/logger"
)

// ChatBackend is what the chat, history, file-analysis and readiness routes need.
type ChatBackend interface {
	handlers.ChatService
	handlers.ReadinessChecker
}

type Services struct {
	Chat      ChatBackend
	Sources   handlers.SourceAnalyzer
	Renderer  *docgen.Renderer
	Extractor *ingestion.Extractor
}

type Options struct {
	// RequestLog enables the per-request access log.
	RequestLog bool
}

func NewServer(cfg *config.Config, svc Services, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Assistant.ProductName,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Disposition, " + handlers.HeaderAIDegraded,
		AllowCredentials: !allowsAnyOrigin(cfg.Server.AllowedOrigins()),
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Server.IsDevelopment,
	}))
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(svc.Chat)
	sourcesHandler := handlers.NewSourcesHandler(svc.Sources)
	documentHandler := handlers.NewDocumentHandler(svc.Renderer, svc.Extractor, int64(cfg.Upload.MaxFileSize), cfg.Upload.MaxTextChars)
	metaHandler := handlers.NewMetaHandler(svc.Chat)
	wsHandler := handlers.NewWebSocketHandler(svc.Chat)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api")

	api.Get("/", metaHandler.Root)
	api.Get("/subjects", metaHandler.Subjects)
	api.Get("/health", metaHandler.Health)
	api.Get("/ready", metaHandler.Ready)

	api.Post("/chat", chatHandler.Chat)
	api.Get("/chat/history/:session_id", chatHandler.History)
	api.Post("/analyze-file", chatHandler.AnalyzeFile)

	api.Use("/chat/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/chat/ws", websocket.New(wsHandler.HandleConnection))

	api.Post("/sources/analyze", sourcesHandler.Analyze)

	api.Post("/generate-document", documentHandler.GenerateDocument)
	api.Post("/upload-file", documentHandler.UploadFile)

	return app
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}

// errorHandler keeps the JSON error shape for failures raised outside the handlers,
// including bodies rejected for exceeding BodyLimit before any route runs.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code == fiber.StatusRequestEntityTooLarge {
		msg = fmt.Sprintf("%v: request body exceeds the upload limit", ingestion.ErrFileTooLarge)
	}
	if code >= fiber.StatusInternalServerError {
		appLogger.Error("Unhandled request error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
