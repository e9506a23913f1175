package validation

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxMessageLength    int
	MaxSources          int
	MaxSourceLength     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed bodies before they reach the handlers.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 10000
	}
	if cfg.MaxSources == 0 {
		cfg.MaxSources = 50
	}
	if cfg.MaxSourceLength == 0 {
		cfg.MaxSourceLength = 2048
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedContentType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		switch strings.TrimSuffix(c.Path(), "/") {
		case "/api/chat":
			return checkTextField(c, cfg, "message")
		case "/api/analyze-file":
			return checkTextField(c, cfg, "question")
		case "/api/sources/analyze":
			return checkSources(c, cfg)
		}

		return c.Next()
	}
}

func allowedContentType(contentType string, allowed []string) bool {
	for _, allowedType := range allowed {
		if strings.Contains(contentType, allowedType) {
			return true
		}
	}
	return false
}

func checkTextField(c *fiber.Ctx, cfg Config, field string) error {
	var req map[string]interface{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	text, ok := req[field].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": field + " is required and must be a string",
		})
	}

	if utf8.RuneCountInString(text) > cfg.MaxMessageLength {
		cfg.Logger.Warn("Rejected oversized message",
			zap.String("ip", c.IP()),
			zap.String("field", field),
			zap.Int("length", utf8.RuneCountInString(text)),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": field + " exceeds maximum length",
		})
	}

	return c.Next()
}

func checkSources(c *fiber.Ctx, cfg Config) error {
	var sources []interface{}
	if err := json.Unmarshal(c.Body(), &sources); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body must be a JSON array of URLs",
		})
	}

	if len(sources) > cfg.MaxSources {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many sources",
		})
	}

	for _, s := range sources {
		str, ok := s.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Every source must be a non-empty string",
			})
		}
		if len(str) > cfg.MaxSourceLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Source URL exceeds maximum length",
			})
		}
	}

	return c.Next()
}

// Sanitize trims surrounding whitespace and drops NUL bytes.
func Sanitize(input string) string {
	input = strings.TrimSpace(input)
	return strings.ReplaceAll(input, "\x00", "")
}
