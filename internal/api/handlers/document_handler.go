package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/docgen"
	"github.com/wikiai/backend/internal/ingestion"
	"github.com/wikiai/backend/internal/metrics"
	"github.com/wikiai/backend/pkg/logger"
)

const defaultDocumentTitle = "Document WikiAI"

type DocumentHandler struct {
	renderer     *docgen.Renderer
	extractor    *ingestion.Extractor
	maxFileSize  int64
	maxTextChars int
}

func NewDocumentHandler(renderer *docgen.Renderer, extractor *ingestion.Extractor, maxFileSize int64, maxTextChars int) *DocumentHandler {
	return &DocumentHandler{
		renderer:     renderer,
		extractor:    extractor,
		maxFileSize:  maxFileSize,
		maxTextChars: maxTextChars,
	}
}

func (h *DocumentHandler) GenerateDocument(c *fiber.Ctx) error {
	var req struct {
		Content  string `json:"content"`
		Title    string `json:"title"`
		Format   string `json:"format"`
		Filename string `json:"filename"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content is required",
		})
	}

	format, err := docgen.ParseFormat(req.Format)
	if err != nil {
		return errorResponse(c, err, "Invalid format")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultDocumentTitle
	}

	data, err := h.renderer.Render(format, title, req.Content)
	if err != nil {
		metrics.DocumentsGenerated.WithLabelValues(string(format), metrics.StatusError).Inc()
		logger.Error("Failed to render document", zap.String("format", string(format)), zap.Error(err))
		return errorResponse(c, err, "Failed to generate document")
	}
	metrics.DocumentsGenerated.WithLabelValues(string(format), metrics.StatusOK).Inc()

	filename := h.renderer.Filename(format, title, baseName(req.Filename))

	logger.Info("Document generated",
		zap.String("format", string(format)),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)

	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(data)
}

func (h *DocumentHandler) UploadFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	filename := baseName(fh.Filename)
	ext := strings.ToLower(filepath.Ext(filename))

	if err := ingestion.CheckSize(fh.Size, h.maxFileSize); err != nil {
		metrics.FilesExtracted.WithLabelValues(ext, metrics.StatusError).Inc()
		return errorResponse(c, err, "File too large")
	}

	f, err := fh.Open()
	if err != nil {
		logger.Error("Failed to open upload", zap.String("filename", filename), zap.Error(err))
		return errorResponse(c, err, "Failed to read file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		logger.Error("Failed to read upload", zap.String("filename", filename), zap.Error(err))
		return errorResponse(c, err, "Failed to read file")
	}
	if err := ingestion.CheckSize(int64(len(data)), h.maxFileSize); err != nil {
		return errorResponse(c, err, "File too large")
	}

	text, err := h.extractor.Extract(data, filename)
	if err != nil {
		metrics.FilesExtracted.WithLabelValues(ext, metrics.StatusError).Inc()
		logger.Warn("Failed to extract text", zap.String("filename", filename), zap.Error(err))
		return errorResponse(c, err, "Failed to process file")
	}
	metrics.FilesExtracted.WithLabelValues(ext, metrics.StatusOK).Inc()

	length := len([]rune(text))
	metrics.ExtractedTextChars.Observe(float64(length))

	text, truncated := ingestion.Truncate(text, h.maxTextChars)

	return c.JSON(fiber.Map{
		"filename":       filename,
		"file_size":      len(data),
		"extracted_text": text,
		"text_length":    length,
		"truncated":      truncated,
		"message":        fmt.Sprintf("File %s processed successfully", filename),
	})
}

// baseName strips any directory part a client put in a filename.
func baseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
