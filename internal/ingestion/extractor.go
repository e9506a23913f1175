// Package ingestion turns uploaded files into plain text usable as chat context.
package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wikiai/backend/pkg/logger"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyContent      = errors.New("no text could be extracted, the file may be protected or corrupted")
)

type extractFunc func(path string) (string, error)

var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".doc":  extractDOC,
	".docx": extractDOCX,
	".txt":  extractText,
	".md":   extractText,
	".csv":  extractCSV,
	".xlsx": extractSpreadsheet,
	".xls":  extractSpreadsheet,
	".pptx": extractPPTX,
	".html": extractHTML,
	".htm":  extractHTML,
}

// SupportedExtensions lists the accepted extensions in a stable order for error messages.
var SupportedExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".csv", ".xlsx", ".xls", ".pptx", ".html", ".htm"}

type Extractor struct {
	tempDir string
}

// NewExtractor spools uploads into tempDir, or the system temp dir when empty.
func NewExtractor(tempDir string) *Extractor {
	return &Extractor{tempDir: tempDir}
}

// Extract returns the trimmed text of data, dispatching on the extension of filename.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extract, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w %q, accepted: %s", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
	}

	tmp, err := os.CreateTemp(e.tempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove temp file", zap.String("path", tmp.Name()), zap.Error(err))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	text, err := extract(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", ext, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyContent
	}

	logger.Debug("Text extracted",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
		zap.Int("chars", len([]rune(text))),
	)

	return text, nil
}

// recoverInto converts a panic from a third-party parser into an error.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("parser panic: %v", r)
	}
}
