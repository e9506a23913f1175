package ingestion

import (
	"errors"
	"fmt"
)

var ErrFileTooLarge = errors.New("file too large")

const TruncationMarker = "\n\n[... texte tronqué ...]"

// CheckSize rejects uploads above maxBytes.
func CheckSize(size int64, maxBytes int64) error {
	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes, maximum is %d MB", ErrFileTooLarge, size, maxBytes/(1024*1024))
	}
	return nil
}

// Truncate cuts text to maxChars characters and appends TruncationMarker when it did.
func Truncate(text string, maxChars int) (string, bool) {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text, false
	}
	return string(runes[:maxChars]) + TruncationMarker, true
}
