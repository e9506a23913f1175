package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	horizontalRuns = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLineRuns  = regexp.MustCompile(`\s*\n\s*`)
)

func extractText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	return strings.ToValidUTF8(string(b), "�"), nil
}

func extractCSV(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)

	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = sniffDelimiter(b)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, strings.Join(record, " | "))
	}
	return strings.ToValidUTF8(strings.Join(lines, "\n"), "�"), nil
}

// sniffDelimiter picks ';' when the header line uses it more than ','.
func sniffDelimiter(b []byte) rune {
	first := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		first = b[:i]
	}
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		return ';'
	}
	return ','
}

func extractHTML(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return cleanHTML(string(b))
}

func cleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = horizontalRuns.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n")

	return strings.TrimSpace(text), nil
}
