// Package docgen renders a title and free text into downloadable PDF, Word, PowerPoint and Excel files.
package docgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid format: expected one of pdf, docx, pptx, xlsx")

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatXLSX Format = "xlsx"
)

const (
	footerTimeLayout   = "02/01/2006 15:04"
	filenameTimeLayout = "20060102_150405"
)

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// unsafeFilenameRun covers whitespace, path separators and characters reserved on Windows.
var unsafeFilenameRun = regexp.MustCompile(`[\s/\\:*?"<>|\x00-\x1f]+`)

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return f, nil
}

func (f Format) ContentType() string {
	return contentTypes[f]
}

func (f Format) Extension() string {
	return "." + string(f)
}

type Renderer struct {
	productName string
	now         func() time.Time
}

type Option func(*Renderer)

// WithClock replaces time.Now, for reproducible footers.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(productName string, opts ...Option) *Renderer {
	r := &Renderer{
		productName: productName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// page is what every format lays out: a title, the paragraphs and the generation marker.
type page struct {
	Title      string
	Paragraphs []string
	Footer     string
	Generated  time.Time
}

func (r *Renderer) Render(format Format, title, content string) ([]byte, error) {
	generated := r.now()
	p := page{
		Title:      title,
		Paragraphs: SplitParagraphs(content),
		Footer:     fmt.Sprintf("Generated by %s — %s", r.productName, generated.Format(footerTimeLayout)),
		Generated:  generated,
	}

	switch format {
	case FormatPDF:
		return renderPDF(p)
	case FormatDOCX:
		return renderDOCX(p)
	case FormatPPTX:
		return renderPPTX(p)
	case FormatXLSX:
		return renderXLSX(p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// Filename derives the attachment name. A caller supplied name only gets the extension appended.
func (r *Renderer) Filename(format Format, title, requested string) string {
	ext := format.Extension()

	requested = strings.TrimSpace(requested)
	if requested != "" {
		if strings.HasSuffix(strings.ToLower(requested), ext) {
			return requested
		}
		return requested + ext
	}

	base := strings.Trim(unsafeFilenameRun.ReplaceAllString(strings.TrimSpace(title), "_"), "_.")
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("%s_%s%s", base, r.now().Format(filenameTimeLayout), ext)
}

// SplitParagraphs cuts content on blank lines and drops empty paragraphs.
func SplitParagraphs(content string) []string {
	var out []string
	for _, p := range blankLine.Split(content, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
