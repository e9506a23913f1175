package docgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestRenderer() *Renderer {
	return NewRenderer("WikiAI", WithClock(func() time.Time { return fixedTime }))
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(b)
	}
	return entries
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"pdf", "DOCX", " pptx ", "Xlsx"} {
		f, err := ParseFormat(s)
		require.NoError(t, err, s)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(s)), string(f))
	}

	_, err := ParseFormat("odt")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = newTestRenderer().Render(Format("rtf"), "t", "c")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Contains(t, FormatDOCX.ContentType(), "wordprocessingml")
	assert.Contains(t, FormatPPTX.ContentType(), "presentationml")
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestRenderer_Filename(t *testing.T) {
	r := newTestRenderer()

	assert.Equal(t, "Photosynthese_20250314_092653.pdf", r.Filename(FormatPDF, "Photosynthese", ""))
	assert.Equal(t, "La_Nouvelle-France_20250314_092653.docx", r.Filename(FormatDOCX, "La Nouvelle-France", "  "))
	assert.Equal(t, "document_20250314_092653.xlsx", r.Filename(FormatXLSX, "", ""))
	assert.Equal(t, "Cours_5_6_20250314_092653.pdf", r.Filename(FormatPDF, "Cours 5/6", ""))
	assert.Equal(t, "a_b_c_d_20250314_092653.pdf", r.Filename(FormatPDF, `a\\b: c?*"d"`, ""))
	assert.Equal(t, "document_20250314_092653.pdf", r.Filename(FormatPDF, "../..", ""))
	assert.Equal(t, "notes.pptx", r.Filename(FormatPPTX, "ignored", "notes"))
	assert.Equal(t, "Notes.PDF", r.Filename(FormatPDF, "ignored", "Notes.PDF"))
	assert.Equal(t, "notes.pdf.docx", r.Filename(FormatDOCX, "ignored", "notes.pdf"))
}

func TestSplitParagraphs(t *testing.T) {
	content := "First line\nstill first\n\n  Second  \n \t \nThird\r\n\r\n\n\n"
	assert.Equal(t, []string{"First line\nstill first", "Second", "Third"}, SplitParagraphs(content))
	assert.Empty(t, SplitParagraphs(" \n\n \n"))
}

func TestPackSlides_ChunksOfFive(t *testing.T) {
	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("Point %d", i+1)
	}
	slides := packSlides(page{Title: "Deck", Paragraphs: paragraphs, Footer: "footer", Generated: fixedTime})

	require.Len(t, slides, 4)
	assert.Equal(t, "Deck", slides[0].Title)
	assert.Equal(t, "Generated on 14/03/2025", slides[0].Subtitle)
	assert.Len(t, slides[1].Bullets, 5)
	assert.Len(t, slides[2].Bullets, 5)
	assert.Equal(t, []string{"Point 11", "Point 12"}, slides[3].Bullets)
	assert.Equal(t, "Content — Part 3", slides[3].Title)
	assert.Equal(t, "footer", slides[3].Footer)
	assert.Empty(t, slides[1].Footer)
}

func TestPackSlides_TitleOnly(t *testing.T) {
	slides := packSlides(page{Title: "Empty", Footer: "footer", Generated: fixedTime})
	require.Len(t, slides, 1)
	assert.Equal(t, "footer", slides[0].Footer)
}

func TestBulletCandidates_SplitsLongParagraphs(t *testing.T) {
	sentence := strings.Repeat("word ", 25) + "end"
	long := sentence + ". " + sentence + ". " + sentence
	require.Greater(t, len([]rune(long)), longParagraphChars)

	bullets := bulletCandidates([]string{"short one", long})
	require.Len(t, bullets, 4)
	assert.Equal(t, "short one", bullets[0])
	assert.Equal(t, sentence+".", bullets[1])
	assert.Equal(t, sentence+".", bullets[2])
	assert.Equal(t, sentence, bullets[3])
}

func TestRender_PDF(t *testing.T) {
	data, err := newTestRenderer().Render(FormatPDF, "Photosynthesis", "Light energy.\n\nChlorophyll.")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRender_DOCX(t *testing.T) {
	data, err := newTestRenderer().Render(FormatDOCX, "Rivers & Lakes", "Saint-Laurent <fleuve>\n\nSecond paragraph")
	require.NoError(t, err)

	entries := zipEntries(t, data)
	require.Contains(t, entries, "[Content_Types].xml")
	require.Contains(t, entries, "word/document.xml")

	doc := entries["word/document.xml"]
	assert.Contains(t, doc, "Rivers &amp; Lakes")
	assert.Contains(t, doc, "Saint-Laurent &lt;fleuve&gt;")
	assert.Contains(t, doc, "Second paragraph")
	assert.Contains(t, doc, "Generated by WikiAI — 14/03/2025 09:26")
}

func TestRender_PPTX(t *testing.T) {
	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("Idea %d", i+1)
	}
	data, err := newTestRenderer().Render(FormatPPTX, "Deck", strings.Join(paragraphs, "\n\n"))
	require.NoError(t, err)

	entries := zipEntries(t, data)
	var slides int
	for name := range entries {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slides++
		}
	}
	assert.Equal(t, 4, slides)
	assert.Contains(t, entries["ppt/slides/slide1.xml"], "Deck")
	assert.Contains(t, entries["ppt/slides/slide4.xml"], "Idea 12")
	assert.Contains(t, entries["ppt/slides/slide4.xml"], "Generated by WikiAI")
	assert.Contains(t, entries["ppt/presentation.xml"], `r:id="rId6"`)
}

func TestRender_XLSX(t *testing.T) {
	data, err := newTestRenderer().Render(FormatXLSX, "Planets", "Mercury\n\nVenus\n\nEarth")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(xlsxSheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Planets", cell("A1"))
	assert.Equal(t, "Key points:", cell("A3"))
	assert.Equal(t, "1", cell("A4"))
	assert.Equal(t, "Mercury", cell("B4"))
	assert.Equal(t, "3", cell("A6"))
	assert.Equal(t, "Earth", cell("B6"))
	assert.Equal(t, "Generated by WikiAI — 14/03/2025 09:26", cell("A8"))
}
