package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ErrLegacyWordFormat is returned for Word 97-2003 binary documents.
var ErrLegacyWordFormat = fmt.Errorf("%w: binary Word 97-2003 .doc files cannot be read, save the document as .docx and upload it again", ErrUnsupportedFormat)

var zipMagic = []byte("PK\x03\x04")

// extractDOC reads .doc uploads that are really OOXML packages and rejects the binary format.
func extractDOC(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	head := make([]byte, len(zipMagic))
	n, _ := io.ReadFull(f, head)
	f.Close()

	if !bytes.Equal(head[:n], zipMagic) {
		return "", ErrLegacyWordFormat
	}
	return extractDOCX(path)
}

// extractDOCX reads word/document.xml and keeps one line per paragraph.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open document archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document body: %w", err)
		}
		defer rc.Close()

		paragraphs, err := readParagraphs(rc, nil)
		if err != nil {
			return "", fmt.Errorf("failed to parse document body: %w", err)
		}
		return strings.Join(paragraphs, "\n"), nil
	}
	return "", errors.New("word/document.xml not found")
}

// extractPPTX reads every slide in numeric order, one block per slide.
func extractPPTX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open presentation archive: %w", err)
	}
	defer zr.Close()

	type slideFile struct {
		n int
		f *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slideFile{n: n, f: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	blocks := make([]string, 0, len(slides))
	for i, s := range slides {
		rc, err := s.f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open slide %d: %w", s.n, err)
		}
		shapes, err := readShapes(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse slide %d: %w", s.n, err)
		}
		if len(shapes) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("=== Slide %d ===\n%s", i+1, strings.Join(shapes, "\n")))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// readShapes groups slide text by shape; tables in graphic frames count as shapes.
func readShapes(r io.Reader) ([]string, error) {
	var (
		shapes  []string
		current []string
		depth   int
	)
	dec := xml.NewDecoder(r)
	var paragraph strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return shapes, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp", "graphicFrame":
				if depth == 0 {
					current = nil
				}
				depth++
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(paragraph.String()); depth > 0 && p != "" {
					current = append(current, p)
				}
				paragraph.Reset()
			case "sp", "graphicFrame":
				depth--
				if depth == 0 && len(current) > 0 {
					shapes = append(shapes, strings.Join(current, "\n"))
				}
			}
		}
	}
}

// readParagraphs collects non-empty w:p paragraphs, honouring w:br and w:tab.
func readParagraphs(r io.Reader, out []string) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paragraph strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "br", "cr":
				paragraph.WriteString("\n")
			case "tab":
				paragraph.WriteString("\t")
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(paragraph.String()); p != "" {
					out = append(out, p)
				}
				paragraph.Reset()
			}
		}
	}
}
