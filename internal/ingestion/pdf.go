package ingestion

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/wikiai/backend/pkg/logger"
)

// TJ offsets below this many thousandths of an em are word gaps.
const tjWordGap = -250

// identityUCS matches a ToUnicode map that sends every 2-byte code to the same UTF-16 unit.
var identityUCS = regexp.MustCompile(`1\s+beginbfrange\s*<0000>\s*<[fF]{4}>\s*<0000>\s*endbfrange`)

func extractPDF(path string) (text string, err error) {
	defer recoverInto(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		lines, err := pdfPageLines(p)
		if err != nil || len(lines) == 0 {
			logger.Debug("Positioned text unavailable, reading page rows",
				zap.Int("page", i),
				zap.Error(err),
			)
			lines = pdfPageRows(p)
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}

	text = strings.Join(pages, "\n")
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	logger.Debug("Row extraction empty, falling back to plain text", zap.String("path", path))
	return pdfPlainText(r)
}

type pdfMatrix [6]float64

var pdfIdentity = pdfMatrix{1, 0, 0, 1, 0, 0}

func (m pdfMatrix) mul(n pdfMatrix) pdfMatrix {
	return pdfMatrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func pdfMatrixFrom(args []pdf.Value) pdfMatrix {
	var m pdfMatrix
	for i := range m {
		m[i] = args[i].Float64()
	}
	return m
}

type pdfRun struct {
	baseline float64
	text     string
}

// pdfPageLines walks the page content stream and joins text runs that share a baseline,
// top of the page first.
func pdfPageLines(p pdf.Page) (lines []string, err error) {
	defer recoverInto(&err)

	var (
		ctm, tm, tlm = pdfIdentity, pdfIdentity, pdfIdentity
		saved        []pdfMatrix
		leading      float64
		decode       = func(s string) string { return s }
		decoders     = map[string]func(string) string{}
		runs         []pdfRun
	)

	show := func(s string) {
		if s == "" {
			return
		}
		y := tm.mul(ctm)[5]
		if n := len(runs); n > 0 && runs[n-1].baseline == y {
			runs[n-1].text += s
			return
		}
		runs = append(runs, pdfRun{baseline: y, text: s})
	}
	moveLine := func(tx, ty float64) {
		tlm = pdfMatrix{1, 0, 0, 1, tx, ty}.mul(tlm)
		tm = tlm
	}

	walk := func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if n := len(saved); n > 0 {
				ctm = saved[n-1]
				saved = saved[:n-1]
			}
		case "cm":
			if len(args) == 6 {
				ctm = pdfMatrixFrom(args).mul(ctm)
			}
		case "BT":
			tm, tlm = pdfIdentity, pdfIdentity
		case "Tm":
			if len(args) == 6 {
				tlm = pdfMatrixFrom(args)
				tm = tlm
			}
		case "TL":
			if len(args) == 1 {
				leading = args[0].Float64()
			}
		case "TD":
			if len(args) == 2 {
				leading = -args[1].Float64()
				moveLine(args[0].Float64(), args[1].Float64())
			}
		case "Td":
			if len(args) == 2 {
				moveLine(args[0].Float64(), args[1].Float64())
			}
		case "T*":
			moveLine(0, -leading)
		case "Tf":
			if len(args) == 2 {
				decode = pdfFontDecoder(p, args[0].Name(), decoders)
			}
		case "Tj":
			if len(args) == 1 {
				show(decode(args[0].RawString()))
			}
		case "'":
			if len(args) == 1 {
				moveLine(0, -leading)
				show(decode(args[0].RawString()))
			}
		case "\"":
			if len(args) == 3 {
				moveLine(0, -leading)
				show(decode(args[2].RawString()))
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			for i := 0; i < args[0].Len(); i++ {
				v := args[0].Index(i)
				if v.Kind() == pdf.String {
					show(decode(v.RawString()))
				} else if v.Float64() < tjWordGap {
					show(" ")
				}
			}
		}
	}

	contents := p.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), walk)
		}
	} else {
		pdf.Interpret(contents, walk)
	}

	return pdfJoinRuns(runs), nil
}

// pdfJoinRuns merges runs on the same rounded baseline and orders rows top to bottom.
func pdfJoinRuns(runs []pdfRun) []string {
	type row struct {
		baseline float64
		text     strings.Builder
	}
	var rows []*row
	index := map[float64]*row{}
	for _, run := range runs {
		key := math.Round(run.baseline)
		r, ok := index[key]
		if !ok {
			r = &row{baseline: key}
			index[key] = r
			rows = append(rows, r)
		}
		r.text.WriteString(run.text)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].baseline > rows[j].baseline })

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if line := strings.TrimSpace(r.text.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// pdfFontDecoder reads Identity-H fonts with an identity ToUnicode map as UTF-16BE,
// a case the library decoder only handles for code points below U+0100.
func pdfFontDecoder(p pdf.Page, name string, cache map[string]func(string) string) func(string) string {
	if dec, ok := cache[name]; ok {
		return dec
	}

	font := p.Font(name)
	var dec func(string) string
	if font.V.Key("Encoding").Name() == "Identity-H" && hasIdentityUCS(font.V.Key("ToUnicode")) {
		dec = decodeUTF16BE
	} else {
		dec = font.Encoder().Decode
	}
	cache[name] = dec
	return dec
}

func hasIdentityUCS(cmap pdf.Value) bool {
	if cmap.Kind() != pdf.Stream {
		return false
	}
	rc := cmap.Reader()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return false
	}
	return strings.Count(string(b), "beginbfrange") == 1 &&
		!strings.Contains(string(b), "beginbfchar") &&
		identityUCS.Match(b)
}

func decodeUTF16BE(raw string) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}

// pdfPageRows is the library's own row grouping, used when the content stream cannot be walked.
func pdfPageRows(p pdf.Page) []string {
	rows, err := p.GetTextByRow()
	if err != nil {
		logger.Debug("Failed to read pdf page rows", zap.Error(err))
		return nil
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, word := range row.Content {
			b.WriteString(word.S)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func pdfPlainText(r *pdf.Reader) (string, error) {
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return string(b), nil
}
