package render

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin       = 20.0
	ptToMM          = 0.3528
	lineSpacing     = 1.4
	listIndent      = 6.0
	blankGap        = 3.0
	paragraphGap    = 2.0
	bodyFont        = "Helvetica"
	monoFont        = "Courier"
	bulletGlyph     = "•"
	codePaddingMM   = 1.5
	headingGapMM    = 2.5
	ruleGapMM       = 3.0
	minLineHeightMM = 4.0
)

// pdfWriter lays out tokens on A4 pages with an explicit vertical cursor.
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	left   float64
	right  float64
	top    float64
	bottom float64
	y      float64
}

type pdfWord struct {
	text        string
	bold        bool
	italic      bool
	spaceBefore bool
}

func newPDFWriter() *pdfWriter {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(false, pdfMargin)
	doc.SetCreator("jobassist", true)
	doc.AddPage()

	pageW, pageH := doc.GetPageSize()
	return &pdfWriter{
		pdf:    doc,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
		left:   pdfMargin,
		right:  pageW - pdfMargin,
		top:    pdfMargin,
		bottom: pageH - pdfMargin,
		y:      pdfMargin,
	}
}

// RenderPDF lays tokens out as a paginated A4 document.
func RenderPDF(tokens []Token) ([]byte, error) {
	w := newPDFWriter()

	for _, tok := range tokens {
		switch tok.Kind {
		case KindBlank:
			w.y += blankGap
		case KindHeading:
			style := HeadingStyle(tok.Level)
			w.y += headingGapMM
			w.flow(wordsFromSpans(ParseInline(tok.Text), true), w.left, w.left, style.SizePt)
			w.y += headingGapMM / 2
		case KindParagraph:
			w.flow(wordsFromSpans(ParseInline(tok.Text), false), w.left, w.left, BodySize)
			w.y += paragraphGap
		case KindList:
			for _, item := range tok.Items {
				w.listItem(item)
			}
			w.y += paragraphGap
		case KindRule:
			w.rule()
		case KindCode:
			w.code(tok.Text)
			w.y += paragraphGap
		default:
			for _, line := range strings.Split(tok.Text, "\n") {
				w.flow(wordsFromText(line), w.left, w.left, BodySize)
			}
			w.y += paragraphGap
		}
	}

	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lineHeight(sizePt float64) float64 {
	h := sizePt * ptToMM * lineSpacing
	if h < minLineHeightMM {
		return minLineHeightMM
	}
	return h
}

// ensure starts a new page when a line of height h would cross the bottom margin.
func (w *pdfWriter) ensure(h float64) {
	if w.y+h > w.bottom {
		w.pdf.AddPage()
		w.y = w.top
	}
}

func (w *pdfWriter) setFont(family string, bold, italic bool, sizePt float64) {
	style := ""
	if bold {
		style += "B"
	}
	if italic {
		style += "I"
	}
	w.pdf.SetFont(family, style, sizePt)
}

// flow wraps words between firstX (first line) and restX (following lines) and the right margin.
func (w *pdfWriter) flow(words []pdfWord, firstX, restX, sizePt float64) {
	lh := lineHeight(sizePt)
	if len(words) == 0 {
		w.ensure(lh)
		w.y += lh
		return
	}
	w.ensure(lh)
	x := firstX
	lineStart := true
	for _, word := range words {
		w.setFont(bodyFont, word.bold, word.italic, sizePt)
		for i, part := range w.splitWide(word.text, w.right-restX) {
			text := w.tr(part)
			width := w.pdf.GetStringWidth(text)
			gap := 0.0
			if i == 0 && word.spaceBefore && !lineStart {
				gap = w.pdf.GetStringWidth(" ")
			}
			if !lineStart && x+gap+width > w.right {
				w.y += lh
				w.ensure(lh)
				x = restX
				gap = 0
			}
			x += gap
			w.pdf.SetXY(x, w.y)
			w.pdf.CellFormat(width, lh, text, "", 0, "L", false, 0, "")
			x += width
			lineStart = false
		}
	}
	w.y += lh
}

// splitWide breaks a word wider than limit into pieces that each fit, in the
// current font. Every piece holds at least one rune.
func (w *pdfWriter) splitWide(word string, limit float64) []string {
	if w.pdf.GetStringWidth(w.tr(word)) <= limit {
		return []string{word}
	}
	var out []string
	runes := []rune(word)
	for len(runes) > 0 {
		n := 1
		for n < len(runes) && w.pdf.GetStringWidth(w.tr(string(runes[:n+1]))) <= limit {
			n++
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func (w *pdfWriter) listItem(item ListItem) {
	indent := w.left + float64(item.Level)*listIndent
	marker := bulletGlyph
	if item.Ordinal > 0 {
		marker = strconv.Itoa(item.Ordinal) + "."
	}
	lh := lineHeight(BodySize)
	w.ensure(lh)
	w.setFont(bodyFont, false, false, BodySize)
	w.pdf.SetXY(indent, w.y)
	w.pdf.CellFormat(listIndent, lh, w.tr(marker), "", 0, "L", false, 0, "")
	textX := indent + listIndent
	w.flow(wordsFromSpans(ParseInline(item.Text), false), textX, textX, BodySize)
}

func (w *pdfWriter) rule() {
	w.y += ruleGapMM / 2
	w.ensure(ruleGapMM)
	w.pdf.SetDrawColor(160, 160, 160)
	w.pdf.SetLineWidth(0.3)
	w.pdf.Line(w.left, w.y, w.right, w.y)
	w.y += ruleGapMM
}

// code draws each source line in Courier over a shaded band, hard-wrapping
// lines that exceed the text width.
func (w *pdfWriter) code(body string) {
	w.pdf.SetFont(monoFont, "", CodeSize)
	lh := lineHeight(CodeSize)
	charW := w.pdf.GetStringWidth("M")
	width := w.right - w.left
	perLine := int((width - 2*codePaddingMM) / charW)
	if perLine < 1 {
		perLine = 1
	}
	w.pdf.SetFillColor(242, 242, 242)
	for _, line := range strings.Split(body, "\n") {
		for _, chunk := range chunkRunes(strings.ReplaceAll(line, "\t", "    "), perLine) {
			w.ensure(lh)
			w.pdf.Rect(w.left, w.y, width, lh, "F")
			w.pdf.SetXY(w.left+codePaddingMM, w.y)
			w.pdf.CellFormat(width-2*codePaddingMM, lh, w.tr(chunk), "", 0, "L", false, 0, "")
			w.y += lh
		}
	}
}

func chunkRunes(s string, n int) []string {
	runes := []rune(s)
	if len(runes) <= n {
		return []string{s}
	}
	var out []string
	for len(runes) > n {
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return append(out, string(runes))
}

func wordsFromSpans(spans []Span, forceBold bool) []pdfWord {
	var out []pdfWord
	pendingSpace := false
	for _, sp := range spans {
		start := -1
		for i, r := range sp.Text {
			if unicode.IsSpace(r) {
				if start >= 0 {
					out = append(out, pdfWord{text: sp.Text[start:i], bold: sp.Bold || forceBold, italic: sp.Italic, spaceBefore: pendingSpace})
					start = -1
				}
				pendingSpace = true
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			out = append(out, pdfWord{text: sp.Text[start:], bold: sp.Bold || forceBold, italic: sp.Italic, spaceBefore: pendingSpace})
			pendingSpace = false
		}
	}
	return out
}

func wordsFromText(s string) []pdfWord {
	return wordsFromSpans([]Span{{Text: s}}, false)
}
