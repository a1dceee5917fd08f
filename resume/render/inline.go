package render

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a run of text sharing one inline style.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

var (
	boldDelims   = []string{"***", "___", "**", "__"}
	italicDelims = []string{"*", "_"}
)

// ParseInline splits inline markdown into styled spans. Bold delimiters are
// matched before italic ones; a tripled delimiter is bold and italic.
// Underscores inside a word are literal.
func ParseInline(s string) []Span {
	var out []Span
	for _, outer := range splitDelimited(s, boldDelims) {
		for _, inner := range splitDelimited(outer.text, italicDelims) {
			out = appendSpan(out, Span{Text: unescape(inner.text), Bold: outer.marked, Italic: inner.marked})
		}
	}
	return out
}

// PlainText drops inline markup.
func PlainText(s string) string {
	var b strings.Builder
	for _, sp := range ParseInline(s) {
		b.WriteString(sp.Text)
	}
	return b.String()
}

type piece struct {
	text   string
	marked bool
}

func splitDelimited(s string, delims []string) []piece {
	var (
		out   []piece
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, piece{text: plain.String()})
			plain.Reset()
		}
	}
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && isDelimChar(s[i+1]) {
			plain.WriteString(s[i : i+2])
			i += 2
			continue
		}
		if text, next, ok := matchDelimited(s, i, delims); ok {
			flush()
			out = append(out, piece{text: text, marked: true})
			i = next
			continue
		}
		plain.WriteByte(s[i])
		i++
	}
	flush()
	return out
}

// matchDelimited tries each delimiter opening at i, longest first. The inner
// text of a tripled delimiter keeps one delimiter on each side so the italic
// pass marks it too.
func matchDelimited(s string, i int, delims []string) (string, int, bool) {
	for _, d := range delims {
		if !strings.HasPrefix(s[i:], d) || !canOpen(s, i, d) {
			continue
		}
		end := findClose(s, i+len(d), d)
		if end < 0 {
			continue
		}
		inner := s[i+len(d) : end]
		if len(d) == 3 {
			inner = d[:1] + inner + d[:1]
		}
		return inner, end + len(d), true
	}
	return "", i, false
}

func canOpen(s string, i int, d string) bool {
	next := i + len(d)
	if next >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[next:])
	if unicode.IsSpace(r) {
		return false
	}
	if len(d) == 1 && s[next] == d[0] {
		return false
	}
	if d[0] == '_' && i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		if isWordRune(prev) {
			return false
		}
	}
	return true
}

func findClose(s string, from int, d string) int {
	for j := from + 1; j <= len(s)-len(d); j++ {
		if s[j-1] == '\\' || !strings.HasPrefix(s[j:], d) {
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(s[:j])
		if unicode.IsSpace(prev) {
			continue
		}
		after := j + len(d)
		if len(d) == 1 && after < len(s) && s[after] == d[0] {
			j++
			continue
		}
		if d[0] == '_' && after < len(s) {
			r, _ := utf8.DecodeRuneInString(s[after:])
			if isWordRune(r) {
				continue
			}
		}
		return j
	}
	return -1
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDelimChar(b byte) bool {
	return b == '*' || b == '_' || b == '\\'
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isDelimChar(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func appendSpan(out []Span, sp Span) []Span {
	if sp.Text == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Bold == sp.Bold && out[n-1].Italic == sp.Italic {
		out[n-1].Text += sp.Text
		return out
	}
	return append(out, sp)
}
