package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Kind is the type of a top-level markdown block.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindList
	KindRule
	KindCode
	KindBlank
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindRule:
		return "rule"
	case KindCode:
		return "code"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// ListItem is one entry of a list token. Nested lists are flattened with a
// deeper Level. Ordinal is zero for bullets.
type ListItem struct {
	Text    string
	Level   int
	Ordinal int
}

// Token is one top-level block. Text holds raw inline markdown for headings
// and paragraphs, the literal body for code, and the source text for unknown
// blocks.
type Token struct {
	Kind  Kind
	Level int
	Text  string
	Items []ListItem
}

// Tokenize parses markdown into top-level tokens. A blank token precedes any
// block that follows blank lines.
func Tokenize(markdown string) []Token {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var tokens []Token
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.HasBlankPreviousLines() && len(tokens) > 0 {
			tokens = append(tokens, Token{Kind: KindBlank})
		}
		tokens = append(tokens, blockToken(n, src))
	}
	return tokens
}

func blockToken(n ast.Node, src []byte) Token {
	switch node := n.(type) {
	case *ast.Heading:
		return Token{Kind: KindHeading, Level: node.Level, Text: joinLines(node, src)}
	case *ast.Paragraph:
		return Token{Kind: KindParagraph, Text: joinLines(node, src)}
	case *ast.TextBlock:
		return Token{Kind: KindParagraph, Text: joinLines(node, src)}
	case *ast.ThematicBreak:
		return Token{Kind: KindRule}
	case *ast.FencedCodeBlock:
		return Token{Kind: KindCode, Text: strings.TrimRight(rawLines(node, src), "\n")}
	case *ast.CodeBlock:
		return Token{Kind: KindCode, Text: strings.TrimRight(rawLines(node, src), "\n")}
	case *ast.List:
		return Token{Kind: KindList, Items: listItems(node, src, 0)}
	default:
		return Token{Kind: KindUnknown, Text: strings.TrimSpace(descendantText(n, src))}
	}
}

func listItems(list *ast.List, src []byte, level int) []ListItem {
	var items []ListItem
	ordinal := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		entry := ListItem{Level: level}
		if list.IsOrdered() {
			entry.Ordinal = ordinal
			ordinal++
		}
		var nested []ListItem
		var parts []string
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				nested = append(nested, listItems(sub, src, level+1)...)
				continue
			}
			if t := foldLines(descendantText(child, src)); t != "" {
				parts = append(parts, t)
			}
		}
		entry.Text = strings.Join(parts, " ")
		items = append(items, entry)
		items = append(items, nested...)
	}
	return items
}

// joinLines returns a leaf block's text with soft line breaks folded to spaces.
func joinLines(n ast.Node, src []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if line := strings.TrimSpace(string(seg.Value(src))); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func foldLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// descendantText gathers the source lines of every leaf block under n.
func descendantText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	if n.Lines().Len() > 0 {
		return rawLines(n, src)
	}
	var parts []string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t := strings.TrimRight(descendantText(child, src), "\n"); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
