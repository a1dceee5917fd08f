package render

import (
	"reflect"
	"testing"
)

func TestParseInline(t *testing.T) {
	cases := []struct {
		in   string
		want []Span
	}{
		{"plain text", []Span{{Text: "plain text"}}},
		{"a **bold** b", []Span{{Text: "a "}, {Text: "bold", Bold: true}, {Text: " b"}}},
		{"a __bold__ b", []Span{{Text: "a "}, {Text: "bold", Bold: true}, {Text: " b"}}},
		{"an *italic* word", []Span{{Text: "an "}, {Text: "italic", Italic: true}, {Text: " word"}}},
		{"an _italic_ word", []Span{{Text: "an "}, {Text: "italic", Italic: true}, {Text: " word"}}},
		{"**bold with *italic* inside**", []Span{{Text: "bold with ", Bold: true}, {Text: "italic", Bold: true, Italic: true}, {Text: " inside", Bold: true}}},
		{"a ***both*** b", []Span{{Text: "a "}, {Text: "both", Bold: true, Italic: true}, {Text: " b"}}},
		{"a ___both___ b", []Span{{Text: "a "}, {Text: "both", Bold: true, Italic: true}, {Text: " b"}}},
		{"***unclosed", []Span{{Text: "***unclosed"}}},
		{"snake_case_name stays", []Span{{Text: "snake_case_name stays"}}},
		{"2 * 3 * 4", []Span{{Text: "2 * 3 * 4"}}},
		{"unclosed **bold", []Span{{Text: "unclosed **bold"}}},
		{`escaped \*star\*`, []Span{{Text: "escaped *star*"}}},
		{"", nil},
	}
	for _, tc := range cases {
		got := ParseInline(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseInline(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("**Lead** _engineer_"); got != "Lead engineer" {
		t.Fatalf("PlainText = %q", got)
	}
}
