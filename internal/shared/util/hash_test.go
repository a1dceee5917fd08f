package util

import (
	"strings"
	"testing"
)

func TestHashKey(t *testing.T) {
	id := "3f2a9c1e-conversation"
	got := HashKey(id)
	if got != HashKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(got))
	}
	if HashKey("other") == got {
		t.Fatalf("expected distinct ids to hash differently")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "resume.docx", want: "resume.docx"},
		{in: " cover letter.pdf ", want: "cover letter.pdf"},
		{in: "a/b\\c.txt", want: "a_b_c.txt"},
		{in: "../up.txt", wantErr: true},
		{in: "say \"hi\".txt", want: "say 'hi'.txt"},
		{in: "tab\tand\nnewline.md", want: "tabandnewline.md"},
		{in: strings.Repeat("a", 200) + ".pdf", want: strings.Repeat("a", MaxFileNameRunes-4) + ".pdf"},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
