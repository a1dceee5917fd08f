package model

import (
	"errors"
	"testing"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		in      string
		want    DocumentType
		wantErr bool
	}{
		{in: "resume", want: DocumentResume},
		{in: " Cover_Letter ", want: DocumentCoverLetter},
		{in: "cover-letter", want: DocumentCoverLetter},
		{in: "optimized_resume", want: DocumentResume},
		{in: "summary", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDocumentType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDocumentType) {
				t.Fatalf("ParseDocumentType(%q) expected ErrInvalidDocumentType, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseDocumentType(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "human", want: RoleUser, ok: true},
		{in: "user", want: RoleUser, ok: true},
		{in: "ai", want: RoleAssistant, ok: true},
		{in: "Assistant", want: RoleAssistant, ok: true},
		{in: "tool", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseRole(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestDocumentsWith(t *testing.T) {
	docs := Documents{Resume: "r1", CoverLetter: "c1"}
	next := docs.With(DocumentCoverLetter, "c2")
	if docs.CoverLetter != "c1" {
		t.Fatalf("With must not mutate the receiver")
	}
	if next.Get(DocumentCoverLetter) != "c2" || next.Get(DocumentResume) != "r1" {
		t.Fatalf("unexpected documents %+v", next)
	}
}
