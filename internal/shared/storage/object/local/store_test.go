package local

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	store.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	artifact, err := store.Save(context.Background(), "conv-1", "resume.pdf", "application/pdf", strings.NewReader("%PDF-1.3 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if artifact.SizeBytes != int64(len("%PDF-1.3 body")) {
		t.Fatalf("unexpected size %d", artifact.SizeBytes)
	}
	if !strings.HasSuffix(artifact.Key, "20260301T093000.000000000_resume.pdf") {
		t.Fatalf("unexpected key %s", artifact.Key)
	}

	rc, err := store.Open(context.Background(), artifact.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.3 body" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Save(context.Background(), "conv-1", "../evil.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal name to be rejected")
	}
	if _, err := store.Open(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestSaveRequiresConversation(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Save(context.Background(), " ", "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected missing conversation id to fail")
	}
}
