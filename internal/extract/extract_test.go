package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"jobassist/resume/render"
)

const sampleResume = "# Jane Doe\n\nBackend engineer with **eight years** of Go.\n\n## Experience\n\n- Built billing APIs\n- Ran the on-call rotation\n"

func renderDOCX(t *testing.T, md string) []byte {
	t.Helper()
	data, err := render.RenderDOCX(render.Tokenize(md))
	if err != nil {
		t.Fatalf("render docx: %v", err)
	}
	return data
}

func TestTextFromBytesDOCX(t *testing.T) {
	text, err := TextFromBytes(context.Background(), renderDOCX(t, sampleResume), MIMEDOCX, "resume.docx")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	for _, want := range []string{"Jane Doe", "eight years", "Built billing APIs"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in extracted text:\n%s", want, text)
		}
	}
	if strings.Contains(text, "**") || strings.Contains(text, "<w:") {
		t.Fatalf("markup leaked into text:\n%s", text)
	}
	lines := strings.Split(text, "\n")
	if lines[0] != "Jane Doe" {
		t.Fatalf("expected paragraphs on separate lines, got first line %q", lines[0])
	}
}

func TestTextFromBytesZipDocxNormalizes(t *testing.T) {
	data := renderDOCX(t, sampleResume)
	if _, err := TextFromBytes(context.Background(), data, "application/zip", "test.docx"); err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if _, err := TextFromBytes(context.Background(), data, "", "upload"); err != nil {
		t.Fatalf("expected docx to be detected without a mime type, got error: %v", err)
	}
}

func TestTextFromBytesPDF(t *testing.T) {
	data, err := render.RenderPDF(render.Tokenize(sampleResume))
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	text, err := TextFromBytes(context.Background(), data, "application/octet-stream", "resume.pdf")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	if !strings.Contains(text, "Experience") {
		t.Fatalf("expected heading text in extracted pdf text:\n%s", text)
	}
}

func TestTextFromBytesRealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = TextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTextRejects(t *testing.T) {
	ctx := context.Background()
	if _, err := TextFromBytes(ctx, nil, MIMEPDF, "a.pdf"); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := TextFromBytes(ctx, []byte("plain"), "text/plain", "a.txt"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	big := bytes.NewReader(make([]byte, MaxUploadBytes+1))
	if _, err := Text(ctx, big, MIMEPDF, "big.pdf"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Text(canceled, strings.NewReader("x"), MIMEPDF, "a.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDetectMIME(t *testing.T) {
	cases := []struct {
		name     string
		mime     string
		fileName string
		data     []byte
		want     string
	}{
		{"explicit pdf", "application/pdf; charset=binary", "x", nil, MIMEPDF},
		{"pdf signature", "application/octet-stream", "x.bin", []byte("%PDF-1.3\n"), MIMEPDF},
		{"pdf extension", "", "cv.PDF", []byte("garbage"), MIMEPDF},
		{"docx extension", "application/octet-stream", "cv.docx", []byte("garbage"), MIMEDOCX},
		{"other type kept", "Text/Plain", "cv.docx", nil, "text/plain"},
		{"unknown", "", "cv", []byte("garbage"), "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIME(tc.mime, tc.fileName, tc.data); got != tc.want {
				t.Fatalf("DetectMIME = %q, want %q", got, tc.want)
			}
		})
	}
}
