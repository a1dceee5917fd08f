package render

import (
	"errors"
	"fmt"
	"strings"

	"jobassist/internal/shared/metrics"
)

// ErrUnsupportedFormat is returned for formats other than txt, docx and pdf.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format names an export target.
type Format string

const (
	FormatText Format = "txt"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatText, FormatDOCX, FormatPDF}

// ParseFormat accepts a format name or file extension.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ".")) {
	case "txt", "text", "plain":
		return FormatText, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// Artifact is a rendered document ready for download.
type Artifact struct {
	Data      []byte
	MIMEType  string
	Extension string
}

// RenderText returns the markdown unchanged.
func RenderText(markdown string) []byte {
	return []byte(markdown)
}

// Export renders markdown in the requested format.
func Export(format Format, markdown string) (Artifact, error) {
	art, err := export(format, markdown)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.IncExport(string(format), outcome)
	return art, err
}

func export(format Format, markdown string) (Artifact, error) {
	switch format {
	case FormatText:
		return Artifact{Data: RenderText(markdown), MIMEType: "text/plain; charset=utf-8", Extension: ".txt"}, nil
	case FormatDOCX:
		data, err := RenderDOCX(Tokenize(markdown))
		if err != nil {
			return Artifact{}, fmt.Errorf("render docx: %w", err)
		}
		return Artifact{
			Data:      data,
			MIMEType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Extension: ".docx",
		}, nil
	case FormatPDF:
		data, err := RenderPDF(Tokenize(markdown))
		if err != nil {
			return Artifact{}, fmt.Errorf("render pdf: %w", err)
		}
		return Artifact{Data: data, MIMEType: "application/pdf", Extension: ".pdf"}, nil
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
