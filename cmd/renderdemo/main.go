package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobassist/internal/extract"
	"jobassist/resume/render"
)

const sampleResume = `# Jordan Lee

**Senior Backend Engineer** | Austin, TX | jordan.lee@example.com

## Summary

Backend engineer with 8+ years of experience building resilient APIs and data services.

## Experience

### Acme Logistics, Senior Backend Engineer (2021 to present)

- Designed a routing service that reduced shipment latency by *18%*.
- Implemented distributed tracing to cut incident triage time by 35%.

### Blue Harbor Systems, Backend Engineer (2018 to 2021)

1. Built event-driven ingestion pipelines for compliance data feeds.
2. Migrated batch jobs to ` + "`Go`" + ` workers.

---

## Skills

Go, PostgreSQL, Kubernetes, Terraform
`

// Markers that must not survive rendering into DOCX or PDF text.
var leftoverMarkers = []string{"**", "### ", "## "}

func main() {
	outDir := flag.String("out", "./out", "directory for the rendered samples")
	in := flag.String("in", "", "markdown file to render instead of the built-in sample")
	flag.Parse()

	markdown, want := sampleResume, "Jordan"
	if *in != "" {
		want = ""
		data, err := os.ReadFile(*in)
		if err != nil {
			exitErr("read input: %v", err)
		}
		markdown = string(data)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		exitErr("create output dir: %v", err)
	}

	for _, format := range render.Formats {
		art, err := render.Export(format, markdown)
		if err != nil {
			exitErr("render %s failed: %v", format, err)
		}
		path := filepath.Join(*outDir, "sample_resume"+art.Extension)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			exitErr("write failed: %v", err)
		}
		if err := validateRendered(format, art.Data, want); err != nil {
			exitErr("%s validation failed: %v", format, err)
		}
		fmt.Printf("OK: wrote %s (%d bytes)\n", path, len(art.Data))
	}
}

// validateRendered reads the text back out of binary formats and checks that
// markdown syntax was converted rather than copied.
func validateRendered(format render.Format, data []byte, want string) error {
	var mime string
	switch format {
	case render.FormatDOCX:
		mime = extract.MIMEDOCX
	case render.FormatPDF:
		mime = extract.MIMEPDF
	default:
		return nil
	}
	text, err := extract.TextFromBytes(context.Background(), data, mime, "sample")
	if err != nil {
		return err
	}
	if want != "" && !strings.Contains(text, want) {
		return fmt.Errorf("%q missing from rendered text", want)
	}
	for _, marker := range leftoverMarkers {
		if idx := strings.Index(text, marker); idx != -1 {
			return fmt.Errorf("unconverted markdown %q near: %s", marker, snippetAround(text, idx, 80))
		}
	}
	return nil
}

func snippetAround(text string, pos, maxLen int) string {
	if pos < 0 {
		return ""
	}
	start := pos - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

func exitErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
