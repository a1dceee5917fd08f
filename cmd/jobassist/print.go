package main

import (
	"fmt"
	"io"
	"strings"

	"jobassist/internal/revisions"
	"jobassist/resume/model"
)

func printDocuments(w io.Writer, docs model.Documents) {
	for _, dt := range model.DocumentTypes {
		content := docs.Get(dt)
		if content == "" {
			continue
		}
		fmt.Fprintf(w, "\n== %s ==\n%s\n", dt.Title(), content)
	}
}

func printSendResult(w io.Writer, reply *model.Message, revs []model.Revision) {
	if reply != nil {
		fmt.Fprintf(w, "assistant: %s\n", reply.Content)
	}
	for _, rev := range revs {
		fmt.Fprintf(w, "(updated %s, revision %s)\n", rev.DocumentType.Title(), rev.ID)
	}
}

func printComparison(w io.Writer, cmp revisions.Comparison) {
	fmt.Fprintf(w, "--- %s %s\n+++ %s %s\n", cmp.From.ID, cmp.From.Feedback, cmp.To.ID, cmp.To.Feedback)
	for _, line := range cmp.Lines {
		prefix := " "
		switch line.Op {
		case revisions.OpInsert:
			prefix = "+"
		case revisions.OpDelete:
			prefix = "-"
		}
		for _, l := range strings.Split(strings.TrimSuffix(line.Text, "\n"), "\n") {
			fmt.Fprintf(w, "%s%s\n", prefix, l)
		}
	}
	fmt.Fprintf(w, "%d insertions, %d deletions\n", cmp.Insertions, cmp.Deletions)
}
