package revisions

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"jobassist/resume/model"
)

// Op is a diff operation.
type Op string

const (
	OpEqual  Op = "equal"
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// Line is one run of lines sharing an operation.
type Line struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// Comparison is the side-by-side view of two revisions.
type Comparison struct {
	From       model.Revision `json:"from"`
	To         model.Revision `json:"to"`
	Lines      []Line         `json:"lines"`
	Insertions int            `json:"insertions"`
	Deletions  int            `json:"deletions"`
}

// Compare diffs two revisions line by line. Neither is modified.
func (s *Store) Compare(docType model.DocumentType, fromID, toID string) (Comparison, error) {
	from, err := s.Get(docType, fromID)
	if err != nil {
		return Comparison{}, err
	}
	to, err := s.Get(docType, toID)
	if err != nil {
		return Comparison{}, err
	}
	lines := DiffLines(from.Content, to.Content)
	cmp := Comparison{From: from, To: to, Lines: lines}
	for _, l := range lines {
		n := strings.Count(l.Text, "\n")
		if !strings.HasSuffix(l.Text, "\n") {
			n++
		}
		switch l.Op {
		case OpInsert:
			cmp.Insertions += n
		case OpDelete:
			cmp.Deletions += n
		}
	}
	return cmp, nil
}

// DiffLines returns a line-level diff of a and b.
func DiffLines(a, b string) []Line {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	out := make([]Line, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		default:
			op = OpEqual
		}
		out = append(out, Line{Op: op, Text: d.Text})
	}
	return out
}
