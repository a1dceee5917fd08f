package backend

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"jobassist/resume/model"
)

// HistoryKind tags the shape a history response resolved to.
type HistoryKind int

const (
	HistoryEmpty HistoryKind = iota
	HistorySingle
	HistoryList
)

func (k HistoryKind) String() string {
	switch k {
	case HistorySingle:
		return "single"
	case HistoryList:
		return "list"
	default:
		return "empty"
	}
}

// History is a document history response after normalization. Revisions has
// zero elements for HistoryEmpty, one for HistorySingle, and any number for
// HistoryList. Malformed is set when the body could not be understood.
type History struct {
	Kind      HistoryKind
	Revisions []model.Revision
	Malformed bool
}

type wireRevision struct {
	ID        flexibleID      `json:"id"`
	Content   *string         `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
	Feedback  *string         `json:"feedback"`
	Message   json.RawMessage `json:"message"`
}

type wireMessageRef struct {
	ID        flexibleID      `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// NormalizeHistory resolves the shapes the history endpoint has been seen to
// return: an envelope with a revisions list, a bare list, a bare revision
// object or a bare string. It never fails; anything else is empty.
func NormalizeHistory(raw []byte) History {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return History{Kind: HistoryEmpty}
	}
	if !json.Valid(raw) {
		return History{Kind: HistoryEmpty, Malformed: true}
	}

	switch raw[0] {
	case '[':
		return fromList(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return History{Kind: HistoryEmpty}
		}
		return History{Kind: HistorySingle, Revisions: []model.Revision{{Content: s}}}
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return History{Kind: HistoryEmpty, Malformed: true}
		}
		if inner, ok := envelope["revisions"]; ok {
			inner = bytes.TrimSpace(inner)
			if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
				return History{Kind: HistoryEmpty}
			}
			if inner[0] == '{' {
				return fromObject(inner)
			}
			if inner[0] == '[' {
				return fromList(inner)
			}
			return History{Kind: HistoryEmpty, Malformed: true}
		}
		if _, ok := envelope["content"]; ok {
			return fromObject(raw)
		}
		return History{Kind: HistoryEmpty, Malformed: true}
	default:
		return History{Kind: HistoryEmpty, Malformed: true}
	}
}

func fromList(raw []byte) History {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return History{Kind: HistoryEmpty, Malformed: true}
	}
	out := make([]model.Revision, 0, len(items))
	malformed := false
	for _, item := range items {
		rev, ok := decodeRevision(item)
		if !ok {
			malformed = true
			continue
		}
		out = append(out, rev)
	}
	if len(out) == 0 {
		return History{Kind: HistoryEmpty, Malformed: malformed}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return History{Kind: HistoryList, Revisions: out, Malformed: malformed}
}

func fromObject(raw []byte) History {
	rev, ok := decodeRevision(raw)
	if !ok {
		return History{Kind: HistoryEmpty, Malformed: true}
	}
	return History{Kind: HistorySingle, Revisions: []model.Revision{rev}}
}

func decodeRevision(raw []byte) (model.Revision, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return model.Revision{}, false
		}
		return model.Revision{Content: s}, true
	}
	var wr wireRevision
	if err := json.Unmarshal(raw, &wr); err != nil || wr.Content == nil {
		return model.Revision{}, false
	}
	rev := model.Revision{
		ID:        string(wr.ID),
		Content:   *wr.Content,
		Timestamp: parseTimestamp(rawTimestamp(wr.Timestamp)),
	}
	if wr.Feedback != nil {
		rev.Feedback = *wr.Feedback
	}
	if ref := decodeMessageRef(wr.Message); ref != nil {
		rev.Message = ref
	}
	return rev, true
}

func decodeMessageRef(raw json.RawMessage) *model.MessageRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var wm wireMessageRef
	if err := json.Unmarshal(raw, &wm); err != nil {
		return nil
	}
	if wm.Content == "" && wm.ID == "" {
		return nil
	}
	role, _ := model.ParseRole(wm.Role)
	return &model.MessageRef{
		ID:        string(wm.ID),
		Role:      role,
		Content:   wm.Content,
		Timestamp: parseTimestamp(rawTimestamp(wm.Timestamp)),
	}
}

// rawTimestamp returns the timestamp as text whether it was sent as a string
// or a number.
func rawTimestamp(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}
