package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"jobassist/resume/model"
)

type documentsPayload struct {
	OptimizedResume string `json:"optimized_resume"`
	Resume          string `json:"resume"`
	CoverLetter     string `json:"cover_letter"`
}

type processResponse struct {
	ConversationID  string `json:"conversation_id"`
	Response        string `json:"response"`
	OptimizedResume string `json:"optimized_resume"`
	CoverLetter     string `json:"cover_letter"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	Response        string            `json:"response"`
	Message         string            `json:"message"`
	OptimizedResume string            `json:"optimized_resume"`
	CoverLetter     string            `json:"cover_letter"`
	Documents       *documentsPayload `json:"documents"`
}

type updateRequest struct {
	ConversationID string `json:"conversation_id"`
	DocumentType   string `json:"document_type"`
	Content        string `json:"content"`
}

type conversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type conversationResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []conversationMessage `json:"messages"`
	Documents      struct {
		JobDescription  string `json:"job_description"`
		Resume          string `json:"resume"`
		PersonalSummary string `json:"personal_summary"`
		OptimizedResume string `json:"optimized_resume"`
		CoverLetter     string `json:"cover_letter"`
	} `json:"documents"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// documentsFrom prefers top-level fields and falls back to the nested envelope.
func documentsFrom(resume, coverLetter string, nested *documentsPayload) model.Documents {
	docs := model.Documents{Resume: resume, CoverLetter: coverLetter}
	if nested != nil {
		if docs.Resume == "" {
			docs.Resume = nested.OptimizedResume
		}
		if docs.Resume == "" {
			docs.Resume = nested.Resume
		}
		if docs.CoverLetter == "" {
			docs.CoverLetter = nested.CoverLetter
		}
	}
	return docs
}

// flexibleID decodes numeric or string ids into a string.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts the formats the backend has been seen to emit. Unix
// seconds are accepted too. Unparseable values yield the zero time.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
	}
	return time.Time{}
}

// detailText renders FastAPI's detail field, which is a string or a list of objects.
func detailText(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return strings.TrimSpace(truncate(string(body), 300))
	}
	var s string
	if err := json.Unmarshal(parsed.Detail, &s); err == nil {
		return s
	}
	return string(parsed.Detail)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
