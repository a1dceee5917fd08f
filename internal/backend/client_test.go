package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jobassist/resume/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker BreakerSettings) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/api/", UpdatePath: "/update_document", Breaker: breaker})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestProcessApplication(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/process" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in ApplicationInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in.JobDescription != "Senior Backend Engineer needed for fintech startup" {
			t.Errorf("job description = %q", in.JobDescription)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"conversation_id":"conv-1","response":"done","optimized_resume":"# R","cover_letter":"Dear"}`)
	}, BreakerSettings{})

	res, err := c.ProcessApplication(context.Background(), ApplicationInput{
		JobDescription:  "Senior Backend Engineer needed for fintech startup",
		Resume:          "resume text",
		PersonalSummary: "summary",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.ConversationID != "conv-1" || res.Documents.Resume != "# R" || res.Documents.CoverLetter != "Dear" || res.Summary != "done" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcessApplicationMissingConversationID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"optimized_resume":"# R"}`)
	}, BreakerSettings{})

	_, err := c.ProcessApplication(context.Background(), ApplicationInput{JobDescription: "j", Resume: "r", PersonalSummary: "p"})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestSendChatFallbacks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"updated it","documents":{"resume":"new resume","cover_letter":"new letter"}}`)
	}, BreakerSettings{})

	res, err := c.SendChat(context.Background(), "conv-1", "shorter please")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Reply != "updated it" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if res.Documents.Resume != "new resume" || res.Documents.CoverLetter != "new letter" {
		t.Fatalf("documents = %+v", res.Documents)
	}
}

func TestSendChatRejectsBlank(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}, BreakerSettings{})
	if _, err := c.SendChat(context.Background(), "conv-1", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateDocumentUsesConfiguredPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/update_document" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["document_type"] != "cover_letter" || body["content"] != "edited" {
			t.Errorf("body = %v", body)
		}
		_, _ = io.WriteString(w, `{"conversation_id":"c","response":"Cover Letter updated successfully","cover_letter":"edited"}`)
	}, BreakerSettings{})

	res, err := c.UpdateDocument(context.Background(), "c", model.DocumentCoverLetter, "edited")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Documents.CoverLetter != "edited" || res.Message == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAPIErrorCarriesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Conversation not found"}`)
	}, BreakerSettings{})

	_, err := c.GetConversation(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Detail != "Conversation not found" || apiErr.Op != "get_conversation" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Fatal("expected IsNotFound")
	}
}

func TestGetConversationMapsRoles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"conversation_id":"c1","messages":[
			{"role":"human","content":"hi","timestamp":"2024-05-01T10:00:00"},
			{"role":"tool","content":"{}"},
			{"role":"ai","content":"hello"}
		],"documents":{"job_description":"jd","resume":"orig","personal_summary":"ps","optimized_resume":"opt","cover_letter":"cl"}}`)
	}, BreakerSettings{})

	conv, err := c.GetConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != model.RoleUser || conv.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("roles = %s, %s", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	if conv.Documents.Resume != "opt" || conv.Resume != "orig" || conv.JobDescription != "jd" {
		t.Fatalf("documents = %+v", conv)
	}
}

func TestListConversationsEnvelopeAndBareList(t *testing.T) {
	bodies := []string{
		`{"conversations":[{"id":"a","created_at":"2024-01-01","updated_at":"2024-01-02"},{"id":"b"}]}`,
		`[{"id":"a"},{"conversation_id":"b"}]`,
	}
	for _, body := range bodies {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "10" {
				t.Errorf("limit = %q", r.URL.Query().Get("limit"))
			}
			_, _ = io.WriteString(w, body)
		}, BreakerSettings{})
		got, err := c.ListConversations(context.Background(), 10, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
			t.Fatalf("summaries = %+v", got)
		}
	}
}

func TestDeleteConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/conversations/c1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"status":"success","message":"Conversation c1 deleted"}`)
	}, BreakerSettings{})
	res, err := c.DeleteConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Status != "success" {
		t.Fatalf("status = %q", res.Status)
	}
}

func TestDocumentHistorySetsDocumentType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/document_history/c1/resume" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":1,"content":"only one"}`)
	}, BreakerSettings{})
	hist, err := c.DocumentHistory(context.Background(), "c1", model.DocumentResume)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if hist.Kind != HistorySingle || hist.Revisions[0].DocumentType != model.DocumentResume {
		t.Fatalf("history = %+v", hist)
	}
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusBadRequest)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}, BreakerSettings{Enabled: true, MinRequests: 2, FailureRatio: 1, OpenFor: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := c.GetDocuments(context.Background(), "c1")
		if errors.Is(err, ErrBackendUnavailable) {
			t.Fatal("4xx responses must not open the breaker")
		}
	}

	status.Store(http.StatusInternalServerError)
	c2 := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}, BreakerSettings{Enabled: true, MinRequests: 2, FailureRatio: 1, OpenFor: time.Minute})
	for i := 0; i < 2; i++ {
		if _, err := c2.GetDocuments(context.Background(), "c1"); err == nil {
			t.Fatal("expected error")
		}
	}
	before := calls.Load()
	_, err := c2.GetDocuments(context.Background(), "c1")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if calls.Load() != before {
		t.Fatal("open breaker must not reach the backend")
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, BreakerSettings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.SendChat(ctx, "c1", "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUnreachableBackendIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base + "/api"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.ListConversations(context.Background(), 10, 0)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failure must not look like an API error")
	}
}

func TestCanceledContextIsNotTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, BreakerSettings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.SendChat(ctx, "c1", "hi"); errors.Is(err, ErrTransport) {
		t.Fatalf("canceled call reported as transport error: %v", err)
	}
}
