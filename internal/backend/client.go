package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"jobassist/internal/shared/metrics"
	"jobassist/internal/shared/telemetry"
	"jobassist/resume/model"
)

const maxResponseBytes = 16 << 20

// BreakerSettings controls the circuit breaker around backend calls.
type BreakerSettings struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	OpenFor      time.Duration
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	UpdatePath string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerSettings
}

// Client calls the assistant backend. It never retries.
type Client struct {
	baseURL    string
	updatePath string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New constructs a backend client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL: %w", err)
	}
	updatePath := strings.TrimSpace(opts.UpdatePath)
	if updatePath == "" {
		updatePath = "/update"
	}
	if !strings.HasPrefix(updatePath, "/") {
		updatePath = "/" + updatePath
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:    base,
		updatePath: updatePath,
		httpClient: httpClient,
	}
	if opts.Breaker.Enabled {
		c.breaker = newBreaker(opts.Breaker)
	}
	return c, nil
}

func newBreaker(s BreakerSettings) *gobreaker.CircuitBreaker {
	minRequests := s.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := s.FailureRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.8
	}
	openFor := s.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assistant-backend",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("backend.breaker.state", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// The backend answered; the caller sent something it rejected.
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	})
}

// UpdatePath reports the configured direct-update endpoint.
func (c *Client) UpdatePath() string {
	return c.updatePath
}

// ProcessApplication submits the initial application.
func (c *Client) ProcessApplication(ctx context.Context, in ApplicationInput) (ProcessResult, error) {
	if strings.TrimSpace(in.JobDescription) == "" || strings.TrimSpace(in.Resume) == "" || strings.TrimSpace(in.PersonalSummary) == "" {
		return ProcessResult{}, fmt.Errorf("%w: job description, resume and personal summary are required", ErrInvalidInput)
	}
	body, err := c.do(ctx, "process", http.MethodPost, "/process", in)
	if err != nil {
		return ProcessResult{}, err
	}
	var parsed processResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ProcessResult{}, fmt.Errorf("%w: process: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(parsed.ConversationID) == "" {
		return ProcessResult{}, fmt.Errorf("%w: process: missing conversation_id", ErrInvalidResponse)
	}
	return ProcessResult{
		ConversationID: parsed.ConversationID,
		Summary:        parsed.Response,
		Documents:      model.Documents{Resume: parsed.OptimizedResume, CoverLetter: parsed.CoverLetter},
	}, nil
}

// SendChat relays one user message.
func (c *Client) SendChat(ctx context.Context, conversationID, message string) (ChatResult, error) {
	if strings.TrimSpace(conversationID) == "" {
		return ChatResult{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, "chat", http.MethodPost, "/chat", chatRequest{ConversationID: conversationID, Message: message})
	if err != nil {
		return ChatResult{}, err
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResult{}, fmt.Errorf("%w: chat: %v", ErrInvalidResponse, err)
	}
	reply := parsed.Response
	if reply == "" {
		reply = parsed.Message
	}
	return ChatResult{
		Reply:     reply,
		Documents: documentsFrom(parsed.OptimizedResume, parsed.CoverLetter, parsed.Documents),
	}, nil
}

// UpdateDocument stores a direct edit.
func (c *Client) UpdateDocument(ctx context.Context, conversationID string, docType model.DocumentType, content string) (UpdateResult, error) {
	if strings.TrimSpace(conversationID) == "" {
		return UpdateResult{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	if !docType.Valid() {
		return UpdateResult{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	body, err := c.do(ctx, "update", http.MethodPost, c.updatePath, updateRequest{
		ConversationID: conversationID,
		DocumentType:   string(docType),
		Content:        content,
	})
	if err != nil {
		return UpdateResult{}, err
	}
	var parsed chatResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return UpdateResult{}, fmt.Errorf("%w: update: %v", ErrInvalidResponse, err)
		}
	}
	msg := parsed.Response
	if msg == "" {
		msg = parsed.Message
	}
	return UpdateResult{
		Message:   msg,
		Documents: documentsFrom(parsed.OptimizedResume, parsed.CoverLetter, parsed.Documents),
	}, nil
}

// GetDocuments fetches the current content of both documents.
func (c *Client) GetDocuments(ctx context.Context, conversationID string) (model.Documents, error) {
	if strings.TrimSpace(conversationID) == "" {
		return model.Documents{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, "documents", http.MethodGet, "/documents/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return model.Documents{}, err
	}
	var parsed documentsPayload
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Documents{}, fmt.Errorf("%w: documents: %v", ErrInvalidResponse, err)
	}
	return documentsFrom(parsed.OptimizedResume, parsed.CoverLetter, &parsed), nil
}

// DocumentHistory fetches remote revisions for one document. The response is
// normalized here; shape problems never surface as errors.
func (c *Client) DocumentHistory(ctx context.Context, conversationID string, docType model.DocumentType) (History, error) {
	if strings.TrimSpace(conversationID) == "" {
		return History{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	if !docType.Valid() {
		return History{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	path := "/document_history/" + url.PathEscape(conversationID) + "/" + url.PathEscape(string(docType))
	body, err := c.do(ctx, "document_history", http.MethodGet, path, nil)
	if err != nil {
		return History{}, err
	}
	hist := NormalizeHistory(body)
	for i := range hist.Revisions {
		hist.Revisions[i].DocumentType = docType
	}
	if hist.Malformed {
		telemetry.Warn("backend.history.malformed", map[string]any{
			"conversation_id": conversationID,
			"document_type":   string(docType),
		})
	}
	return hist, nil
}

// GetConversation fetches messages and documents for a conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return model.Conversation{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, "get_conversation", http.MethodGet, "/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Conversation{}, err
	}
	var parsed conversationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Conversation{}, fmt.Errorf("%w: conversation: %v", ErrInvalidResponse, err)
	}
	conv := model.Conversation{
		ID:              parsed.ConversationID,
		JobDescription:  parsed.Documents.JobDescription,
		Resume:          parsed.Documents.Resume,
		PersonalSummary: parsed.Documents.PersonalSummary,
		Documents: model.Documents{
			Resume:      parsed.Documents.OptimizedResume,
			CoverLetter: parsed.Documents.CoverLetter,
		},
		CreatedAt: parsed.CreatedAt,
		UpdatedAt: parsed.UpdatedAt,
		Messages:  make([]model.Message, 0, len(parsed.Messages)),
	}
	if conv.ID == "" {
		conv.ID = id
	}
	for _, m := range parsed.Messages {
		role, ok := model.ParseRole(m.Role)
		if !ok {
			continue
		}
		conv.Messages = append(conv.Messages, model.Message{
			Role:      role,
			Content:   m.Content,
			Timestamp: parseTimestamp(m.Timestamp),
			Status:    model.StatusConfirmed,
		})
	}
	return conv, nil
}

// ListConversations returns summaries. Non-positive limit uses the backend default.
func (c *Client) ListConversations(ctx context.Context, limit, offset int) ([]model.ConversationSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/conversations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	body, err := c.do(ctx, "list_conversations", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body)
}

func decodeSummaries(body []byte) ([]model.ConversationSummary, error) {
	type wireSummary struct {
		ID             flexibleID `json:"id"`
		ConversationID flexibleID `json:"conversation_id"`
		CreatedAt      string     `json:"created_at"`
		UpdatedAt      string     `json:"updated_at"`
	}
	var items []wireSummary
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: conversations: %v", ErrInvalidResponse, err)
		}
	} else {
		var envelope struct {
			Conversations []wireSummary `json:"conversations"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: conversations: %v", ErrInvalidResponse, err)
		}
		items = envelope.Conversations
	}
	out := make([]model.ConversationSummary, 0, len(items))
	for _, it := range items {
		id := string(it.ID)
		if id == "" {
			id = string(it.ConversationID)
		}
		if id == "" {
			continue
		}
		out = append(out, model.ConversationSummary{ID: id, CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt})
	}
	return out, nil
}

// DeleteConversation removes a conversation on the backend.
func (c *Client) DeleteConversation(ctx context.Context, id string) (DeleteResult, error) {
	if strings.TrimSpace(id) == "" {
		return DeleteResult{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, "delete_conversation", http.MethodDelete, "/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return DeleteResult{}, err
	}
	var parsed DeleteResult
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return DeleteResult{}, fmt.Errorf("%w: delete: %v", ErrInvalidResponse, err)
		}
	}
	if parsed.Status == "" {
		parsed.Status = "success"
	}
	return parsed, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	start := time.Now()
	call := func() (any, error) {
		return c.roundTrip(ctx, op, method, path, payload)
	}
	var (
		out any
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	} else {
		out, err = call()
	}
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	metrics.ObserveBackendCall(op, outcome, elapsed)

	fields := map[string]any{
		"op":          op,
		"method":      method,
		"path":        path,
		"outcome":     outcome,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Error("backend.call", fields)
		return nil, err
	}
	telemetry.Info("backend.call", fields)
	body, _ := out.([]byte)
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("backend %s: %w", op, err)
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("backend %s: request timeout: %w: %w", op, ErrTransport, err)
		}
		return nil, fmt.Errorf("backend %s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("backend %s: read response: %w", op, err)
		}
		return nil, fmt.Errorf("backend %s: read response: %w: %w", op, ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Detail: detailText(body)}
	}
	return body, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return "unavailable"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, ErrTransport) {
		return "transport_error"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	}
	return "transport_error"
}
