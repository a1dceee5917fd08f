package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jobassist/internal/backend"
	"jobassist/internal/chat"
	"jobassist/internal/revisions"
	"jobassist/internal/shared/telemetry"
	"jobassist/resume/model"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionClosed   = errors.New("session closed")
)

// Backend is the subset of the API client a session drives.
type Backend interface {
	chat.Sender
	UpdateDocument(ctx context.Context, conversationID string, docType model.DocumentType, content string) (backend.UpdateResult, error)
	DocumentHistory(ctx context.Context, conversationID string, docType model.DocumentType) (backend.History, error)
	GetConversation(ctx context.Context, id string) (model.Conversation, error)
}

// Session ties one conversation to its revision history and transcript.
// Closing it cancels in-flight backend calls; results that arrive later are
// dropped.
type Session struct {
	id         string
	summary    string
	backend    Backend
	revs       *revisions.Store
	transcript *chat.Transcript
	persist    func(model.Documents)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	baseline model.Documents
	loaded   map[model.DocumentType]bool
	selected map[model.DocumentType]*revisions.CompareSelection
}

func newSession(id, summary string, b Backend, baseline model.Documents, persist func(model.Documents), revOpts []revisions.Option, chatOpts []chat.Option) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		summary:  summary,
		backend:  b,
		revs:     revisions.NewStore(revOpts...),
		persist:  persist,
		ctx:      ctx,
		cancel:   cancel,
		baseline: baseline,
		loaded:   make(map[model.DocumentType]bool, len(model.DocumentTypes)),
		selected: make(map[model.DocumentType]*revisions.CompareSelection, len(model.DocumentTypes)),
	}
	opts := append([]chat.Option{chat.OnDocuments(func(model.Documents) {
		s.onDocuments(s.Documents())
	})}, chatOpts...)
	tr, err := chat.NewTranscript(id, b, s.revs, opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	s.transcript = tr
	return s, nil
}

// ID returns the conversation id.
func (s *Session) ID() string { return s.id }

// Summary is the backend's note from the initial submission, if any.
func (s *Session) Summary() string { return s.summary }

// Transcript returns the chat transcript.
func (s *Session) Transcript() *chat.Transcript { return s.transcript }

// Revisions returns the revision store.
func (s *Session) Revisions() *revisions.Store { return s.revs }

// Close cancels in-flight calls. It is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

// bind derives a context that ends with either parent or the session.
func (s *Session) bind(parent context.Context) (context.Context, context.CancelFunc, error) {
	if s.Closed() {
		return nil, nil, ErrSessionClosed
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// Documents returns the current content of both documents.
func (s *Session) Documents() model.Documents {
	docs := s.baselineDocs()
	for _, dt := range model.DocumentTypes {
		if cur, ok := s.revs.Current(dt); ok {
			docs = docs.With(dt, cur.Content)
		}
	}
	return docs
}

// Document returns the current content of one document.
func (s *Session) Document(dt model.DocumentType) (string, error) {
	if !dt.Valid() {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, dt)
	}
	return s.Documents().Get(dt), nil
}

func (s *Session) baselineDocs() model.Documents {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline
}

// ensureHistory fills an empty revision sequence, first from the backend's
// history and otherwise from the baseline content. A failed fetch that
// leaves the sequence empty is retried on the next call.
func (s *Session) ensureHistory(ctx context.Context, dt model.DocumentType) error {
	s.mu.Lock()
	done := s.loaded[dt]
	s.mu.Unlock()
	if done || s.revs.Len(dt) > 0 {
		return nil
	}

	hist, err := s.backend.DocumentHistory(ctx, s.id, dt)
	if s.Closed() {
		return ErrSessionClosed
	}
	fetched := err == nil
	if err != nil {
		telemetry.Warn("session.history_unavailable", map[string]any{
			"conversation_id": s.id,
			"document_type":   string(dt),
			"error":           err,
		})
	}
	if fetched && len(hist.Revisions) > 0 {
		if err := s.revs.Seed(dt, hist.Revisions); err != nil && !errors.Is(err, revisions.ErrAlreadySeeded) {
			return err
		}
	} else if s.revs.Len(dt) == 0 {
		if base := s.baselineDocs().Get(dt); base != "" {
			if _, err := s.revs.AppendFrom(revisions.SourceInitial, dt, base, "Initial version", nil); err != nil {
				return err
			}
		}
	}
	if fetched {
		s.mu.Lock()
		s.loaded[dt] = true
		s.mu.Unlock()
	}
	return nil
}

// History returns the revisions of one document, oldest first.
func (s *Session) History(ctx context.Context, dt model.DocumentType) ([]model.Revision, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, dt)
	}
	ctx, done, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	if err := s.ensureHistory(ctx, dt); err != nil {
		return nil, err
	}
	return s.revs.List(dt)
}

// Restore returns a past revision's content. History is not changed.
func (s *Session) Restore(dt model.DocumentType, revisionID string) (string, error) {
	return s.revs.Restore(dt, revisionID)
}

// Compare diffs two revisions.
func (s *Session) Compare(dt model.DocumentType, fromID, toID string) (revisions.Comparison, error) {
	return s.revs.Compare(dt, fromID, toID)
}

// Selection returns the compare-mode selection for a document.
func (s *Session) Selection(dt model.DocumentType) *revisions.CompareSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selected[dt]
	if !ok {
		sel = &revisions.CompareSelection{}
		s.selected[dt] = sel
	}
	return sel
}

// Send relays a chat message. History is loaded first so returned documents
// land after the existing revisions.
func (s *Session) Send(ctx context.Context, text string) (chat.SendResult, error) {
	ctx, done, err := s.bind(ctx)
	if err != nil {
		return chat.SendResult{}, err
	}
	defer done()
	for _, dt := range model.DocumentTypes {
		if err := s.ensureHistory(ctx, dt); err != nil {
			return chat.SendResult{}, err
		}
	}
	return s.transcript.Send(ctx, text)
}

// Resend retries a failed chat message.
func (s *Session) Resend(ctx context.Context, messageID string) (chat.SendResult, error) {
	ctx, done, err := s.bind(ctx)
	if err != nil {
		return chat.SendResult{}, err
	}
	defer done()
	return s.transcript.Resend(ctx, messageID)
}

// SaveDocument stores a direct edit. On success a revision is appended with
// the backend's copy of the content, or the submitted content when the
// backend echoes nothing. On failure nothing changes.
func (s *Session) SaveDocument(ctx context.Context, dt model.DocumentType, content string) (model.Revision, error) {
	if !dt.Valid() {
		return model.Revision{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, dt)
	}
	ctx, done, err := s.bind(ctx)
	if err != nil {
		return model.Revision{}, err
	}
	defer done()
	if err := s.ensureHistory(ctx, dt); err != nil {
		return model.Revision{}, err
	}

	res, err := s.backend.UpdateDocument(ctx, s.id, dt, content)
	if s.Closed() {
		return model.Revision{}, ErrSessionClosed
	}
	if err != nil {
		telemetry.Error("session.save_failed", map[string]any{
			"conversation_id": s.id,
			"document_type":   string(dt),
			"error":           err,
		})
		return model.Revision{}, err
	}
	saved := res.Documents.Get(dt)
	if saved == "" {
		saved = content
	}
	rev, err := s.revs.AppendFrom(revisions.SourceEdit, dt, saved, "Manual edit", nil)
	if err != nil {
		return model.Revision{}, err
	}
	s.onDocuments(s.Documents())
	telemetry.Info("session.document_saved", map[string]any{
		"conversation_id": s.id,
		"document_type":   string(dt),
		"revision_id":     rev.ID,
	})
	return rev, nil
}

func (s *Session) onDocuments(docs model.Documents) {
	if s.Closed() || s.persist == nil {
		return
	}
	s.persist(docs)
}
