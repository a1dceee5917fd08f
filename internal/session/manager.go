package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"jobassist/internal/backend"
	"jobassist/internal/chat"
	"jobassist/internal/revisions"
	"jobassist/internal/shared/telemetry"
	"jobassist/resume/model"
)

// Manager owns the active session and keeps client state in sync with it.
type Manager struct {
	backend  Backend
	state    StateStore
	revOpts  []revisions.Option
	chatOpts []chat.Option

	mu     sync.Mutex
	active *Session
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithRevisionOptions passes options to every session's revision store.
func WithRevisionOptions(opts ...revisions.Option) ManagerOption {
	return func(m *Manager) { m.revOpts = append(m.revOpts, opts...) }
}

// WithChatOptions passes options to every session's transcript.
func WithChatOptions(opts ...chat.Option) ManagerOption {
	return func(m *Manager) { m.chatOpts = append(m.chatOpts, opts...) }
}

// NewManager constructs a Manager.
func NewManager(b Backend, state StateStore, opts ...ManagerOption) *Manager {
	if state == nil {
		state = NewMemoryStore()
	}
	m := &Manager{backend: b, state: state}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore reopens the session recorded in client state, if any. Only the
// stored documents are used; no backend call is made.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	st, err := m.state.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st.Empty() {
		return nil, ErrNoActiveSession
	}
	s, err := m.newSession(st.ConversationID, "", st.Documents)
	if err != nil {
		return nil, err
	}
	m.swap(s)
	telemetry.Info("session.restored", map[string]any{"conversation_id": s.ID()})
	return s, nil
}

// Start opens a session for a freshly processed application.
func (m *Manager) Start(ctx context.Context, res backend.ProcessResult) (*Session, error) {
	if strings.TrimSpace(res.ConversationID) == "" {
		return nil, fmt.Errorf("start session: %w", chat.ErrNoConversationID)
	}
	s, err := m.newSession(res.ConversationID, res.Summary, res.Documents)
	if err != nil {
		return nil, err
	}
	if err := m.state.Save(ctx, State{ConversationID: s.ID(), Documents: res.Documents}); err != nil {
		s.Close()
		return nil, err
	}
	m.swap(s)
	telemetry.Info("session.started", map[string]any{"conversation_id": s.ID()})
	return s, nil
}

// Active returns the current session.
func (m *Manager) Active() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	return m.active, nil
}

// Open switches to an existing conversation, loading its transcript and
// documents from the backend.
func (m *Manager) Open(ctx context.Context, conversationID string) (*Session, error) {
	conv, err := m.backend.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s, err := m.newSession(conv.ID, "", conv.Documents)
	if err != nil {
		return nil, err
	}
	if err := s.Transcript().Load(conv.Messages); err != nil {
		s.Close()
		return nil, err
	}
	if err := m.state.Save(ctx, State{ConversationID: s.ID(), Documents: conv.Documents}); err != nil {
		s.Close()
		return nil, err
	}
	m.swap(s)
	telemetry.Info("session.opened", map[string]any{"conversation_id": s.ID(), "messages": len(conv.Messages)})
	return s, nil
}

// Reset closes the active session and clears client state.
func (m *Manager) Reset(ctx context.Context) error {
	m.swap(nil)
	return m.state.Clear(ctx)
}

// Forget drops the active session when it belongs to a deleted conversation.
func (m *Manager) Forget(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active != nil && active.ID() == conversationID {
		return m.Reset(ctx)
	}
	st, err := m.state.Load(ctx)
	if err != nil {
		return err
	}
	if st.ConversationID == conversationID {
		return m.state.Clear(ctx)
	}
	return nil
}

// SaveDocument stores a direct edit on the active session.
func (m *Manager) SaveDocument(ctx context.Context, dt model.DocumentType, content string) (model.Revision, error) {
	s, err := m.Active()
	if err != nil {
		return model.Revision{}, err
	}
	return s.SaveDocument(ctx, dt, content)
}

// Close closes the active session without touching client state.
func (m *Manager) Close() {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.mu.Unlock()
	if active != nil {
		active.Close()
	}
}

func (m *Manager) newSession(id, summary string, docs model.Documents) (*Session, error) {
	persist := func(d model.Documents) {
		if err := m.state.Save(context.Background(), State{ConversationID: id, Documents: d}); err != nil {
			telemetry.Error("session.persist_failed", map[string]any{"conversation_id": id, "error": err})
		}
	}
	return newSession(id, summary, m.backend, docs, persist, m.revOpts, m.chatOpts)
}

func (m *Manager) swap(next *Session) {
	m.mu.Lock()
	prev := m.active
	m.active = next
	m.mu.Unlock()
	if prev != nil && prev != next {
		prev.Close()
	}
}
