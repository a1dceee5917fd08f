package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobassist/internal/backend"
	"jobassist/internal/revisions"
	"jobassist/internal/shared/telemetry"
	"jobassist/resume/model"
)

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotResendable    = errors.New("only failed user messages can be resent")
	ErrAlreadyLoaded    = errors.New("transcript already has messages")
	ErrNoConversationID = errors.New("conversation id is required")
)

// Sender relays one message to the backend.
type Sender interface {
	SendChat(ctx context.Context, conversationID, message string) (backend.ChatResult, error)
}

// SendResult is what one successful exchange produced.
type SendResult struct {
	User      model.Message    `json:"user"`
	Reply     *model.Message   `json:"reply,omitempty"`
	Revisions []model.Revision `json:"revisions"`
}

// Transcript is the append-only message list of one conversation. User
// messages are shown immediately as pending and move to confirmed or failed
// when the backend answers; nothing is removed on failure.
type Transcript struct {
	mu             sync.RWMutex
	conversationID string
	messages       []model.Message
	sender         Sender
	revs           *revisions.Store
	now            func() time.Time
	newID          func() string
	onDocuments    func(model.Documents)
}

// Option customizes a Transcript.
type Option func(*Transcript)

// WithClock overrides message timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDs overrides message id generation.
func WithIDs(newID func() string) Option {
	return func(t *Transcript) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// OnDocuments registers a callback run after returned documents are merged.
func OnDocuments(fn func(model.Documents)) Option {
	return func(t *Transcript) {
		t.onDocuments = fn
	}
}

// NewTranscript returns an empty transcript bound to a conversation.
func NewTranscript(conversationID string, sender Sender, revs *revisions.Store, opts ...Option) (*Transcript, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrNoConversationID
	}
	t := &Transcript{
		conversationID: conversationID,
		sender:         sender,
		revs:           revs,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ConversationID returns the bound conversation.
func (t *Transcript) ConversationID() string {
	return t.conversationID
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Message(nil), t.messages...)
}

// Load seeds an empty transcript with messages fetched from the backend.
func (t *Transcript) Load(msgs []model.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) > 0 {
		return ErrAlreadyLoaded
	}
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = t.newID()
		}
		if m.Status == "" {
			m.Status = model.StatusConfirmed
		}
		t.messages = append(t.messages, m)
	}
	return nil
}

// Send appends text as a pending user message and relays it.
func (t *Transcript) Send(ctx context.Context, text string) (SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return SendResult{}, ErrEmptyMessage
	}
	msg := model.Message{
		ID:        t.newID(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: t.now(),
		Status:    model.StatusPending,
	}
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	return t.dispatch(ctx, msg)
}

// Resend relays a failed user message again. The message keeps its place
// in the transcript.
func (t *Transcript) Resend(ctx context.Context, messageID string) (SendResult, error) {
	t.mu.Lock()
	idx := t.indexOf(messageID)
	if idx < 0 {
		t.mu.Unlock()
		return SendResult{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	msg := t.messages[idx]
	if msg.Role != model.RoleUser || msg.Status != model.StatusFailed {
		t.mu.Unlock()
		return SendResult{}, ErrNotResendable
	}
	msg.Status = model.StatusPending
	msg.Error = ""
	t.messages[idx] = msg
	t.mu.Unlock()

	return t.dispatch(ctx, msg)
}

func (t *Transcript) dispatch(ctx context.Context, msg model.Message) (SendResult, error) {
	res, err := t.sender.SendChat(ctx, t.conversationID, msg.Content)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	t.mu.Lock()
	idx := t.indexOf(msg.ID)
	if err != nil {
		if idx >= 0 {
			t.messages[idx].Status = model.StatusFailed
			t.messages[idx].Error = err.Error()
		}
		t.mu.Unlock()
		telemetry.Error("chat.send_failed", map[string]any{
			"conversation_id": t.conversationID,
			"message_id":      msg.ID,
			"error":           err,
		})
		return SendResult{}, err
	}

	var out SendResult
	if idx >= 0 {
		t.messages[idx].Status = model.StatusConfirmed
		t.messages[idx].Error = ""
		out.User = t.messages[idx]
	}
	if strings.TrimSpace(res.Reply) != "" {
		reply := model.Message{
			ID:        t.newID(),
			Role:      model.RoleAssistant,
			Content:   res.Reply,
			Timestamp: t.now(),
			Status:    model.StatusConfirmed,
		}
		t.messages = append(t.messages, reply)
		out.Reply = &reply
	}
	t.mu.Unlock()

	ref := &model.MessageRef{ID: msg.ID, Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp}
	revs, changed, mergeErr := MergeDocuments(t.revs, res.Documents, msg.Content, ref)
	if mergeErr != nil {
		return out, mergeErr
	}
	out.Revisions = revs
	if changed && t.onDocuments != nil {
		t.onDocuments(CurrentDocuments(t.revs))
	}
	telemetry.Info("chat.sent", map[string]any{
		"conversation_id": t.conversationID,
		"message_id":      msg.ID,
		"revisions":       len(revs),
	})
	return out, nil
}

func (t *Transcript) indexOf(id string) int {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}
