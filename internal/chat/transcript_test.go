package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobassist/internal/backend"
	"jobassist/internal/revisions"
	"jobassist/resume/model"
)

type fakeSender struct {
	replies []backend.ChatResult
	errs    []error
	calls   []string
}

func (f *fakeSender) SendChat(_ context.Context, _ string, message string) (backend.ChatResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, message)
	if i < len(f.errs) && f.errs[i] != nil {
		return backend.ChatResult{}, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return backend.ChatResult{Reply: "ok"}, nil
}

func newTranscript(t *testing.T, sender Sender, store *revisions.Store, opts ...Option) *Transcript {
	t.Helper()
	n := 0
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := []Option{
		WithIDs(func() string { n++; return fmt.Sprintf("msg-%d", n) }),
		WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
	}
	tr, err := NewTranscript("conv-1", sender, store, append(base, opts...)...)
	require.NoError(t, err)
	return tr
}

func TestSendAppendsAndConfirms(t *testing.T) {
	sender := &fakeSender{replies: []backend.ChatResult{{Reply: "Here you go"}}}
	tr := newTranscript(t, sender, revisions.NewStore())

	res, err := tr.Send(context.Background(), "Make it shorter")
	require.NoError(t, err)
	require.NotNil(t, res.Reply)
	assert.Equal(t, model.StatusConfirmed, res.User.Status)

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.StatusConfirmed, msgs[0].Status)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Here you go", msgs[1].Content)
}

func TestSendRejectsBlank(t *testing.T) {
	sender := &fakeSender{}
	tr := newTranscript(t, sender, revisions.NewStore())
	_, err := tr.Send(context.Background(), " \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, tr.Messages())
	assert.Empty(t, sender.calls)
}

func TestSendFailureKeepsMessageAsFailed(t *testing.T) {
	boom := errors.New("backend exploded")
	sender := &fakeSender{errs: []error{boom}}
	tr := newTranscript(t, sender, revisions.NewStore())

	_, err := tr.Send(context.Background(), "Add metrics")
	assert.ErrorIs(t, err, boom)

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.StatusFailed, msgs[0].Status)
	assert.Equal(t, "backend exploded", msgs[0].Error)
}

func TestResendFailedMessage(t *testing.T) {
	sender := &fakeSender{
		errs:    []error{errors.New("timeout")},
		replies: []backend.ChatResult{{}, {Reply: "done", Documents: model.Documents{Resume: "v2"}}},
	}
	store := revisions.NewStore()
	tr := newTranscript(t, sender, store)

	_, err := tr.Send(context.Background(), "Add metrics")
	require.Error(t, err)
	failed := tr.Messages()[0]

	res, err := tr.Resend(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, failed.ID, res.User.ID)

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.StatusConfirmed, msgs[0].Status)
	assert.Empty(t, msgs[0].Error)
	assert.Equal(t, []string{"Add metrics", "Add metrics"}, sender.calls)

	_, err = tr.Resend(context.Background(), failed.ID)
	assert.ErrorIs(t, err, ErrNotResendable)
	_, err = tr.Resend(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestTwoChatsProduceOrderedRevisions(t *testing.T) {
	sender := &fakeSender{replies: []backend.ChatResult{
		{Reply: "Added metrics", Documents: model.Documents{Resume: "resume with metrics"}},
		{Reply: "Tightened", Documents: model.Documents{Resume: "resume tightened"}},
	}}
	store := revisions.NewStore()
	_, err := store.AppendFrom(revisions.SourceInitial, model.DocumentResume, "original resume", "", nil)
	require.NoError(t, err)

	var persisted []model.Documents
	tr := newTranscript(t, sender, store, OnDocuments(func(d model.Documents) { persisted = append(persisted, d) }))

	_, err = tr.Send(context.Background(), "Add metrics")
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), "Tighten it")
	require.NoError(t, err)

	list, err := store.List(model.DocumentResume)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "resume with metrics", list[1].Content)
	assert.Equal(t, "Add metrics", list[1].Feedback)
	assert.Equal(t, "resume tightened", list[2].Content)
	assert.Equal(t, "Tighten it", list[2].Feedback)
	require.NotNil(t, list[2].Message)
	assert.Equal(t, tr.Messages()[2].ID, list[2].Message.ID)

	cur, _ := store.Current(model.DocumentResume)
	assert.Equal(t, list[2].ID, cur.ID)
	require.Len(t, persisted, 2)
	assert.Equal(t, "resume tightened", persisted[1].Resume)
}

func TestUnchangedDocumentsAddNoRevision(t *testing.T) {
	store := revisions.NewStore()
	_, _ = store.Append(model.DocumentCoverLetter, "Dear team", "", nil)
	sender := &fakeSender{replies: []backend.ChatResult{{Reply: "no changes", Documents: model.Documents{CoverLetter: "Dear team"}}}}
	tr := newTranscript(t, sender, store)

	res, err := tr.Send(context.Background(), "Looks good?")
	require.NoError(t, err)
	assert.Empty(t, res.Revisions)
	assert.Equal(t, 1, store.Len(model.DocumentCoverLetter))
	assert.Equal(t, 0, store.Len(model.DocumentResume))
}

func TestCanceledContextDiscardsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := senderFunc(func(context.Context, string, string) (backend.ChatResult, error) {
		cancel()
		return backend.ChatResult{Reply: "late", Documents: model.Documents{Resume: "late"}}, nil
	})
	store := revisions.NewStore()
	tr := newTranscript(t, sender, store)

	_, err := tr.Send(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tr.Messages(), 1)
	assert.Equal(t, 0, store.Len(model.DocumentResume))
}

func TestLoad(t *testing.T) {
	tr := newTranscript(t, &fakeSender{}, nil)
	require.NoError(t, tr.Load([]model.Message{{Role: model.RoleUser, Content: "hi"}, {Role: model.RoleAssistant, Content: "hello"}}))
	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].ID)
	assert.Equal(t, model.StatusConfirmed, msgs[1].Status)
	assert.ErrorIs(t, tr.Load(nil), ErrAlreadyLoaded)
}

type senderFunc func(ctx context.Context, conversationID, message string) (backend.ChatResult, error)

func (f senderFunc) SendChat(ctx context.Context, conversationID, message string) (backend.ChatResult, error) {
	return f(ctx, conversationID, message)
}
