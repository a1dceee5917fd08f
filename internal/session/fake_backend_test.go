package session

import (
	"context"
	"sync"

	"jobassist/internal/backend"
	"jobassist/resume/model"
)

type fakeBackend struct {
	mu sync.Mutex

	chat        []backend.ChatResult
	chatErr     error
	chatBlock   chan struct{}
	chatStarted chan struct{}
	chatCalls   []string

	updateErr   error
	updateEcho  string
	updateCalls int

	history      map[model.DocumentType][]model.Revision
	historyErr   error
	historyCalls int

	conversation model.Conversation
	convErr      error

	summaries []model.ConversationSummary
	deleted   []string
	deleteErr error
}

func (f *fakeBackend) SendChat(ctx context.Context, _ string, message string) (backend.ChatResult, error) {
	f.mu.Lock()
	i := len(f.chatCalls)
	f.chatCalls = append(f.chatCalls, message)
	block, started := f.chatBlock, f.chatStarted
	f.mu.Unlock()

	if block != nil {
		if started != nil {
			close(started)
		}
		select {
		case <-ctx.Done():
			return backend.ChatResult{}, ctx.Err()
		case <-block:
		}
	}
	if f.chatErr != nil {
		return backend.ChatResult{}, f.chatErr
	}
	if i < len(f.chat) {
		return f.chat[i], nil
	}
	return backend.ChatResult{Reply: "ok"}, nil
}

func (f *fakeBackend) UpdateDocument(_ context.Context, _ string, docType model.DocumentType, content string) (backend.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return backend.UpdateResult{}, f.updateErr
	}
	res := backend.UpdateResult{Message: "Document updated"}
	if f.updateEcho != "" {
		res.Documents = res.Documents.With(docType, f.updateEcho)
	}
	return res, nil
}

func (f *fakeBackend) DocumentHistory(_ context.Context, _ string, docType model.DocumentType) (backend.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return backend.History{}, f.historyErr
	}
	revs := f.history[docType]
	switch len(revs) {
	case 0:
		return backend.History{Kind: backend.HistoryEmpty}, nil
	case 1:
		return backend.History{Kind: backend.HistorySingle, Revisions: revs}, nil
	default:
		return backend.History{Kind: backend.HistoryList, Revisions: revs}, nil
	}
}

func (f *fakeBackend) GetConversation(_ context.Context, id string) (model.Conversation, error) {
	if f.convErr != nil {
		return model.Conversation{}, f.convErr
	}
	conv := f.conversation
	if conv.ID == "" {
		conv.ID = id
	}
	return conv, nil
}

func (f *fakeBackend) ListConversations(_ context.Context, limit, offset int) ([]model.ConversationSummary, error) {
	if offset >= len(f.summaries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.summaries) {
		end = len(f.summaries)
	}
	return f.summaries[offset:end], nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) (backend.DeleteResult, error) {
	if f.deleteErr != nil {
		return backend.DeleteResult{}, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return backend.DeleteResult{Status: "success", Message: "Conversation deleted"}, nil
}
