package documents

import (
	"context"
	"sort"
	"sync"

	"jobassist/resume/model"
)

// MemoryRepo is an in-memory ExportsRepo.
type MemoryRepo struct {
	mu      sync.RWMutex
	exports map[string]Export
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{exports: make(map[string]Export)}
}

// Create stores an export record.
func (r *MemoryRepo) Create(ctx context.Context, exp Export) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exp.ID == "" || exp.ConversationID == "" {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports[exp.ID] = exp
	return nil
}

// GetByID returns one export of a conversation.
func (r *MemoryRepo) GetByID(ctx context.Context, conversationID, id string) (Export, error) {
	if err := ctx.Err(); err != nil {
		return Export{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.exports[id]
	if !ok || exp.ConversationID != conversationID {
		return Export{}, ErrNotFound
	}
	return exp, nil
}

// ListByConversation returns a document's exports, newest first.
func (r *MemoryRepo) ListByConversation(ctx context.Context, conversationID string, docType model.DocumentType) ([]Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Export, 0)
	for _, exp := range r.exports {
		if exp.ConversationID == conversationID && exp.DocumentType == docType {
			out = append(out, exp)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ ExportsRepo = (*MemoryRepo)(nil)
