package documents

import (
	"context"

	"jobassist/resume/model"
)

// ExportsRepo defines persistence operations for archived exports.
type ExportsRepo interface {
	Create(ctx context.Context, exp Export) error
	GetByID(ctx context.Context, conversationID, id string) (Export, error)
	ListByConversation(ctx context.Context, conversationID string, docType model.DocumentType) ([]Export, error)
}
