package documents

import (
	"time"

	"jobassist/resume/model"
	"jobassist/resume/render"
)

// Export records a rendered document archived in the object store.
type Export struct {
	ID             string
	ConversationID string
	DocumentType   model.DocumentType
	Format         render.Format
	FileName       string
	ContentType    string
	SizeBytes      int64
	StorageKey     string
	RevisionID     string
	CreatedAt      time.Time
}
