package documents

import (
	"time"

	"jobassist/internal/revisions"
	"jobassist/resume/model"
)

// DocumentResponse is the current content of one document.
type DocumentResponse struct {
	ConversationID string    `json:"conversationId"`
	DocumentType   string    `json:"documentType"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	RevisionID     string    `json:"revisionId,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

type saveRequest struct {
	Content *string `json:"content"`
}

type archiveRequest struct {
	Format string `json:"format"`
}

// RevisionResponse is one entry of a document's history.
type RevisionResponse struct {
	RevisionID string            `json:"revisionId"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	Feedback   string            `json:"feedback,omitempty"`
	Message    *model.MessageRef `json:"message,omitempty"`
	Current    bool              `json:"current"`
}

// CompareResponse is the diff view of two revisions.
type CompareResponse struct {
	From       RevisionResponse `json:"from"`
	To         RevisionResponse `json:"to"`
	Lines      []revisions.Line `json:"lines"`
	Insertions int              `json:"insertions"`
	Deletions  int              `json:"deletions"`
}

// ExportResponse describes an archived export.
type ExportResponse struct {
	ExportID     string    `json:"exportId"`
	DocumentType string    `json:"documentType"`
	Format       string    `json:"format"`
	FileName     string    `json:"fileName"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	RevisionID   string    `json:"revisionId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toRevisionResponse(rev model.Revision, currentID string) RevisionResponse {
	return RevisionResponse{
		RevisionID: rev.ID,
		Content:    rev.Content,
		Timestamp:  rev.Timestamp,
		Feedback:   rev.Feedback,
		Message:    rev.Message,
		Current:    rev.ID == currentID,
	}
}

func toExportResponse(exp Export) ExportResponse {
	return ExportResponse{
		ExportID:     exp.ID,
		DocumentType: string(exp.DocumentType),
		Format:       string(exp.Format),
		FileName:     exp.FileName,
		ContentType:  exp.ContentType,
		SizeBytes:    exp.SizeBytes,
		RevisionID:   exp.RevisionID,
		CreatedAt:    exp.CreatedAt,
	}
}
