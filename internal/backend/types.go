package backend

import (
	"jobassist/resume/model"
)

// ApplicationInput is the initial submission.
type ApplicationInput struct {
	JobDescription  string `json:"job_description"`
	Resume          string `json:"resume"`
	PersonalSummary string `json:"personal_summary"`
}

// ProcessResult is returned by ProcessApplication.
type ProcessResult struct {
	ConversationID string
	Summary        string
	Documents      model.Documents
}

// ChatResult is returned by SendChat. Documents holds only the content the
// backend returned; absent documents are empty strings.
type ChatResult struct {
	Reply     string
	Documents model.Documents
}

// UpdateResult is returned by UpdateDocument.
type UpdateResult struct {
	Message   string
	Documents model.Documents
}

// DeleteResult acknowledges a deletion.
type DeleteResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
