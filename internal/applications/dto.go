package applications

import (
	"jobassist/internal/session"
	"jobassist/internal/wizard"
	"jobassist/resume/model"
)

type validateStepRequest struct {
	Value string `json:"value"`
}

// StepValidationResponse reports a passing step guard.
type StepValidationResponse struct {
	Step      string `json:"step"`
	Valid     bool   `json:"valid"`
	MinLength int    `json:"minLength"`
	Length    int    `json:"length"`
}

// ApplicationResponse is returned after a successful submission.
type ApplicationResponse struct {
	ConversationID string          `json:"conversationId"`
	Summary        string          `json:"summary,omitempty"`
	Documents      model.Documents `json:"documents"`
}

// ResumeTextResponse carries text extracted from an uploaded file.
type ResumeTextResponse struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
	Length   int    `json:"length"`
}

func toApplicationResponse(s *session.Session) ApplicationResponse {
	return ApplicationResponse{
		ConversationID: s.ID(),
		Summary:        s.Summary(),
		Documents:      s.Documents(),
	}
}

func validationDetails(verr *wizard.ValidationError) map[string]any {
	return map[string]any{
		"step":   verr.Step.String(),
		"field":  verr.Field,
		"min":    verr.Min,
		"length": verr.Length,
	}
}
