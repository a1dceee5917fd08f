package applications

import (
	"context"
	"errors"
	"io"

	"jobassist/internal/backend"
	"jobassist/internal/extract"
	"jobassist/internal/session"
	"jobassist/internal/wizard"
)

// SessionStarter opens a session for a processed application.
type SessionStarter interface {
	Start(ctx context.Context, res backend.ProcessResult) (*session.Session, error)
}

// Service drives the input wizard on behalf of HTTP callers.
type Service struct {
	Backend  wizard.Submitter
	Sessions SessionStarter
}

// Submit walks the wizard through every step with the given fields and
// submits on the last one. The first failing step stops the walk.
func (s *Service) Submit(ctx context.Context, fields wizard.Fields) (*session.Session, error) {
	if s.Backend == nil || s.Sessions == nil {
		return nil, errors.New("applications service not configured")
	}
	w := wizard.New()
	for _, step := range wizard.Steps {
		if err := w.SetField(step, fields.Get(step)); err != nil {
			return nil, err
		}
	}
	for w.Step() != wizard.StepPersonalSummary {
		if err := w.Next(); err != nil {
			return nil, err
		}
	}
	res, err := w.Submit(ctx, s.Backend)
	if err != nil {
		return nil, err
	}
	return s.Sessions.Start(ctx, res)
}

// ResumeText extracts resume text from an uploaded PDF or DOCX.
func (s *Service) ResumeText(ctx context.Context, r io.Reader, mimeType, fileName string) (string, error) {
	return extract.Text(ctx, r, mimeType, fileName)
}
