package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobassist/internal/session"
	"jobassist/internal/shared/storage/object"
	"jobassist/internal/shared/telemetry"
	"jobassist/resume/model"
	"jobassist/resume/render"
)

// ActiveSessions yields the session documents belong to.
type ActiveSessions interface {
	Active() (*session.Session, error)
}

// Service renders and archives the active session's documents.
type Service struct {
	Sessions ActiveSessions
	Store    object.ObjectStore
	Repo     ExportsRepo
	Now      func() time.Time
	NewID    func() string
}

// Rendered is one export produced on demand.
type Rendered struct {
	ConversationID string
	FileName       string
	Artifact       render.Artifact
	RevisionID     string
}

// Render exports the current content of a document.
func (s *Service) Render(ctx context.Context, docType model.DocumentType, format render.Format) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}
	if !docType.Valid() {
		return Rendered{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	sess, err := s.Sessions.Active()
	if err != nil {
		return Rendered{}, err
	}
	content, err := sess.Document(docType)
	if err != nil {
		return Rendered{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Rendered{}, ErrEmpty
	}
	art, err := render.Export(format, content)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{
		ConversationID: sess.ID(),
		FileName:       docType.FileStem() + art.Extension,
		Artifact:       art,
	}
	if cur, ok := sess.Revisions().Current(docType); ok {
		out.RevisionID = cur.ID
	}
	return out, nil
}

// Archive renders a document and keeps the artifact in the object store.
func (s *Service) Archive(ctx context.Context, docType model.DocumentType, format render.Format) (Export, error) {
	if s.Store == nil || s.Repo == nil {
		return Export{}, fmt.Errorf("%w: export archive not configured", ErrInvalidInput)
	}
	rendered, err := s.Render(ctx, docType, format)
	if err != nil {
		return Export{}, err
	}
	stored, err := s.Store.Save(ctx, rendered.ConversationID, rendered.FileName, rendered.Artifact.MIMEType, bytes.NewReader(rendered.Artifact.Data))
	if err != nil {
		return Export{}, fmt.Errorf("archive export: %w", err)
	}

	exp := Export{
		ID:             s.newID(),
		ConversationID: rendered.ConversationID,
		DocumentType:   docType,
		Format:         format,
		FileName:       rendered.FileName,
		ContentType:    rendered.Artifact.MIMEType,
		SizeBytes:      stored.SizeBytes,
		StorageKey:     stored.Key,
		RevisionID:     rendered.RevisionID,
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, exp); err != nil {
		return Export{}, fmt.Errorf("record export: %w", err)
	}
	telemetry.Info("documents.archived", map[string]any{
		"conversation_id": exp.ConversationID,
		"document_type":   string(docType),
		"format":          string(format),
		"export_id":       exp.ID,
		"storage_key":     exp.StorageKey,
		"size_bytes":      exp.SizeBytes,
	})
	return exp, nil
}

// Archives lists a document's archived exports, newest first.
func (s *Service) Archives(ctx context.Context, docType model.DocumentType) ([]Export, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	if s.Repo == nil {
		return []Export{}, nil
	}
	sess, err := s.Sessions.Active()
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByConversation(ctx, sess.ID(), docType)
}

// OpenArchive streams an archived export of the active conversation.
func (s *Service) OpenArchive(ctx context.Context, id string) (Export, io.ReadCloser, error) {
	if s.Store == nil || s.Repo == nil {
		return Export{}, nil, ErrNotFound
	}
	sess, err := s.Sessions.Active()
	if err != nil {
		return Export{}, nil, err
	}
	exp, err := s.Repo.GetByID(ctx, sess.ID(), id)
	if err != nil {
		return Export{}, nil, err
	}
	rc, err := s.Store.Open(ctx, exp.StorageKey)
	if err != nil {
		return Export{}, nil, fmt.Errorf("open export %s: %w", exp.ID, err)
	}
	return exp, rc, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
