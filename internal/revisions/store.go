package revisions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobassist/internal/shared/metrics"
	"jobassist/resume/model"
)

var (
	// ErrNotFound is returned for an unknown revision id.
	ErrNotFound = errors.New("revision not found")
	// ErrAlreadySeeded is returned when remote history would overwrite local revisions.
	ErrAlreadySeeded = errors.New("revision history already populated")
)

// Source labels where a revision came from.
type Source string

const (
	SourceInitial Source = "initial"
	SourceChat    Source = "chat"
	SourceEdit    Source = "edit"
	SourceSeed    Source = "seed"
)

// Store keeps one append-only revision sequence per document type.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	seqs  map[model.DocumentType][]model.Revision
	now   func() time.Time
	newID func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDs overrides revision id generation.
func WithIDs(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		seqs:  make(map[model.DocumentType][]model.Revision, len(model.DocumentTypes)),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a snapshot and returns it.
func (s *Store) Append(docType model.DocumentType, content, feedback string, ref *model.MessageRef) (model.Revision, error) {
	return s.AppendFrom(SourceEdit, docType, content, feedback, ref)
}

// AppendFrom is Append with an explicit source label for metrics.
func (s *Store) AppendFrom(source Source, docType model.DocumentType, content, feedback string, ref *model.MessageRef) (model.Revision, error) {
	if !docType.Valid() {
		return model.Revision{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	rev := model.Revision{
		ID:           s.newID(),
		DocumentType: docType,
		Content:      content,
		Timestamp:    s.now(),
		Feedback:     feedback,
		Message:      copyRef(ref),
	}
	s.mu.Lock()
	s.seqs[docType] = append(s.seqs[docType], rev)
	s.mu.Unlock()
	metrics.IncRevision(string(docType), string(source))
	return cloneRevision(rev), nil
}

// List returns the revisions for docType oldest first.
func (s *Store) List(docType model.DocumentType) ([]model.Revision, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.seqs[docType]
	out := make([]model.Revision, len(seq))
	for i, rev := range seq {
		out[i] = cloneRevision(rev)
	}
	return out, nil
}

// Len returns the number of revisions for docType.
func (s *Store) Len(docType model.DocumentType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seqs[docType])
}

// Current returns the newest revision.
func (s *Store) Current(docType model.DocumentType) (model.Revision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.seqs[docType]
	if len(seq) == 0 {
		return model.Revision{}, false
	}
	return cloneRevision(seq[len(seq)-1]), true
}

// Get returns one revision by id.
func (s *Store) Get(docType model.DocumentType, id string) (model.Revision, error) {
	if !docType.Valid() {
		return model.Revision{}, fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rev := range s.seqs[docType] {
		if rev.ID == id {
			return cloneRevision(rev), nil
		}
	}
	return model.Revision{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Restore returns the content of a past revision without touching history.
// Saving that content is a separate Append.
func (s *Store) Restore(docType model.DocumentType, id string) (string, error) {
	rev, err := s.Get(docType, id)
	if err != nil {
		return "", err
	}
	return rev.Content, nil
}

// Seed loads remote history into an empty sequence. Revisions are ordered by
// timestamp; equal timestamps keep their given order. Missing ids and
// timestamps are filled in.
func (s *Store) Seed(docType model.DocumentType, revs []model.Revision) error {
	if !docType.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidDocumentType, docType)
	}
	if len(revs) == 0 {
		return nil
	}
	seeded := make([]model.Revision, len(revs))
	for i, rev := range revs {
		rev = cloneRevision(rev)
		rev.DocumentType = docType
		if rev.ID == "" {
			rev.ID = s.newID()
		}
		seeded[i] = rev
	}
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].Timestamp.Before(seeded[j].Timestamp)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seqs[docType]) > 0 {
		return ErrAlreadySeeded
	}
	s.seqs[docType] = seeded
	for range seeded {
		metrics.IncRevision(string(docType), string(SourceSeed))
	}
	return nil
}

// Reset drops every sequence. Used when a session switches conversations.
func (s *Store) Reset() {
	s.mu.Lock()
	s.seqs = make(map[model.DocumentType][]model.Revision, len(model.DocumentTypes))
	s.mu.Unlock()
}

func cloneRevision(rev model.Revision) model.Revision {
	rev.Message = copyRef(rev.Message)
	return rev
}

func copyRef(ref *model.MessageRef) *model.MessageRef {
	if ref == nil {
		return nil
	}
	cp := *ref
	return &cp
}
