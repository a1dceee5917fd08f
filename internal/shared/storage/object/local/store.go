package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobassist/internal/shared/storage/object"
	"jobassist/internal/shared/util"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
	now     func() time.Time
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

// Save writes the export under <conversation>/<timestamp>_<name>.
func (s *Store) Save(ctx context.Context, conversationID, fileName, contentType string, r io.Reader) (object.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return object.Artifact{}, err
	}
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.Artifact{}, fmt.Errorf("sanitize file name: %w", err)
	}
	if strings.TrimSpace(conversationID) == "" {
		return object.Artifact{}, fmt.Errorf("conversation id is required")
	}

	namespace := util.HashKey(conversationID)
	finalName := fmt.Sprintf("%s_%s", s.now().UTC().Format("20060102T150405.000000000"), sanitizedName)

	dirPath := filepath.Join(s.baseDir, namespace)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.Artifact{}, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dirPath, finalName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.Artifact{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return object.Artifact{}, fmt.Errorf("write body: %w", err)
	}

	return object.Artifact{
		Key:         filepath.ToSlash(filepath.Join(namespace, finalName)),
		SizeBytes:   written,
		ContentType: contentType,
	}, nil
}

// Open opens a stored export for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage key")
	}
	return os.Open(filepath.Join(s.baseDir, clean))
}

var _ object.ObjectStore = (*Store)(nil)
