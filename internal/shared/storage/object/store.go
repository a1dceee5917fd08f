package object

import (
	"context"
	"io"
)

// Artifact describes a stored export.
type Artifact struct {
	Key         string
	SizeBytes   int64
	ContentType string
}

// ObjectStore archives rendered exports, namespaced per conversation.
type ObjectStore interface {
	Save(ctx context.Context, conversationID, fileName, contentType string, r io.Reader) (Artifact, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
