package documents

import (
	"context"
	"database/sql"
	"errors"

	"jobassist/resume/model"
	"jobassist/resume/render"
)

// SQLiteRepo implements ExportsRepo on the local session database.
type SQLiteRepo struct {
	DB *sql.DB
}

// Create inserts an export record.
func (r *SQLiteRepo) Create(ctx context.Context, exp Export) error {
	const query = `
INSERT INTO exports (
    id,
    conversation_id,
    document_type,
    format,
    file_name,
    content_type,
    size_bytes,
    storage_key,
    revision_id,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var revisionID sql.NullString
	if exp.RevisionID != "" {
		revisionID = sql.NullString{String: exp.RevisionID, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		exp.ID,
		exp.ConversationID,
		string(exp.DocumentType),
		string(exp.Format),
		exp.FileName,
		exp.ContentType,
		exp.SizeBytes,
		exp.StorageKey,
		revisionID,
		exp.CreatedAt,
	)
	return err
}

const selectExport = `
SELECT id, conversation_id, document_type, format, file_name, content_type, size_bytes, storage_key, revision_id, created_at
FROM exports`

// GetByID returns one export of a conversation.
func (r *SQLiteRepo) GetByID(ctx context.Context, conversationID, id string) (Export, error) {
	row := r.DB.QueryRowContext(ctx, selectExport+`
WHERE id = ? AND conversation_id = ?`, id, conversationID)
	exp, err := scanExport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Export{}, ErrNotFound
		}
		return Export{}, err
	}
	return exp, nil
}

// ListByConversation returns a document's exports, newest first.
func (r *SQLiteRepo) ListByConversation(ctx context.Context, conversationID string, docType model.DocumentType) ([]Export, error) {
	rows, err := r.DB.QueryContext(ctx, selectExport+`
WHERE conversation_id = ? AND document_type = ?
ORDER BY created_at DESC, id DESC`, conversationID, string(docType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Export, 0)
	for rows.Next() {
		exp, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(row rowScanner) (Export, error) {
	var (
		exp        Export
		docType    string
		format     string
		revisionID sql.NullString
	)
	if err := row.Scan(
		&exp.ID,
		&exp.ConversationID,
		&docType,
		&format,
		&exp.FileName,
		&exp.ContentType,
		&exp.SizeBytes,
		&exp.StorageKey,
		&revisionID,
		&exp.CreatedAt,
	); err != nil {
		return Export{}, err
	}
	exp.DocumentType = model.DocumentType(docType)
	exp.Format = render.Format(format)
	if revisionID.Valid {
		exp.RevisionID = revisionID.String
	}
	return exp, nil
}

var _ ExportsRepo = (*SQLiteRepo)(nil)
