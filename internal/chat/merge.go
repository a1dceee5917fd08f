package chat

import (
	"jobassist/internal/revisions"
	"jobassist/resume/model"
)

// MergeDocuments appends a chat revision for every returned document whose
// content differs from the current revision. Empty content means the
// backend did not return that document.
func MergeDocuments(store *revisions.Store, docs model.Documents, feedback string, ref *model.MessageRef) ([]model.Revision, bool, error) {
	if store == nil {
		return nil, false, nil
	}
	var appended []model.Revision
	for _, dt := range model.DocumentTypes {
		content := docs.Get(dt)
		if content == "" {
			continue
		}
		if cur, ok := store.Current(dt); ok && cur.Content == content {
			continue
		}
		rev, err := store.AppendFrom(revisions.SourceChat, dt, content, feedback, ref)
		if err != nil {
			return appended, len(appended) > 0, err
		}
		appended = append(appended, rev)
	}
	return appended, len(appended) > 0, nil
}

// CurrentDocuments reads the newest content of both documents.
func CurrentDocuments(store *revisions.Store) model.Documents {
	var docs model.Documents
	for _, dt := range model.DocumentTypes {
		if cur, ok := store.Current(dt); ok {
			docs = docs.With(dt, cur.Content)
		}
	}
	return docs
}
