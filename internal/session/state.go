package session

import (
	"context"

	"jobassist/resume/model"
)

const (
	keyConversationID = "conversation_id"
	keyResume         = "optimized_resume"
	keyCoverLetter    = "cover_letter"
)

var stateKeys = []string{keyConversationID, keyResume, keyCoverLetter}

// State is the client state kept across restarts.
type State struct {
	ConversationID string
	Documents      model.Documents
}

// Empty reports whether no conversation is recorded.
func (s State) Empty() bool {
	return s.ConversationID == ""
}

func (s State) values() map[string]string {
	return map[string]string{
		keyConversationID: s.ConversationID,
		keyResume:         s.Documents.Resume,
		keyCoverLetter:    s.Documents.CoverLetter,
	}
}

func stateFromValues(values map[string]string) State {
	return State{
		ConversationID: values[keyConversationID],
		Documents: model.Documents{
			Resume:      values[keyResume],
			CoverLetter: values[keyCoverLetter],
		},
	}
}

// StateStore persists State.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Clear(ctx context.Context) error
}
