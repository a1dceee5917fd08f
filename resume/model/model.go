package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDocumentType is returned for anything other than resume or cover_letter.
var ErrInvalidDocumentType = errors.New("invalid document type")

// DocumentType names one of the two documents a conversation owns.
type DocumentType string

const (
	DocumentResume      DocumentType = "resume"
	DocumentCoverLetter DocumentType = "cover_letter"
)

// DocumentTypes lists every document type in display order.
var DocumentTypes = []DocumentType{DocumentResume, DocumentCoverLetter}

// ParseDocumentType accepts the wire names plus a few spellings seen in clients.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "resume", "optimized_resume":
		return DocumentResume, nil
	case "cover_letter", "cover-letter", "coverletter":
		return DocumentCoverLetter, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentType, raw)
	}
}

// Valid reports whether d is a known document type.
func (d DocumentType) Valid() bool {
	return d == DocumentResume || d == DocumentCoverLetter
}

// Title is the human label.
func (d DocumentType) Title() string {
	if d == DocumentCoverLetter {
		return "Cover Letter"
	}
	return "Resume"
}

// FileStem is the download name without extension.
func (d DocumentType) FileStem() string {
	if d == DocumentCoverLetter {
		return "cover_letter"
	}
	return "optimized_resume"
}

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps backend role names onto user/assistant. Tool and system
// messages are not part of the visible transcript and report false.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	default:
		return "", false
	}
}

// MessageStatus tracks delivery of a message to the backend.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusConfirmed MessageStatus = "confirmed"
	StatusFailed    MessageStatus = "failed"
)

// Message is one transcript entry.
type Message struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// MessageRef points from a revision back to the message that triggered it.
type MessageRef struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Revision is an immutable snapshot of a document.
type Revision struct {
	ID           string       `json:"id"`
	DocumentType DocumentType `json:"document_type"`
	Content      string       `json:"content"`
	Timestamp    time.Time    `json:"timestamp"`
	Feedback     string       `json:"feedback,omitempty"`
	Message      *MessageRef  `json:"message,omitempty"`
}

// Documents holds the current content of both documents.
type Documents struct {
	Resume      string `json:"optimized_resume"`
	CoverLetter string `json:"cover_letter"`
}

// Get returns the content for d.
func (d Documents) Get(t DocumentType) string {
	if t == DocumentCoverLetter {
		return d.CoverLetter
	}
	return d.Resume
}

// With returns a copy with t set to content.
func (d Documents) With(t DocumentType, content string) Documents {
	if t == DocumentCoverLetter {
		d.CoverLetter = content
	} else {
		d.Resume = content
	}
	return d
}

// Conversation is the full client view of one application.
type Conversation struct {
	ID              string    `json:"conversation_id"`
	JobDescription  string    `json:"job_description,omitempty"`
	Resume          string    `json:"resume,omitempty"`
	PersonalSummary string    `json:"personal_summary,omitempty"`
	Messages        []Message `json:"messages"`
	Documents       Documents `json:"documents"`
	CreatedAt       string    `json:"created_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
}

// ConversationSummary is a list entry.
type ConversationSummary struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
