package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jobassist/internal/backend"
	"jobassist/internal/chat"
	"jobassist/internal/shared/server/middleware"
	"jobassist/internal/shared/server/respond"
	"jobassist/resume/model"
)

// Directory lists and removes conversations on the backend.
type Directory interface {
	ListConversations(ctx context.Context, limit, offset int) ([]model.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) (backend.DeleteResult, error)
}

// Handler wires HTTP handlers for the active session and the conversation list.
type Handler struct {
	Manager   *Manager
	Directory Directory
	StartPath string
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager, dir Directory, startPath string) *Handler {
	if strings.TrimSpace(startPath) == "" {
		startPath = "/"
	}
	return &Handler{Manager: m, Directory: dir, StartPath: startPath}
}

// RegisterRoutes attaches session and conversation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.current)
	rg.DELETE("/session", h.reset)
	rg.GET("/session/messages", h.messages)
	rg.POST("/session/messages", h.send)
	rg.POST("/session/messages/:messageId/resend", h.resend)

	rg.GET("/conversations", h.list)
	rg.GET("/conversations/:id", h.get)
	rg.DELETE("/conversations/:id", h.remove)
	rg.POST("/conversations/:id/open", h.open)
}

// NoSession answers a request that needs an active session. Page loads are
// redirected to the start of the flow; other calls get a not_found error.
func NoSession(c *gin.Context, startPath string) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		c.Redirect(http.StatusSeeOther, startPath)
		c.Abort()
		return
	}
	respond.Error(c, http.StatusNotFound, respond.CodeNotFound, ErrNoActiveSession.Error(), gin.H{"startPath": startPath})
}

// SessionResponse describes the active session.
type SessionResponse struct {
	ConversationID string          `json:"conversationId"`
	Summary        string          `json:"summary,omitempty"`
	Documents      model.Documents `json:"documents"`
	Messages       []model.Message `json:"messages"`
}

type sendRequest struct {
	Message string `json:"message"`
}

func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ConversationID: s.ID(),
		Summary:        s.Summary(),
		Documents:      s.Documents(),
		Messages:       s.Transcript().Messages(),
	}
}

func (h *Handler) active(c *gin.Context) (*Session, bool) {
	s, err := h.Manager.Active()
	if err != nil {
		h.fail(c, err, "failed to load session")
		return nil, false
	}
	c.Set(middleware.ConversationIDKey, s.ID())
	return s, true
}

func (h *Handler) current(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	respond.OK(c, toSessionResponse(s))
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Manager.Reset(c.Request.Context()); err != nil {
		respond.Internal(c, "failed to reset session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) messages(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	respond.OK(c, s.Transcript().Messages())
}

func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	res, err := s.Send(c.Request.Context(), req.Message)
	if err != nil {
		h.failMessage(c, s, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) resend(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	res, err := s.Resend(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		h.failMessage(c, s, err)
		return
	}
	respond.OK(c, res)
}

// failMessage reports a failed exchange along with the message left in the
// transcript so the caller can offer a resend.
func (h *Handler) failMessage(c *gin.Context, s *Session, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrNotResendable):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		return
	case errors.Is(err, chat.ErrMessageNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, err.Error(), nil)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSessionClosed):
		h.fail(c, err, "failed to send message")
		return
	}

	var failed *model.Message
	msgs := s.Transcript().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser && msgs[i].Status == model.StatusFailed {
			failed = &msgs[i]
			break
		}
	}
	if failed == nil {
		h.fail(c, err, "failed to send message")
		return
	}
	status, code := http.StatusBadGateway, respond.CodeBackend
	if errors.Is(err, backend.ErrBackendUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		status, code = http.StatusServiceUnavailable, respond.CodeBackendUnavailable
	}
	respond.Error(c, status, code, err.Error(), gin.H{"message": *failed})
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := h.Directory.ListConversations(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err, "failed to list conversations")
		return
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	respond.OK(c, convs)
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.ConversationIDKey, id)
	conv, err := h.Directory.GetConversation(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to fetch conversation")
		return
	}
	respond.OK(c, conv)
}

func (h *Handler) remove(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.ConversationIDKey, id)
	res, err := h.Directory.DeleteConversation(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to delete conversation")
		return
	}
	if err := h.Manager.Forget(c.Request.Context(), id); err != nil {
		respond.Internal(c, "failed to clear session", err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) open(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.ConversationIDKey, id)
	s, err := h.Manager.Open(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to open conversation")
		return
	}
	respond.OK(c, toSessionResponse(s))
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	RespondError(c, err, h.StartPath, message)
}

// RespondError maps errors shared by every session-scoped route: a missing
// or replaced session, an unknown document type and backend failures.
// Anything else is a 500 with message.
func RespondError(c *gin.Context, err error, startPath, message string) {
	switch {
	case errors.Is(err, ErrNoActiveSession):
		NoSession(c, startPath)
	case errors.Is(err, ErrSessionClosed), errors.Is(err, context.Canceled):
		if c.Request.Context().Err() != nil {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusConflict, respond.CodeSessionClosed, "the session was replaced; reload and try again", nil)
	case errors.Is(err, model.ErrInvalidDocumentType):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "unknown document type", nil)
	default:
		if !respond.Backend(c, err) {
			respond.Internal(c, message, err)
		}
	}
}
