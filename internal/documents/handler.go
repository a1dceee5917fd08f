package documents

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobassist/internal/revisions"
	"jobassist/internal/session"
	"jobassist/internal/shared/server/middleware"
	"jobassist/internal/shared/server/respond"
	"jobassist/resume/model"
	"jobassist/resume/render"
)

const maxDocumentSize = 1 << 20

// Handler wires HTTP handlers for the active session's documents.
type Handler struct {
	Svc       *Service
	Sessions  *session.Manager
	StartPath string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, sessions *session.Manager, startPath string) *Handler {
	return &Handler{Svc: svc, Sessions: sessions, StartPath: startPath}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/session/documents/:type")
	docs.GET("", h.current)
	docs.PUT("", h.save)
	docs.GET("/revisions", h.history)
	docs.GET("/revisions/:revisionId", h.restore)
	docs.GET("/compare", h.compare)
	docs.GET("/export", h.export)
	docs.POST("/exports", h.archive)
	docs.GET("/exports", h.archives)
	docs.GET("/exports/:exportId/download", h.download)
}

func (h *Handler) docType(c *gin.Context) (model.DocumentType, bool) {
	dt, err := model.ParseDocumentType(c.Param("type"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "unknown document type", nil)
		return "", false
	}
	c.Set(middleware.DocumentTypeKey, string(dt))
	return dt, true
}

func (h *Handler) active(c *gin.Context) (*session.Session, bool) {
	s, err := h.Sessions.Active()
	if err != nil {
		h.fail(c, err, "failed to load session")
		return nil, false
	}
	c.Set(middleware.ConversationIDKey, s.ID())
	return s, true
}

func (h *Handler) current(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	content, err := s.Document(dt)
	if err != nil {
		h.fail(c, err, "failed to load document")
		return
	}
	resp := DocumentResponse{
		ConversationID: s.ID(),
		DocumentType:   string(dt),
		Title:          dt.Title(),
		Content:        content,
	}
	if cur, ok := s.Revisions().Current(dt); ok {
		resp.RevisionID = cur.ID
		resp.UpdatedAt = cur.Timestamp
	}
	respond.OK(c, resp)
}

func (h *Handler) save(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize)

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "content is required", nil)
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}

	rev, err := s.SaveDocument(c.Request.Context(), dt, *req.Content)
	if err != nil {
		h.fail(c, err, "failed to save document")
		return
	}
	respond.OK(c, toRevisionResponse(rev, rev.ID))
}

func (h *Handler) history(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	revs, err := s.History(c.Request.Context(), dt)
	if err != nil {
		h.fail(c, err, "failed to load history")
		return
	}
	currentID := ""
	if len(revs) > 0 {
		currentID = revs[len(revs)-1].ID
	}
	resp := make([]RevisionResponse, 0, len(revs))
	for _, rev := range revs {
		resp = append(resp, toRevisionResponse(rev, currentID))
	}
	respond.OK(c, resp)
}

func (h *Handler) restore(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	if _, err := s.History(c.Request.Context(), dt); err != nil {
		h.fail(c, err, "failed to load history")
		return
	}
	rev, err := s.Revisions().Get(dt, c.Param("revisionId"))
	if err != nil {
		h.fail(c, err, "failed to load revision")
		return
	}
	currentID := ""
	if cur, ok := s.Revisions().Current(dt); ok {
		currentID = cur.ID
	}
	respond.OK(c, toRevisionResponse(rev, currentID))
}

func (h *Handler) compare(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	from, to := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "from and to revision ids are required", nil)
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	if _, err := s.History(c.Request.Context(), dt); err != nil {
		h.fail(c, err, "failed to load history")
		return
	}
	cmp, err := s.Compare(dt, from, to)
	if err != nil {
		h.fail(c, err, "failed to compare revisions")
		return
	}
	currentID := ""
	if cur, ok := s.Revisions().Current(dt); ok {
		currentID = cur.ID
	}
	respond.OK(c, CompareResponse{
		From:       toRevisionResponse(cmp.From, currentID),
		To:         toRevisionResponse(cmp.To, currentID),
		Lines:      cmp.Lines,
		Insertions: cmp.Insertions,
		Deletions:  cmp.Deletions,
	})
}

func (h *Handler) export(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	format, err := render.ParseFormat(c.DefaultQuery("format", string(render.FormatText)))
	if err != nil {
		h.fail(c, err, "failed to export document")
		return
	}
	rendered, err := h.Svc.Render(c.Request.Context(), dt, format)
	if err != nil {
		h.fail(c, err, "failed to export document")
		return
	}
	c.Set(middleware.ConversationIDKey, rendered.ConversationID)
	respond.Attachment(c, rendered.FileName, rendered.Artifact.MIMEType, rendered.Artifact.Data)
}

func (h *Handler) archive(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		h.fail(c, err, "failed to archive document")
		return
	}
	exp, err := h.Svc.Archive(c.Request.Context(), dt, format)
	if err != nil {
		h.fail(c, err, "failed to archive document")
		return
	}
	c.Set(middleware.ConversationIDKey, exp.ConversationID)
	respond.JSON(c, http.StatusCreated, toExportResponse(exp))
}

func (h *Handler) archives(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	exps, err := h.Svc.Archives(c.Request.Context(), dt)
	if err != nil {
		h.fail(c, err, "failed to list exports")
		return
	}
	resp := make([]ExportResponse, 0, len(exps))
	for _, exp := range exps {
		resp = append(resp, toExportResponse(exp))
	}
	respond.OK(c, resp)
}

func (h *Handler) download(c *gin.Context) {
	if _, ok := h.docType(c); !ok {
		return
	}
	exp, rc, err := h.Svc.OpenArchive(c.Request.Context(), c.Param("exportId"))
	if err != nil {
		h.fail(c, err, "failed to load export")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", exp.ContentType)
	respond.AttachmentName(c, exp.FileName)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, revisions.ErrNotFound), errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, err.Error(), nil)
	case errors.Is(err, render.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), gin.H{"formats": render.Formats})
	case errors.Is(err, ErrEmpty), errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		session.RespondError(c, err, h.StartPath, message)
	}
}
