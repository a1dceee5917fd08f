package applications

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"jobassist/internal/extract"
	"jobassist/internal/shared/server/middleware"
	"jobassist/internal/shared/server/respond"
	"jobassist/internal/wizard"
)

const maxUploadSize = extract.MaxUploadBytes + 1<<20

// Handler wires HTTP handlers to the applications service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches application routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.submit)
	rg.POST("/applications/steps/:step/validate", h.validateStep)
	rg.POST("/applications/resume-text", h.resumeText)
}

func (h *Handler) validateStep(c *gin.Context) {
	step, err := wizard.ParseStep(c.Param("step"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, err.Error(), nil)
		return
	}

	var req validateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	if err := wizard.ValidateStep(step, req.Value); err != nil {
		writeValidation(c, err)
		return
	}

	respond.OK(c, StepValidationResponse{
		Step:      step.String(),
		Valid:     true,
		MinLength: step.MinLength(),
		Length:    utf8.RuneCountInString(strings.TrimSpace(req.Value)),
	})
}

func (h *Handler) submit(c *gin.Context) {
	var fields wizard.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	s, err := h.Svc.Submit(c.Request.Context(), fields)
	if err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			writeValidation(c, err)
			return
		}
		if !respond.Backend(c, err) {
			respond.Internal(c, "failed to submit application", err)
		}
		return
	}

	c.Set(middleware.ConversationIDKey, s.ID())
	c.Header("Location", "/api/v1/session")
	respond.JSON(c, http.StatusCreated, toApplicationResponse(s))
}

func (h *Handler) resumeText(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	text, err := h.Svc.ResumeText(c.Request.Context(), file, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, respond.CodeValidation, "only PDF and DOCX files are supported", nil)
		case errors.Is(err, extract.ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, "file is too large", nil)
		case errors.Is(err, extract.ErrEmptyFile), errors.Is(err, extract.ErrNoText):
			respond.Error(c, http.StatusUnprocessableEntity, respond.CodeValidation, "no text could be read from the file", nil)
		default:
			respond.Error(c, http.StatusUnprocessableEntity, respond.CodeValidation, "unable to read file", nil)
		}
		return
	}

	respond.OK(c, ResumeTextResponse{
		FileName: fileHeader.Filename,
		Text:     text,
		Length:   utf8.RuneCountInString(text),
	})
}

func writeValidation(c *gin.Context, err error) {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, verr.Message, validationDetails(verr))
		return
	}
	respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
}
