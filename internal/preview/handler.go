package preview

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/editor"
	"github.com/aura-survey/backend/pkg/response"
)

// CaptureRequest is the body for PUT /previews/:previewId/responses/:questionId.
type CaptureRequest struct {
	Value json.RawMessage `json:"value"`
}

// Handler serves previews built from mounted editor sessions.
type Handler struct {
	previews *Registry
	editors  *editor.Registry
	logger   *zap.Logger
}

// NewHandler creates a preview handler.
func NewHandler(previews *Registry, editors *editor.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{previews: previews, editors: editors, logger: logger}
}

// Register mounts the preview routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/editor/surveys/:id/preview", h.Create)
	p := g.Group("/previews/:previewId")
	p.GET("", h.Get)
	p.DELETE("", h.Discard)
	p.POST("/sections/:name", h.EnterSection)
	p.POST("/next", h.Next)
	p.POST("/previous", h.Previous)
	p.POST("/exit", h.Exit)
	p.PUT("/responses/:questionId", h.Capture)
}

// SectionsFromGroups converts the editor sidebar into preview sections.
func SectionsFromGroups(groups []editor.Group) []Section {
	return lo.Map(groups, func(g editor.Group, _ int) Section {
		return Section{Name: g.Name, Questions: g.Questions}
	})
}

// Create handles POST /editor/surveys/:id/preview. The preview uses the in-memory collection.
func (h *Handler) Create(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return
	}
	s, err := h.editors.Mount(c.Request.Context(), surveyID)
	if err == nil {
		err = s.Ready()
	}
	switch {
	case errors.Is(err, editor.ErrNotLoaded):
		response.FailWith(c, http.StatusConflict, err.Error(), nil)
		return
	case err != nil:
		response.FailWith(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	e := h.previews.Create(surveyID, s.Name(), SectionsFromGroups(s.Groups()))
	h.logger.Debug("preview started", zap.String("survey_id", surveyID.String()), zap.String("preview_id", e.ID().String()))
	response.Created(c, e.View())
}

// Get handles GET /previews/:previewId.
func (h *Handler) Get(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	response.OK(c, e.View())
}

// Discard handles DELETE /previews/:previewId.
func (h *Handler) Discard(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	h.previews.Delete(e.ID())
	response.NoContent(c)
}

// EnterSection handles POST /previews/:previewId/sections/:name.
func (h *Handler) EnterSection(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	v, err := e.EnterSection(c.Param("name"))
	h.result(c, v, err)
}

// Next handles POST /previews/:previewId/next.
func (h *Handler) Next(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	v, err := e.Next()
	h.result(c, v, err)
}

// Previous handles POST /previews/:previewId/previous.
func (h *Handler) Previous(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	v, err := e.Previous()
	h.result(c, v, err)
}

// Exit handles POST /previews/:previewId/exit (Save & Exit).
func (h *Handler) Exit(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	response.OK(c, e.SaveAndExit())
}

// Capture handles PUT /previews/:previewId/responses/:questionId.
func (h *Handler) Capture(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := e.Capture(questionID, req.Value)
	h.result(c, v, err)
}

func (h *Handler) engine(c *gin.Context) (*Engine, bool) {
	id, err := uuid.Parse(c.Param("previewId"))
	if err != nil {
		response.BadRequest(c, "invalid preview id")
		return nil, false
	}
	e, ok := h.previews.Get(id)
	if !ok {
		response.NotFound(c, "preview not found or expired")
		return nil, false
	}
	return e, true
}

func (h *Handler) result(c *gin.Context, v View, err error) {
	switch {
	case err == nil:
		response.OK(c, v)
	case errors.Is(err, ErrUnknownSection), errors.Is(err, ErrUnknownQuestion):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrNotInFlow):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidAnswer), errors.Is(err, ErrUnsupportedType):
		response.FailWith(c, http.StatusUnprocessableEntity, err.Error(), v)
	default:
		h.logger.Error("preview request failed", zap.Error(err))
		response.Internal(c, "preview request failed")
	}
}
