package editor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/pkg/response"
)

// SelectRequest is the body for select and panel/edit.
type SelectRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}

// MoveSectionRequest is the body for sections/dialog/move.
type MoveSectionRequest struct {
	Active string  `json:"active" binding:"required"`
	Over   *string `json:"over"`
}

// Handler serves mounted editor sessions.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates an editor handler.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the editor routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	e := g.Group("/editor/surveys/:id")
	e.GET("", h.Mount)
	e.POST("/reload", h.Reload)
	e.POST("/select", h.Select)
	e.POST("/panel/add", h.StartAdd)
	e.POST("/panel/edit", h.StartEdit)
	e.PATCH("/panel/draft", h.UpdateDraft)
	e.POST("/panel/draft/config", h.EditDraftConfig)
	e.POST("/panel/save", h.Save)
	e.POST("/panel/cancel", h.Cancel)
	e.GET("/panel/form", h.Form)
	e.GET("/sections/suggest", h.SuggestSections)
	e.DELETE("/questions/:questionId", h.DeleteQuestion)
	e.POST("/questions/drag", h.Drag)
	e.GET("/sections/dialog", h.OpenSectionDialog)
	e.POST("/sections/dialog/move", h.MoveSection)
	e.POST("/sections/dialog/save", h.SaveSectionOrder)
	e.DELETE("/sections/dialog", h.CloseSectionDialog)
}

// Mount handles GET /editor/surveys/:id.
func (h *Handler) Mount(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.view(c, s)
}

// Reload handles POST /editor/surveys/:id/reload.
func (h *Handler) Reload(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Load(c.Request.Context()); err != nil {
		h.fail(c, s, err)
		return
	}
	h.view(c, s)
}

// Select handles POST /editor/surveys/:id/select.
func (h *Handler) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.result(c, s, s.Select(req.QuestionID))
}

// StartAdd handles POST /editor/surveys/:id/panel/add.
func (h *Handler) StartAdd(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.result(c, s, s.StartAdd())
}

// StartEdit handles POST /editor/surveys/:id/panel/edit.
func (h *Handler) StartEdit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.result(c, s, s.StartEdit(req.QuestionID))
}

// UpdateDraft handles PATCH /editor/surveys/:id/panel/draft.
func (h *Handler) UpdateDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var p DraftPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.result(c, s, s.UpdateDraft(p))
}

// EditDraftConfig handles POST /editor/surveys/:id/panel/draft/config.
func (h *Handler) EditDraftConfig(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var e catalog.Edit
	if err := c.ShouldBindJSON(&e); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.result(c, s, s.EditDraftConfig(e))
}

// Save handles POST /editor/surveys/:id/panel/save.
func (h *Handler) Save(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	_, err := s.Save(c.Request.Context())
	h.result(c, s, err)
}

// Cancel handles POST /editor/surveys/:id/panel/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Cancel()
	h.view(c, s)
}

// Form handles GET /editor/surveys/:id/panel/form.
func (h *Handler) Form(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	fields, err := s.DraftFields()
	if err != nil {
		h.fail(c, s, err)
		return
	}
	response.OK(c, gin.H{"fields": fields})
}

// SuggestSections handles GET /editor/surveys/:id/sections/suggest?q=.
func (h *Handler) SuggestSections(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"sections": s.SuggestSections(c.Query("q"))})
}

// DeleteQuestion handles DELETE /editor/surveys/:id/questions/:questionId?confirm=true.
func (h *Handler) DeleteQuestion(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	h.result(c, s, s.DeleteQuestion(c.Request.Context(), questionID, c.Query("confirm") == "true"))
}

// Drag handles POST /editor/surveys/:id/questions/drag.
func (h *Handler) Drag(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req DragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := s.Drag(c.Request.Context(), req)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	response.OK(c, gin.H{"result": res, "view": s.View()})
}

// OpenSectionDialog handles GET /editor/surveys/:id/sections/dialog.
func (h *Handler) OpenSectionDialog(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	d, err := s.OpenSectionDialog()
	if err != nil {
		h.fail(c, s, err)
		return
	}
	response.OK(c, d)
}

// MoveSection handles POST /editor/surveys/:id/sections/dialog/move.
func (h *Handler) MoveSection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req MoveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d, err := s.MoveSection(req.Active, req.Over)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	response.OK(c, d)
}

// SaveSectionOrder handles POST /editor/surveys/:id/sections/dialog/save.
func (h *Handler) SaveSectionOrder(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	_, err := s.SaveSectionOrder(c.Request.Context())
	h.result(c, s, err)
}

// CloseSectionDialog handles DELETE /editor/surveys/:id/sections/dialog.
func (h *Handler) CloseSectionDialog(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.CloseSectionDialog()
	h.view(c, s)
}

// session mounts the survey of the request. A failed first load is answered here.
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return nil, false
	}
	s, err := h.registry.Mount(c.Request.Context(), id)
	if err != nil {
		h.fail(c, s, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) result(c *gin.Context, s *Session, err error) {
	if err != nil {
		h.fail(c, s, err)
		return
	}
	h.view(c, s)
}

func (h *Handler) view(c *gin.Context, s *Session) {
	response.OK(c, s.View())
}

// fail maps session errors to statuses. Store failures carry the current view so the
// page and inline errors can be rendered.
func (h *Handler) fail(c *gin.Context, s *Session, err error) {
	var (
		verr *ValidationError
		berr *BackendError
	)
	switch {
	case errors.As(err, &verr):
		response.FailWith(c, http.StatusBadRequest, err.Error(), verr)
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNotLoaded):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrQuestionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrConfirmationRequired), errors.Is(err, ErrNoDraft), errors.Is(err, ErrDialogClosed):
		response.BadRequest(c, err.Error())
	case errors.Is(err, catalog.ErrUnknownType):
		response.BadRequest(c, err.Error())
	case errors.As(err, &berr):
		var data interface{}
		if s != nil {
			data = s.View()
		}
		response.FailWith(c, http.StatusBadGateway, err.Error(), data)
	default:
		h.logger.Error("editor request failed", zap.Error(err))
		response.Internal(c, "editor request failed")
	}
}
