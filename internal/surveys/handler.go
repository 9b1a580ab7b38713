package surveys

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/pkg/response"
)

// CreateSurveyRequest is the body for POST /surveys.
type CreateSurveyRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// BulkUpdateRequest is the body for PATCH /surveys/:id.
type BulkUpdateRequest struct {
	Version   int                  `json:"version"`
	Questions []models.OrderUpdate `json:"questions" binding:"required,dive"`
}

// RenameSectionRequest is the body for PATCH /surveys/:id/sections/rename.
type RenameSectionRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// Notifier is told when a survey changed through the REST surface.
type Notifier interface {
	PublishRefresh(surveyID uuid.UUID, reason string)
}

// Handler serves the survey store over REST.
type Handler struct {
	repo     *Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a surveys handler. notifier may be nil.
func NewHandler(repo *Repository, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, notifier: notifier, logger: logger}
}

// QuestionTypes handles GET /question-types.
func (h *Handler) QuestionTypes(c *gin.Context) {
	types, err := h.repo.QuestionTypes(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list question types")
		return
	}
	response.OK(c, types)
}

// List handles GET /surveys.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListSurveys(c.Request.Context())
	if err != nil {
		h.logger.Error("list surveys", zap.Error(err))
		response.Internal(c, "failed to list surveys")
		return
	}
	response.OK(c, gin.H{"surveys": list})
}

// Create handles POST /surveys.
func (h *Handler) Create(c *gin.Context) {
	var req CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.BadRequest(c, "name is required")
		return
	}
	s := &models.Survey{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		StartDate:   time.Now().UTC(),
		EndDate:     req.EndDate,
		Questions:   []models.Question{},
		Sections:    []models.Section{},
	}
	if req.StartDate != nil {
		s.StartDate = *req.StartDate
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		response.BadRequest(c, "end_date must not be before start_date")
		return
	}
	if err := h.repo.CreateSurvey(c.Request.Context(), s); err != nil {
		h.logger.Error("create survey", zap.Error(err))
		response.Internal(c, "failed to create survey")
		return
	}
	response.Created(c, s)
}

// Get handles GET /surveys/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	s, err := h.repo.GetSurvey(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, "get survey", err)
		return
	}
	response.OK(c, s)
}

// CreateQuestion handles POST /surveys/:id/questions.
func (h *Handler) CreateQuestion(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	var in models.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.repo.CreateQuestion(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, id, "create question", err)
		return
	}
	h.refresh(id, "question_created")
	response.Created(c, q)
}

// UpdateQuestion handles PATCH /surveys/:id/questions/:questionId.
func (h *Handler) UpdateQuestion(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var patch models.QuestionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.repo.UpdateQuestion(c.Request.Context(), id, questionID, patch)
	if err != nil {
		h.fail(c, id, "update question", err)
		return
	}
	h.refresh(id, "question_updated")
	response.OK(c, q)
}

// DeleteQuestion handles DELETE /surveys/:id/questions/:questionId.
func (h *Handler) DeleteQuestion(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	if err := h.repo.DeleteQuestion(c.Request.Context(), id, questionID); err != nil {
		h.fail(c, id, "delete question", err)
		return
	}
	h.refresh(id, "question_deleted")
	response.NoContent(c)
}

// BulkUpdate handles PATCH /surveys/:id with a full question reordering.
func (h *Handler) BulkUpdate(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	version, err := h.repo.BulkUpdateQuestions(c.Request.Context(), id, req.Version, req.Questions)
	if err != nil {
		h.fail(c, id, "bulk update questions", err)
		return
	}
	h.refresh(id, "questions_reordered")
	response.OK(c, gin.H{"id": id, "version": version})
}

// SectionOrder handles GET /surveys/:id/section-order.
func (h *Handler) SectionOrder(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	ranks, err := h.repo.SectionOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, "get section order", err)
		return
	}
	response.OK(c, ranks)
}

// UpdateSectionOrder handles PUT /surveys/:id/section-order.
func (h *Handler) UpdateSectionOrder(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	var ranks []models.SectionRank
	if err := c.ShouldBindJSON(&ranks); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdateSectionOrder(c.Request.Context(), id, ranks); err != nil {
		h.fail(c, id, "update section order", err)
		return
	}
	h.refresh(id, "sections_reordered")
	response.OK(c, ranks)
}

// RenameSection handles PATCH /surveys/:id/sections/rename.
func (h *Handler) RenameSection(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}
	var req RenameSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.RenameSection(c.Request.Context(), id, req.From, req.To); err != nil {
		h.fail(c, id, "rename section", err)
		return
	}
	h.refresh(id, "section_renamed")
	response.OK(c, gin.H{"from": req.From, "to": strings.TrimSpace(req.To)})
}

func (h *Handler) refresh(id uuid.UUID, reason string) {
	if h.notifier != nil {
		h.notifier.PublishRefresh(id, reason)
	}
}

func (h *Handler) fail(c *gin.Context, id uuid.UUID, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidQuestion), errors.Is(err, ErrInvalidOrder):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrVersionConflict):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(op, zap.String("survey_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}

func surveyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return uuid.Nil, false
	}
	return id, true
}
