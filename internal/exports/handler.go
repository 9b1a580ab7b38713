package exports

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/pkg/queue"
	"github.com/aura-survey/backend/pkg/response"
)

// Store is the export persistence the handler needs.
type Store interface {
	Create(ctx context.Context, surveyID uuid.UUID) (*models.TemplateExport, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.TemplateExport, error)
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.TemplateExport, error)
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

// Enqueuer schedules export jobs.
type Enqueuer interface {
	EnqueueTemplateExport(ctx context.Context, payload queue.TemplateExportPayload) error
}

// Presigner issues download URLs for export objects.
type Presigner interface {
	PresignExport(ctx context.Context, key string) (string, error)
}

// Handler handles template export HTTP endpoints.
type Handler struct {
	store   Store
	queue   Enqueuer
	presign Presigner
	logger  *zap.Logger
}

// NewHandler creates an exports handler. presign may be nil when S3 is not configured.
func NewHandler(store Store, q Enqueuer, presign Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, queue: q, presign: presign, logger: logger}
}

// Register mounts export routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/surveys/:id/exports", h.Create)
	g.GET("/surveys/:id/exports", h.ListBySurvey)
	g.GET("/exports/:id", h.Get)
	g.GET("/exports/:id/download-url", h.DownloadURL)
}

// Create handles POST /surveys/:id/exports.
func (h *Handler) Create(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return
	}
	ctx := c.Request.Context()
	exp, err := h.store.Create(ctx, surveyID)
	if err != nil {
		if errors.Is(err, ErrSurveyNotFound) {
			response.NotFound(c, "survey not found")
			return
		}
		h.logger.Error("create export failed", zap.Error(err), zap.String("survey_id", surveyID.String()))
		response.Internal(c, "failed to create export")
		return
	}
	if err := h.queue.EnqueueTemplateExport(ctx, queue.TemplateExportPayload{ExportID: exp.ID, SurveyID: surveyID}); err != nil {
		h.logger.Error("enqueue export failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		_ = h.store.Fail(ctx, exp.ID, "could not be queued")
		response.ServiceUnavailable(c, "export queue unavailable")
		return
	}
	response.Created(c, exp)
}

// ListBySurvey handles GET /surveys/:id/exports.
func (h *Handler) ListBySurvey(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return
	}
	list, err := h.store.ListBySurvey(c.Request.Context(), surveyID)
	if err != nil {
		h.logger.Error("list exports failed", zap.Error(err), zap.String("survey_id", surveyID.String()))
		response.Internal(c, "failed to list exports")
		return
	}
	response.OK(c, gin.H{"exports": list})
}

// Get handles GET /exports/:id.
func (h *Handler) Get(c *gin.Context) {
	exp, ok := h.lookup(c)
	if !ok {
		return
	}
	response.OK(c, exp)
}

// DownloadURL handles GET /exports/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	exp, ok := h.lookup(c)
	if !ok {
		return
	}
	if exp.Status != models.ExportStatusCompleted || exp.S3Key == "" {
		response.Conflict(c, "export not ready")
		return
	}
	if h.presign == nil {
		response.ServiceUnavailable(c, "storage not configured")
		return
	}
	url, err := h.presign.PresignExport(c.Request.Context(), exp.S3Key)
	if err != nil {
		h.logger.Error("presign export failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *Handler) lookup(c *gin.Context) (*models.TemplateExport, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return nil, false
	}
	exp, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "export not found")
			return nil, false
		}
		h.logger.Error("get export failed", zap.Error(err), zap.String("export_id", id.String()))
		response.Internal(c, "failed to get export")
		return nil, false
	}
	return exp, true
}
