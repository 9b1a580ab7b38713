package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/internal/surveys"
	"github.com/aura-survey/backend/pkg/queue"
	"github.com/aura-survey/backend/pkg/storage"
)

// SurveyLoader reads the survey being exported.
type SurveyLoader interface {
	GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error)
}

// ExportStore tracks export status.
type ExportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TemplateExport, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, s3Key string, fileSize int64) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

// Uploader writes export documents to object storage.
type Uploader interface {
	UploadExport(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// JobQueue is the job source.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// ExportProcessor processes template export jobs: load survey, build JSON, upload to S3, update DB.
type ExportProcessor struct {
	surveys SurveyLoader
	exports ExportStore
	store   Uploader
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewExportProcessor creates a template export processor.
func NewExportProcessor(surveyRepo SurveyLoader, exportRepo ExportStore, up Uploader, q JobQueue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{
		surveys: surveyRepo,
		exports: exportRepo,
		store:   up,
		queue:   q,
		logger:  logger,
		backoff: queue.RetryBackoff,
		now:     time.Now,
	}
}

// Process executes one template export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTemplateExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TemplateExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	exp, err := p.exports.GetByID(ctx, payload.ExportID)
	if err != nil {
		return fmt.Errorf("export %s: %w", payload.ExportID, err)
	}
	if exp.Status == models.ExportStatusCompleted {
		p.logger.Info("export already completed", zap.String("export_id", exp.ID.String()))
		return nil
	}
	if err := p.exports.MarkProcessing(ctx, exp.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	survey, err := p.surveys.GetSurvey(ctx, payload.SurveyID)
	if err != nil {
		if errors.Is(err, surveys.ErrNotFound) {
			// Retrying cannot bring the survey back.
			p.logger.Warn("export survey missing", zap.String("export_id", exp.ID.String()), zap.String("survey_id", payload.SurveyID.String()))
			return p.exports.Fail(ctx, exp.ID, "survey not found")
		}
		return fmt.Errorf("load survey: %w", err)
	}

	body, err := json.MarshalIndent(BuildTemplate(survey, p.now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	key := storage.ExportKey(payload.SurveyID.String(), payload.ExportID.String())
	if err := p.store.UploadExport(ctx, key, bytes.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.exports.Complete(ctx, exp.ID, key, int64(len(body))); err != nil {
		p.logger.Error("update export result failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("template export completed", zap.String("export_id", exp.ID.String()), zap.String("s3_key", key), zap.Int("bytes", len(body)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.handle(ctx, job)
	}
}

func (p *ExportProcessor) handle(ctx context.Context, job *queue.Job) {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
	}
	if dead {
		p.markDead(ctx, job, err)
		return
	}
	p.sleep(ctx)
}

func (p *ExportProcessor) markDead(ctx context.Context, job *queue.Job, cause error) {
	var payload queue.TemplateExportPayload
	if json.Unmarshal(job.Payload, &payload) != nil || payload.ExportID == uuid.Nil {
		return
	}
	if err := p.exports.Fail(ctx, payload.ExportID, cause.Error()); err != nil {
		p.logger.Error("mark export failed", zap.Error(err), zap.String("export_id", payload.ExportID.String()))
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
