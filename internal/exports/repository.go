package exports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-survey/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("export not found")
	ErrSurveyNotFound = errors.New("survey not found")
)

const foreignKeyViolation = "23503"

const exportColumns = `id, survey_id, status, COALESCE(s3_key,''), file_size, COALESCE(error_message,''), created_at, updated_at`

// Repository handles template export persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an exports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending export for a survey.
func (r *Repository) Create(ctx context.Context, surveyID uuid.UUID) (*models.TemplateExport, error) {
	const q = `INSERT INTO template_exports (id, survey_id, status)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING ` + exportColumns
	exp, err := scanExport(r.pool.QueryRow(ctx, q, surveyID, models.ExportStatusPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("create export: %w", err)
	}
	return exp, nil
}

// GetByID returns an export by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.TemplateExport, error) {
	const q = `SELECT ` + exportColumns + ` FROM template_exports WHERE id = $1`
	exp, err := scanExport(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return exp, nil
}

// ListBySurvey returns a survey's exports, newest first.
func (r *Repository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.TemplateExport, error) {
	const q = `SELECT ` + exportColumns + ` FROM template_exports WHERE survey_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.TemplateExport{}
	for rows.Next() {
		exp, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *exp)
	}
	return list, rows.Err()
}

// MarkProcessing sets status to processing.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE template_exports SET status = $1, error_message = NULL, updated_at = NOW() WHERE id = $2`,
		models.ExportStatusProcessing, id)
}

// Complete records the uploaded object and marks the export completed.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, s3Key string, fileSize int64) error {
	return r.exec(ctx, `UPDATE template_exports SET s3_key = $1, file_size = $2, status = $3, error_message = NULL, updated_at = NOW() WHERE id = $4`,
		s3Key, fileSize, models.ExportStatusCompleted, id)
}

// Fail marks the export failed with a message.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return r.exec(ctx, `UPDATE template_exports SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		models.ExportStatusFailed, message, id)
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExport(row pgx.Row) (*models.TemplateExport, error) {
	var exp models.TemplateExport
	if err := row.Scan(&exp.ID, &exp.SurveyID, &exp.Status, &exp.S3Key, &exp.FileSize, &exp.ErrorMessage, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
		return nil, err
	}
	return &exp, nil
}
