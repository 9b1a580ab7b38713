package surveys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

var (
	// ErrNotFound is returned when a survey, question or section does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a bulk reorder was computed against a stale survey.
	ErrVersionConflict = errors.New("survey was modified since it was loaded")
	// ErrInvalidOrder is returned when a bulk reorder is not a dense 0..N-1 permutation of the survey's questions.
	ErrInvalidOrder = errors.New("order updates must cover every question exactly once with orders 0..N-1")
	// ErrInvalidQuestion wraps question payload problems.
	ErrInvalidQuestion = errors.New("invalid question")
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the survey store: surveys, sections and questions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a survey repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSurvey inserts a survey.
func (r *Repository) CreateSurvey(ctx context.Context, s *models.Survey) error {
	const q = `INSERT INTO surveys (id, name, description, start_date, end_date)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.Name, s.Description, s.StartDate, s.EndDate).
		Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)
}

// ListSurveys returns survey summaries, newest first.
func (r *Repository) ListSurveys(ctx context.Context) ([]models.SurveySummary, error) {
	const q = `SELECT s.id, s.name, s.description, s.start_date, s.end_date,
			(SELECT COUNT(*) FROM survey_questions sq WHERE sq.survey_id = s.id), s.updated_at
		FROM surveys s ORDER BY s.updated_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SurveySummary{}
	for rows.Next() {
		var s models.SurveySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.StartDate, &s.EndDate, &s.QuestionCount, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetSurvey returns a survey with its sections and its questions sorted by order.
func (r *Repository) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	const q = `SELECT id, name, description, start_date, end_date, version, created_at, updated_at
		FROM surveys WHERE id = $1`
	var s models.Survey
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.StartDate, &s.EndDate, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("survey %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if s.Sections, err = listSections(ctx, r.pool, id); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	if s.Questions, err = listQuestions(ctx, r.pool, id); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &s, nil
}

// QuestionTypes returns the question type catalog.
func (r *Repository) QuestionTypes(ctx context.Context) ([]catalog.Info, error) {
	return catalog.All(), nil
}

// CreateQuestion inserts a question, creating its section if the label is new.
func (r *Repository) CreateQuestion(ctx context.Context, surveyID uuid.UUID, in models.QuestionInput) (*models.Question, error) {
	if err := validateQuestion(in.QuestionText, in.QuestionTypeID, in.Config); err != nil {
		return nil, err
	}
	if in.Order < 0 {
		return nil, fmt.Errorf("%w: order must not be negative", ErrInvalidQuestion)
	}
	var created *models.Question
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := surveyExists(ctx, tx, surveyID); err != nil {
			return err
		}
		section, err := ensureSection(ctx, tx, surveyID, in.Section)
		if err != nil {
			return err
		}
		// Orders stay dense: clamp to the end, then open a slot.
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM survey_questions WHERE survey_id = $1`, surveyID).Scan(&count); err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		if in.Order > count {
			in.Order = count
		}
		if _, err := tx.Exec(ctx, `UPDATE survey_questions SET sort_order = sort_order + 1 WHERE survey_id = $1 AND sort_order >= $2`,
			surveyID, in.Order); err != nil {
			return fmt.Errorf("open order slot: %w", err)
		}
		const q = `INSERT INTO survey_questions (id, survey_id, section_id, question_text, question_type_id, is_required, sort_order, config)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`
		qn := models.Question{
			SurveyID:       surveyID,
			QuestionText:   strings.TrimSpace(in.QuestionText),
			QuestionTypeID: in.QuestionTypeID,
			SectionID:      section.ID,
			Section:        section.Name,
			IsRequired:     in.IsRequired,
			Order:          in.Order,
			Config:         in.Config,
		}
		if err := tx.QueryRow(ctx, q, surveyID, section.ID, qn.QuestionText, qn.QuestionTypeID.ID(), qn.IsRequired, qn.Order, qn.Config).
			Scan(&qn.ID, &qn.CreatedAt, &qn.UpdatedAt); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		created = &qn
		return touchSurvey(ctx, tx, surveyID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateQuestion applies a partial update. Order is never changed here.
func (r *Repository) UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, patch models.QuestionPatch) (*models.Question, error) {
	var updated *models.Question
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := getQuestion(ctx, tx, surveyID, questionID, true)
		if err != nil {
			return err
		}
		if err := applyPatch(cur, patch); err != nil {
			return err
		}
		if err := validateQuestion(cur.QuestionText, cur.QuestionTypeID, cur.Config); err != nil {
			return err
		}
		if patch.Section != nil {
			section, err := ensureSection(ctx, tx, surveyID, *patch.Section)
			if err != nil {
				return err
			}
			cur.SectionID, cur.Section = section.ID, section.Name
		}
		const q = `UPDATE survey_questions
			SET question_text = $1, question_type_id = $2, section_id = $3, is_required = $4, config = $5, updated_at = NOW()
			WHERE id = $6 AND survey_id = $7
			RETURNING updated_at`
		if err := tx.QueryRow(ctx, q, cur.QuestionText, cur.QuestionTypeID.ID(), cur.SectionID, cur.IsRequired, cur.Config, questionID, surveyID).
			Scan(&cur.UpdatedAt); err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		updated = cur
		return touchSurvey(ctx, tx, surveyID)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteQuestion removes a question and closes the gap it leaves in the survey's order.
func (r *Repository) DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var order int
		err := tx.QueryRow(ctx, `DELETE FROM survey_questions WHERE id = $1 AND survey_id = $2 RETURNING sort_order`,
			questionID, surveyID).Scan(&order)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE survey_questions SET sort_order = sort_order - 1 WHERE survey_id = $1 AND sort_order > $2`,
			surveyID, order); err != nil {
			return fmt.Errorf("compact order: %w", err)
		}
		return touchSurvey(ctx, tx, surveyID)
	})
}

// BulkUpdateQuestions persists a full reordering in one transaction and returns the new survey version.
func (r *Repository) BulkUpdateQuestions(ctx context.Context, surveyID uuid.UUID, version int, updates []models.OrderUpdate) (int, error) {
	var next int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `UPDATE surveys SET version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2 RETURNING version`, surveyID, version).Scan(&next)
		if errors.Is(err, pgx.ErrNoRows) {
			if err := surveyExists(ctx, tx, surveyID); err != nil {
				return err
			}
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("bump version: %w", err)
		}

		ids, err := questionIDs(ctx, tx, surveyID)
		if err != nil {
			return err
		}
		if err := checkPermutation(ids, updates); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`UPDATE survey_questions SET sort_order = $1, updated_at = NOW() WHERE id = $2 AND survey_id = $3`,
				u.Order, u.ID, surveyID)
		}
		br := tx.SendBatch(ctx, batch)
		for range updates {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("update order: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// SectionOrder returns the ranked sections of a survey, lowest rank first.
func (r *Repository) SectionOrder(ctx context.Context, surveyID uuid.UUID) ([]models.SectionRank, error) {
	if err := surveyExists(ctx, r.pool, surveyID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT name, rank FROM survey_sections
		WHERE survey_id = $1 AND rank IS NOT NULL ORDER BY rank, name`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SectionRank{}
	for rows.Next() {
		var sr models.SectionRank
		if err := rows.Scan(&sr.Name, &sr.Order); err != nil {
			return nil, err
		}
		list = append(list, sr)
	}
	return list, rows.Err()
}

// UpdateSectionOrder replaces the section ranking as a unit. Names without a section are ignored.
func (r *Repository) UpdateSectionOrder(ctx context.Context, surveyID uuid.UUID, ranks []models.SectionRank) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := surveyExists(ctx, tx, surveyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE survey_sections SET rank = NULL WHERE survey_id = $1`, surveyID); err != nil {
			return fmt.Errorf("clear ranks: %w", err)
		}
		for _, sr := range ranks {
			if _, err := tx.Exec(ctx, `UPDATE survey_sections SET rank = $1 WHERE survey_id = $2 AND name = $3`,
				sr.Order, surveyID, sr.Name); err != nil {
				return fmt.Errorf("rank section %q: %w", sr.Name, err)
			}
		}
		return touchSurvey(ctx, tx, surveyID)
	})
}

// RenameSection renames a section. Renaming onto an existing name merges the two.
func (r *Repository) RenameSection(ctx context.Context, surveyID uuid.UUID, from, to string) error {
	to = normalizeSection(to)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		src, err := findSection(ctx, tx, surveyID, from)
		if err != nil {
			return err
		}
		if src.Name == to {
			return nil
		}
		dst, err := findSection(ctx, tx, surveyID, to)
		switch {
		case errors.Is(err, ErrNotFound):
			if _, err := tx.Exec(ctx, `UPDATE survey_sections SET name = $1 WHERE id = $2`, to, src.ID); err != nil {
				return fmt.Errorf("rename section: %w", err)
			}
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(ctx, `UPDATE survey_questions SET section_id = $1, updated_at = NOW() WHERE section_id = $2`, dst.ID, src.ID); err != nil {
				return fmt.Errorf("merge sections: %w", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM survey_sections WHERE id = $1`, src.ID); err != nil {
				return fmt.Errorf("drop merged section: %w", err)
			}
		}
		return touchSurvey(ctx, tx, surveyID)
	})
}

func listSections(ctx context.Context, db querier, surveyID uuid.UUID) ([]models.Section, error) {
	rows, err := db.Query(ctx, `SELECT id, survey_id, name, rank, created_at
		FROM survey_sections WHERE survey_id = $1 ORDER BY created_at, name`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Section{}
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.SurveyID, &s.Name, &s.Rank, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

const questionColumns = `q.id, q.survey_id, q.question_text, q.question_type_id, q.section_id, s.name,
	q.is_required, q.sort_order, q.config, q.created_at, q.updated_at`

func listQuestions(ctx context.Context, db querier, surveyID uuid.UUID) ([]models.Question, error) {
	rows, err := db.Query(ctx, `SELECT `+questionColumns+`
		FROM survey_questions q JOIN survey_sections s ON s.id = q.section_id
		WHERE q.survey_id = $1 ORDER BY q.sort_order`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

func getQuestion(ctx context.Context, db querier, surveyID, questionID uuid.UUID, forUpdate bool) (*models.Question, error) {
	q := `SELECT ` + questionColumns + `
		FROM survey_questions q JOIN survey_sections s ON s.id = q.section_id
		WHERE q.id = $1 AND q.survey_id = $2`
	if forUpdate {
		q += ` FOR UPDATE OF q`
	}
	qn, err := scanQuestion(db.QueryRow(ctx, q, questionID, surveyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	return qn, err
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var (
		q      models.Question
		typeID int
		raw    []byte
	)
	if err := row.Scan(&q.ID, &q.SurveyID, &q.QuestionText, &typeID, &q.SectionID, &q.Section,
		&q.IsRequired, &q.Order, &raw, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.QuestionTypeID = catalog.Type(typeID)
	if q.QuestionTypeID.Valid() {
		cfg, err := catalog.DecodeConfig(q.QuestionTypeID, raw)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		q.Config = cfg
	}
	return &q, nil
}

func questionIDs(ctx context.Context, db querier, surveyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx, `SELECT id FROM survey_questions WHERE survey_id = $1`, surveyID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func findSection(ctx context.Context, db querier, surveyID uuid.UUID, name string) (*models.Section, error) {
	var s models.Section
	err := db.QueryRow(ctx, `SELECT id, survey_id, name, rank, created_at FROM survey_sections WHERE survey_id = $1 AND name = $2`,
		surveyID, normalizeSection(name)).Scan(&s.ID, &s.SurveyID, &s.Name, &s.Rank, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("section %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ensureSection returns the survey's section with this label, creating it when missing.
func ensureSection(ctx context.Context, db querier, surveyID uuid.UUID, name string) (*models.Section, error) {
	name = normalizeSection(name)
	const q = `INSERT INTO survey_sections (id, survey_id, name) VALUES (gen_random_uuid(), $1, $2)
		ON CONFLICT (survey_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, survey_id, name, rank, created_at`
	var s models.Section
	if err := db.QueryRow(ctx, q, surveyID, name).Scan(&s.ID, &s.SurveyID, &s.Name, &s.Rank, &s.CreatedAt); err != nil {
		return nil, fmt.Errorf("ensure section %q: %w", name, err)
	}
	return &s, nil
}

func surveyExists(ctx context.Context, db querier, surveyID uuid.UUID) error {
	var one int
	err := db.QueryRow(ctx, `SELECT 1 FROM surveys WHERE id = $1`, surveyID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("survey %s: %w", surveyID, ErrNotFound)
	}
	return err
}

func touchSurvey(ctx context.Context, db querier, surveyID uuid.UUID) error {
	_, err := db.Exec(ctx, `UPDATE surveys SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), surveyID)
	return err
}

func normalizeSection(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.DefaultSection
	}
	return name
}

func validateQuestion(text string, t catalog.Type, cfg catalog.Config) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: question_text is required", ErrInvalidQuestion)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: question_type_id is required", ErrInvalidQuestion)
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidQuestion)
	}
	if cfg.Type() != t {
		return fmt.Errorf("%w: config is for %s, question is %s", ErrInvalidQuestion, cfg.Type(), t)
	}
	if err := catalog.Validate(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return nil
}

func applyPatch(q *models.Question, p models.QuestionPatch) error {
	if p.QuestionText != nil {
		q.QuestionText = strings.TrimSpace(*p.QuestionText)
	}
	if p.IsRequired != nil {
		q.IsRequired = *p.IsRequired
	}
	typeChanged := p.QuestionTypeID != nil && *p.QuestionTypeID != q.QuestionTypeID
	if p.QuestionTypeID != nil {
		q.QuestionTypeID = *p.QuestionTypeID
	}
	switch {
	case p.Config != nil:
		q.Config = p.Config
	case len(p.RawConfig) > 0:
		cfg, err := catalog.DecodeConfig(q.QuestionTypeID, p.RawConfig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
		}
		q.Config = cfg
	case typeChanged:
		cfg, err := catalog.DefaultConfig(q.QuestionTypeID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
		}
		q.Config = cfg
	}
	return nil
}

func checkPermutation(ids []uuid.UUID, updates []models.OrderUpdate) error {
	if len(ids) != len(updates) {
		return ErrInvalidOrder
	}
	known := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	orders := make([]int, 0, len(updates))
	for _, u := range updates {
		if !known[u.ID] {
			return ErrInvalidOrder
		}
		delete(known, u.ID)
		orders = append(orders, u.Order)
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i {
			return ErrInvalidOrder
		}
	}
	return nil
}
