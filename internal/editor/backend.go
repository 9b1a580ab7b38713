package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

// Backend is the survey store the editor reads from and writes through to.
type Backend interface {
	GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	QuestionTypes(ctx context.Context) ([]catalog.Info, error)
	CreateQuestion(ctx context.Context, surveyID uuid.UUID, in models.QuestionInput) (*models.Question, error)
	UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, patch models.QuestionPatch) (*models.Question, error)
	DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error
	BulkUpdateQuestions(ctx context.Context, surveyID uuid.UUID, version int, updates []models.OrderUpdate) (int, error)
	SectionOrder(ctx context.Context, surveyID uuid.UUID) ([]models.SectionRank, error)
	UpdateSectionOrder(ctx context.Context, surveyID uuid.UUID, ranks []models.SectionRank) error
	RenameSection(ctx context.Context, surveyID uuid.UUID, from, to string) error
}

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already in progress")
	// ErrNotLoaded is returned for editing actions while the survey failed to load.
	ErrNotLoaded = errors.New("survey is not loaded")
	// ErrConfirmationRequired is returned when a delete was not confirmed.
	ErrConfirmationRequired = errors.New("delete must be confirmed")
	// ErrQuestionNotFound is returned when a question id is not in the loaded survey.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoDraft is returned when a draft action runs while the panel is not adding or editing.
	ErrNoDraft = errors.New("panel has no draft")
	// ErrDialogClosed is returned when the section dialog is used before it is opened.
	ErrDialogClosed = errors.New("section dialog is not open")
)

// ValidationError is a local input problem. No store call was made.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// BackendError wraps a failed store call.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
