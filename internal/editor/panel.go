package editor

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

// PanelMode is the state of the question editor panel.
type PanelMode string

const (
	PanelEmpty   PanelMode = "empty"
	PanelViewing PanelMode = "view"
	PanelAdd     PanelMode = "add"
	PanelEdit    PanelMode = "edit"
)

// Draft is the form being edited in add or edit mode.
type Draft struct {
	QuestionText   string         `json:"question_text"`
	QuestionTypeID catalog.Type   `json:"question_type_id"`
	Section        string         `json:"section"`
	IsRequired     bool           `json:"is_required"`
	Config         catalog.Config `json:"config"`
}

// DraftPatch changes draft fields; nil fields are left as they are.
type DraftPatch struct {
	QuestionText   *string       `json:"question_text"`
	QuestionTypeID *catalog.Type `json:"question_type_id"`
	Section        *string       `json:"section"`
	IsRequired     *bool         `json:"is_required"`
}

// PanelView is the rendered panel.
type PanelView struct {
	Mode       PanelMode        `json:"mode"`
	QuestionID *uuid.UUID       `json:"question_id,omitempty"`
	Question   *models.Question `json:"question,omitempty"`
	Draft      *Draft           `json:"draft,omitempty"`
	Fields     []catalog.Field  `json:"fields,omitempty"`
}

type panelState struct {
	mode       PanelMode
	questionID *uuid.UUID
	draft      *Draft
}

func (s *Session) panelView() PanelView {
	p := s.panel
	v := PanelView{Mode: p.mode, QuestionID: p.questionID}
	if v.Mode == "" {
		v.Mode = PanelEmpty
	}
	if p.questionID != nil {
		if i := s.indexOf(*p.questionID); i >= 0 {
			q := s.questions[i]
			v.Question = &q
		}
	}
	if p.draft != nil {
		d := *p.draft
		v.Draft = &d
		if d.QuestionTypeID.Valid() {
			v.Fields, _ = catalog.Fields(d.QuestionTypeID)
		}
	}
	return v
}

// Select shows a question in view mode.
func (s *Session) Select(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if s.indexOf(id) < 0 {
		return ErrQuestionNotFound
	}
	s.panel = panelState{mode: PanelViewing, questionID: lo.ToPtr(id)}
	return nil
}

// StartAdd opens a blank draft.
func (s *Session) StartAdd() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.panel = panelState{mode: PanelAdd, draft: &Draft{Section: models.DefaultSection}}
	return nil
}

// StartEdit opens a draft copied from an existing question.
func (s *Session) StartEdit(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return ErrQuestionNotFound
	}
	q := s.questions[i]
	d := &Draft{
		QuestionText:   q.QuestionText,
		QuestionTypeID: q.QuestionTypeID,
		Section:        sectionName(q),
		IsRequired:     q.IsRequired,
		Config:         q.Config,
	}
	if d.Config == nil && d.QuestionTypeID.Valid() {
		d.Config, _ = catalog.DefaultConfig(d.QuestionTypeID)
	}
	s.panel = panelState{mode: PanelEdit, questionID: lo.ToPtr(id), draft: d}
	return nil
}

// UpdateDraft changes draft fields. A type change replaces the config with the new type's default.
func (s *Session) UpdateDraft(p DraftPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.panel.draft
	if d == nil {
		return ErrNoDraft
	}
	if p.QuestionTypeID != nil && *p.QuestionTypeID != d.QuestionTypeID {
		cfg, err := catalog.DefaultConfig(*p.QuestionTypeID)
		if err != nil {
			return &ValidationError{Field: "question_type_id", Message: err.Error()}
		}
		d.QuestionTypeID = *p.QuestionTypeID
		d.Config = cfg
	}
	if p.QuestionText != nil {
		d.QuestionText = *p.QuestionText
	}
	if p.Section != nil {
		d.Section = *p.Section
	}
	if p.IsRequired != nil {
		d.IsRequired = *p.IsRequired
	}
	return nil
}

// EditDraftConfig applies a structural change to the draft config.
func (s *Session) EditDraftConfig(e catalog.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.panel.draft
	if d == nil {
		return ErrNoDraft
	}
	if !d.QuestionTypeID.Valid() || d.Config == nil {
		return &ValidationError{Field: "question_type_id", Message: "choose a question type first"}
	}
	cfg, err := catalog.Apply(d.Config, e)
	if err != nil {
		return &ValidationError{Field: "config", Message: err.Error()}
	}
	d.Config = cfg
	return nil
}

// DraftFields returns the configuration sub-form for the draft's type.
func (s *Session) DraftFields() ([]catalog.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.panel.draft
	if d == nil {
		return nil, ErrNoDraft
	}
	if !d.QuestionTypeID.Valid() {
		return []catalog.Field{}, nil
	}
	return catalog.Fields(d.QuestionTypeID)
}

// Cancel leaves add or edit mode. Edit returns to viewing the question.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.panel.mode {
	case PanelAdd:
		s.panel = panelState{}
	case PanelEdit:
		s.panel = panelState{mode: PanelViewing, questionID: s.panel.questionID}
	}
}

// Save validates the draft and writes it through to the store.
// Validation failures return a ValidationError without calling the store.
// A successful save clears the panel and reloads the collection.
func (s *Session) Save(ctx context.Context) (*models.Question, error) {
	s.mu.Lock()
	mode, questionID := s.panel.mode, s.panel.questionID
	var draft Draft
	if s.panel.draft != nil {
		draft = *s.panel.draft
	}
	order := len(s.questions)
	s.mu.Unlock()

	if mode != PanelAdd && mode != PanelEdit {
		return nil, ErrNoDraft
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if err := s.begin(ActionSave); err != nil {
		return nil, err
	}
	defer s.end(ActionSave)

	text := strings.TrimSpace(draft.QuestionText)
	section := strings.TrimSpace(draft.Section)
	if section == "" {
		section = models.DefaultSection
	}

	var (
		saved *models.Question
		err   error
	)
	if mode == PanelAdd {
		saved, err = s.backend.CreateQuestion(ctx, s.surveyID, models.QuestionInput{
			QuestionText:   text,
			QuestionTypeID: draft.QuestionTypeID,
			Section:        section,
			IsRequired:     draft.IsRequired,
			Order:          order,
			Config:         draft.Config,
		})
		if err != nil {
			return nil, s.failWrite("create question", err)
		}
	} else {
		saved, err = s.backend.UpdateQuestion(ctx, s.surveyID, *questionID, models.QuestionPatch{
			QuestionText:   &text,
			QuestionTypeID: lo.ToPtr(draft.QuestionTypeID),
			Section:        &section,
			IsRequired:     lo.ToPtr(draft.IsRequired),
			Config:         draft.Config,
		})
		if err != nil {
			return nil, s.failWrite("update question", err, zap.String("question_id", questionID.String()))
		}
	}

	s.mu.Lock()
	s.inlineErr = nil
	if i := s.indexOf(saved.ID); i >= 0 {
		s.questions[i] = *saved
	} else {
		s.questions = append(s.questions, *saved)
	}
	s.panel = panelState{}
	s.mu.Unlock()

	// Reread so store-assigned ids and orders are current.
	if lerr := s.load(ctx); lerr != nil {
		s.logger.Error("reload after save", zap.Error(lerr))
	}

	if mode == PanelAdd {
		s.refresh("question_created")
	} else {
		s.refresh("question_updated")
	}
	return saved, nil
}

func validateDraft(d Draft) error {
	if strings.TrimSpace(d.QuestionText) == "" {
		return &ValidationError{Field: "question_text", Message: "question text is required"}
	}
	if !d.QuestionTypeID.Valid() {
		return &ValidationError{Field: "question_type_id", Message: "question type is required"}
	}
	if d.Config == nil {
		return &ValidationError{Field: "config", Message: "config is required"}
	}
	if err := catalog.Validate(d.Config); err != nil {
		return &ValidationError{Field: "config", Message: err.Error()}
	}
	return nil
}

// SuggestSections returns section labels in use that start with prefix, ignoring case,
// in sidebar order.
func (s *Session) SuggestSections(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	names := lo.Map(GroupQuestions(s.questions, s.ranks), func(g Group, _ int) string { return g.Name })
	return lo.Filter(names, func(n string, _ int) bool {
		return strings.HasPrefix(strings.ToLower(n), prefix)
	})
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// sortQuestions orders the collection by order. Callers hold mu.
func (s *Session) sortQuestions() {
	sort.SliceStable(s.questions, func(i, j int) bool { return s.questions[i].Order < s.questions[j].Order })
}
