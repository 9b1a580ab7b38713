package editor

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/internal/reorder"
)

// Busy action names.
const (
	ActionLoad     = "load"
	ActionSave     = "save"
	ActionDelete   = "delete"
	ActionReorder  = "reorder"
	ActionSections = "sections"
)

// RefreshFunc is called after every successful structural change.
type RefreshFunc func(surveyID uuid.UUID, reason string)

// Options configures a Session.
type Options struct {
	Sensor    reorder.Sensor
	OnRefresh RefreshFunc
	Logger    *zap.Logger
}

// Session is the editing state of one mounted survey.
// All editing components share its single in-memory question collection.
type Session struct {
	mu        sync.Mutex
	surveyID  uuid.UUID
	backend   Backend
	sensor    reorder.Sensor
	onRefresh RefreshFunc
	logger    *zap.Logger

	loaded    bool
	name      string
	version   int
	types     []catalog.Info
	questions []models.Question
	ranks     map[string]int

	panel  panelState
	dialog *dialogState

	busy      map[string]bool
	loadErr   error
	inlineErr error
}

// NewSession creates an unloaded session. Call Load before editing.
func NewSession(surveyID uuid.UUID, backend Backend, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sensor.ActivationDistance <= 0 {
		opts.Sensor = reorder.NewSensor(0)
	}
	return &Session{
		surveyID:  surveyID,
		backend:   backend,
		sensor:    opts.Sensor,
		onRefresh: opts.OnRefresh,
		logger:    opts.Logger.With(zap.String("survey_id", surveyID.String())),
		ranks:     map[string]int{},
		busy:      map[string]bool{},
	}
}

// SurveyID returns the id of the mounted survey.
func (s *Session) SurveyID() uuid.UUID { return s.surveyID }

// Load fetches the survey, the type catalog and the section order.
// A failure is kept as the page-level error until the next successful load.
func (s *Session) Load(ctx context.Context) error {
	if err := s.begin(ActionLoad); err != nil {
		return err
	}
	defer s.end(ActionLoad)
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	survey, err := s.backend.GetSurvey(ctx, s.surveyID)
	if err != nil {
		return s.setLoadErr(&BackendError{Op: "load survey", Err: err})
	}
	types, err := s.backend.QuestionTypes(ctx)
	if err != nil {
		return s.setLoadErr(&BackendError{Op: "load question types", Err: err})
	}
	order, err := s.backend.SectionOrder(ctx, s.surveyID)
	if err != nil {
		return s.setLoadErr(&BackendError{Op: "load section order", Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.loadErr = nil
	s.inlineErr = nil
	s.name = survey.Name
	s.version = survey.Version
	s.types = types
	s.questions = sortedByOrder(survey.Questions)
	s.ranks = make(map[string]int, len(order))
	for _, r := range order {
		s.ranks[r.Name] = r.Order
	}
	s.dialog = nil
	if id := s.panel.questionID; id != nil && s.indexOf(*id) < 0 {
		s.panel = panelState{}
	}
	return nil
}

func (s *Session) setLoadErr(err error) error {
	s.logger.Error("survey load failed", zap.Error(err))
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
	return err
}

// View is the rendered state of the editor page.
type View struct {
	SurveyID      uuid.UUID      `json:"survey_id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	Loaded        bool           `json:"loaded"`
	Sections      []Group        `json:"sections"`
	QuestionTypes []catalog.Info `json:"question_types"`
	Panel         PanelView      `json:"panel"`
	Dialog        *DialogView    `json:"section_dialog,omitempty"`
	Busy          []string       `json:"busy"`
	LoadError     string         `json:"load_error,omitempty"`
	InlineError   string         `json:"inline_error,omitempty"`
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		SurveyID:      s.surveyID,
		Name:          s.name,
		Version:       s.version,
		Loaded:        s.loaded,
		Sections:      GroupQuestions(s.questions, s.ranks),
		QuestionTypes: s.types,
		Panel:         s.panelView(),
		Busy:          []string{},
	}
	if s.dialog != nil {
		v.Dialog = s.dialog.view()
	}
	for action, on := range s.busy {
		if on {
			v.Busy = append(v.Busy, action)
		}
	}
	sort.Strings(v.Busy)
	if s.loadErr != nil {
		v.LoadError = s.loadErr.Error()
	}
	if s.inlineErr != nil {
		v.InlineError = s.inlineErr.Error()
	}
	return v
}

// Questions returns a copy of the collection in order.
func (s *Session) Questions() []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedByOrder(s.questions)
}

// Groups returns the sidebar grouping of the collection.
func (s *Session) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GroupQuestions(s.questions, s.ranks)
}

// Name returns the survey name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// begin marks action as in flight. Editing actions other than load need a loaded survey.
func (s *Session) begin(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[action] {
		return ErrBusy
	}
	if action != ActionLoad && (!s.loaded || s.loadErr != nil) {
		return ErrNotLoaded
	}
	s.busy[action] = true
	return nil
}

func (s *Session) end(action string) {
	s.mu.Lock()
	delete(s.busy, action)
	s.mu.Unlock()
}

// Ready returns the page-level load error, or ErrNotLoaded while the first
// load has not finished. It returns nil once the collection can be used.
func (s *Session) Ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	return s.ready()
}

// ready reports whether the survey can be edited. Callers hold mu.
func (s *Session) ready() error {
	if !s.loaded || s.loadErr != nil {
		return ErrNotLoaded
	}
	return nil
}

// failWrite records a failed store write as the inline error.
func (s *Session) failWrite(op string, err error, fields ...zap.Field) error {
	berr := &BackendError{Op: op, Err: err}
	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	s.mu.Lock()
	s.inlineErr = berr
	s.mu.Unlock()
	return berr
}

func (s *Session) refresh(reason string) {
	if s.onRefresh != nil {
		s.onRefresh(s.surveyID, reason)
	}
}

// indexOf returns the collection index of a question or -1. Callers hold mu.
func (s *Session) indexOf(id uuid.UUID) int {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return i
		}
	}
	return -1
}
