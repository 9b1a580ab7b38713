package preview

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/aura-survey/backend/internal/models"
)

// Mode is the preview screen.
type Mode string

const (
	ModeOverview Mode = "overview"
	ModeFlow     Mode = "flow"
)

var (
	// ErrUnknownSection is returned when entering a section that is not in the preview.
	ErrUnknownSection = errors.New("unknown section")
	// ErrNotInFlow is returned for navigation while the overview is shown.
	ErrNotInFlow = errors.New("no section is being previewed")
	// ErrUnknownQuestion is returned when capturing an answer for a question not in the preview.
	ErrUnknownQuestion = errors.New("unknown question")
)

// Section is a named, ordered group of questions to preview.
type Section struct {
	Name      string            `json:"name"`
	Questions []models.Question `json:"questions"`
}

// Stats summarises the previewed survey. One minute is estimated per question.
type Stats struct {
	SectionCount     int `json:"section_count"`
	QuestionCount    int `json:"question_count"`
	EstimatedMinutes int `json:"estimated_minutes"`
}

// SectionCard is one overview card.
type SectionCard struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
	RequiredCount int    `json:"required_count"`
}

// FlowView is the one-question-at-a-time screen.
type FlowView struct {
	Section   string          `json:"section"`
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	Progress  int             `json:"progress"`
	NextLabel string          `json:"next_label"`
	CanGoBack bool            `json:"can_go_back"`
	Question  models.Question `json:"question"`
	Widget    Widget          `json:"widget"`
	Answer    any             `json:"answer"`
}

// View is the rendered preview.
type View struct {
	ID       uuid.UUID     `json:"id"`
	SurveyID uuid.UUID     `json:"survey_id"`
	Title    string        `json:"title"`
	Mode     Mode          `json:"mode"`
	Stats    Stats         `json:"stats"`
	Sections []SectionCard `json:"sections"`
	Flow     *FlowView     `json:"flow,omitempty"`
}

// Engine walks a respondent through a survey without persisting anything.
type Engine struct {
	mu         sync.Mutex
	id         uuid.UUID
	surveyID   uuid.UUID
	title      string
	sections   []Section
	mode       Mode
	section    int
	cursor     int
	responses  map[uuid.UUID]any
	lastActive time.Time
	now        func() time.Time
}

// NewEngine starts a preview on the overview screen. Sections without questions are dropped.
func NewEngine(surveyID uuid.UUID, title string, sections []Section) *Engine {
	e := &Engine{
		id:        uuid.New(),
		surveyID:  surveyID,
		title:     title,
		sections:  lo.Filter(sections, func(s Section, _ int) bool { return len(s.Questions) > 0 }),
		mode:      ModeOverview,
		responses: map[uuid.UUID]any{},
		now:       time.Now,
	}
	e.lastActive = e.now()
	return e
}

// ID returns the preview id.
func (e *Engine) ID() uuid.UUID { return e.id }

// Stats returns the survey statistics.
func (e *Engine) Stats() Stats {
	count := lo.SumBy(e.sections, func(s Section) int { return len(s.Questions) })
	return Stats{SectionCount: len(e.sections), QuestionCount: count, EstimatedMinutes: count}
}

// Progress is the percentage shown when question index of total is on screen.
func Progress(index, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(index+1) / float64(total)))
}

// View renders the current screen.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view()
}

func (e *Engine) view() View {
	v := View{
		ID:       e.id,
		SurveyID: e.surveyID,
		Title:    e.title,
		Mode:     e.mode,
		Stats:    e.Stats(),
		Sections: lo.Map(e.sections, func(s Section, _ int) SectionCard {
			return SectionCard{
				Name:          s.Name,
				QuestionCount: len(s.Questions),
				RequiredCount: lo.CountBy(s.Questions, func(q models.Question) bool { return q.IsRequired }),
			}
		}),
	}
	if e.mode != ModeFlow {
		return v
	}
	s := e.sections[e.section]
	q := s.Questions[e.cursor]
	answer, ok := e.responses[q.ID]
	if !ok {
		answer = blankAnswer(q)
	}
	next := "Next"
	if e.cursor == len(s.Questions)-1 {
		next = "Finish"
	}
	v.Flow = &FlowView{
		Section:   s.Name,
		Index:     e.cursor,
		Total:     len(s.Questions),
		Progress:  Progress(e.cursor, len(s.Questions)),
		NextLabel: next,
		CanGoBack: e.cursor > 0,
		Question:  q,
		Widget:    RenderWidget(q, answer),
		Answer:    answer,
	}
	return v
}

// EnterSection opens a section at its first question.
func (e *Engine) EnterSection(name string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	_, i, ok := lo.FindIndexOf(e.sections, func(s Section) bool { return s.Name == name })
	if !ok {
		return e.view(), ErrUnknownSection
	}
	e.mode, e.section, e.cursor = ModeFlow, i, 0
	return e.view(), nil
}

// Next advances; past the last question it finishes and returns to the overview.
func (e *Engine) Next() (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	if e.mode != ModeFlow {
		return e.view(), ErrNotInFlow
	}
	if e.cursor < len(e.sections[e.section].Questions)-1 {
		e.cursor++
	} else {
		e.exit()
	}
	return e.view(), nil
}

// Previous goes back one question. It does nothing on the first question.
func (e *Engine) Previous() (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	if e.mode != ModeFlow {
		return e.view(), ErrNotInFlow
	}
	if e.cursor > 0 {
		e.cursor--
	}
	return e.view(), nil
}

// SaveAndExit returns to the overview. Captured answers stay for the life of the preview.
func (e *Engine) SaveAndExit() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	e.exit()
	return e.view()
}

func (e *Engine) exit() {
	e.mode, e.section, e.cursor = ModeOverview, 0, 0
}

// Capture validates and stores an answer. A rejected value leaves the responses untouched.
func (e *Engine) Capture(questionID uuid.UUID, raw json.RawMessage) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	q, ok := e.question(questionID)
	if !ok {
		return e.view(), ErrUnknownQuestion
	}
	value, err := Capture(q, raw)
	if err != nil {
		return e.view(), err
	}
	e.responses[questionID] = value
	return e.view(), nil
}

// Responses returns a copy of the captured answers.
func (e *Engine) Responses() map[uuid.UUID]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo.Assign(e.responses)
}

// IdleSince reports when the preview was last used.
func (e *Engine) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

func (e *Engine) touch() {
	e.lastActive = e.now()
}

func (e *Engine) question(id uuid.UUID) (models.Question, bool) {
	for _, s := range e.sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return models.Question{}, false
}
