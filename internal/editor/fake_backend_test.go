package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

var errStore = errors.New("store unavailable")

// fakeBackend is an in-memory store that records calls.
type fakeBackend struct {
	mu        sync.Mutex
	survey    models.Survey
	sections  map[string]uuid.UUID
	ranks     []models.SectionRank
	calls     map[string]int
	failGet   bool
	failBulk  bool
	lastBulk  []models.OrderUpdate
	lastInput *models.QuestionInput
}

func newFakeBackend(questions ...models.Question) *fakeBackend {
	f := &fakeBackend{
		survey:   models.Survey{ID: uuid.New(), Name: "Annual survey", Version: 1},
		sections: map[string]uuid.UUID{},
		calls:    map[string]int{},
	}
	for _, q := range questions {
		q.SurveyID = f.survey.ID
		q.SectionID = f.sectionID(q.Section)
		f.survey.Questions = append(f.survey.Questions, q)
	}
	return f
}

func (f *fakeBackend) sectionID(name string) uuid.UUID {
	if id, ok := f.sections[name]; ok {
		return id
	}
	id := uuid.New()
	f.sections[name] = id
	return id
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if f.failGet {
		return nil, errStore
	}
	s := f.survey
	s.Questions = append([]models.Question(nil), f.survey.Questions...)
	return &s, nil
}

func (f *fakeBackend) QuestionTypes(ctx context.Context) ([]catalog.Info, error) {
	return catalog.All(), nil
}

func (f *fakeBackend) CreateQuestion(ctx context.Context, surveyID uuid.UUID, in models.QuestionInput) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	f.lastInput = &in
	q := models.Question{
		ID:             uuid.New(),
		SurveyID:       surveyID,
		QuestionText:   in.QuestionText,
		QuestionTypeID: in.QuestionTypeID,
		SectionID:      f.sectionID(in.Section),
		Section:        in.Section,
		IsRequired:     in.IsRequired,
		Order:          in.Order,
		Config:         in.Config,
	}
	f.survey.Questions = append(f.survey.Questions, q)
	return &q, nil
}

func (f *fakeBackend) UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, p models.QuestionPatch) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	for i := range f.survey.Questions {
		q := &f.survey.Questions[i]
		if q.ID != questionID {
			continue
		}
		if p.QuestionText != nil {
			q.QuestionText = *p.QuestionText
		}
		if p.QuestionTypeID != nil {
			q.QuestionTypeID = *p.QuestionTypeID
		}
		if p.Section != nil {
			q.Section = *p.Section
			q.SectionID = f.sectionID(*p.Section)
		}
		if p.IsRequired != nil {
			q.IsRequired = *p.IsRequired
		}
		if p.Config != nil {
			q.Config = p.Config
		}
		out := *q
		return &out, nil
	}
	return nil, errStore
}

func (f *fakeBackend) DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	kept := f.survey.Questions[:0]
	for _, q := range f.survey.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	f.survey.Questions = kept
	return nil
}

func (f *fakeBackend) BulkUpdateQuestions(ctx context.Context, surveyID uuid.UUID, version int, updates []models.OrderUpdate) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["bulk"]++
	f.lastBulk = updates
	if f.failBulk || version != f.survey.Version {
		return 0, errStore
	}
	for _, u := range updates {
		for i := range f.survey.Questions {
			if f.survey.Questions[i].ID == u.ID {
				f.survey.Questions[i].Order = u.Order
			}
		}
	}
	f.survey.Version++
	return f.survey.Version, nil
}

func (f *fakeBackend) SectionOrder(ctx context.Context, surveyID uuid.UUID) ([]models.SectionRank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SectionRank(nil), f.ranks...), nil
}

func (f *fakeBackend) UpdateSectionOrder(ctx context.Context, surveyID uuid.UUID, ranks []models.SectionRank) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["sections"]++
	f.ranks = ranks
	return nil
}

func (f *fakeBackend) RenameSection(ctx context.Context, surveyID uuid.UUID, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["rename"]++
	for i := range f.survey.Questions {
		if f.survey.Questions[i].Section == from {
			f.survey.Questions[i].Section = to
		}
	}
	return nil
}
