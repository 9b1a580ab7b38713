package editor

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/internal/reorder"
)

// DeleteQuestion removes a question once confirmed. If the panel shows it, the panel is cleared.
func (s *Session) DeleteQuestion(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	s.mu.Lock()
	found := s.indexOf(id) >= 0
	s.mu.Unlock()
	if !found {
		return ErrQuestionNotFound
	}
	if err := s.begin(ActionDelete); err != nil {
		return err
	}
	defer s.end(ActionDelete)

	if err := s.backend.DeleteQuestion(ctx, s.surveyID, id); err != nil {
		return s.failWrite("delete question", err, zap.String("question_id", id.String()))
	}

	s.mu.Lock()
	s.inlineErr = nil
	s.questions = lo.Reject(s.questions, func(q models.Question, _ int) bool { return q.ID == id })
	s.sortQuestions()
	reorder.Restamp(s.questions, func(q *models.Question, i int) { q.Order = i })
	if s.panel.questionID != nil && *s.panel.questionID == id {
		s.panel = panelState{}
	}
	s.mu.Unlock()

	s.refresh("question_deleted")
	return nil
}

// DragRequest is a finished pointer gesture on the question list.
type DragRequest struct {
	Active QuestionKey  `json:"active"`
	Over   *QuestionKey `json:"over"`
	DeltaX float64      `json:"delta_x"`
	DeltaY float64      `json:"delta_y"`
}

// DragResult tells what a gesture did.
type DragResult struct {
	Clicked bool `json:"clicked"`
	Moved   bool `json:"moved"`
}

// Drag resolves a gesture. Short travel selects the question. A drop inside the same
// section moves it there and persists the new order; drops on another section are ignored.
// If persisting fails the survey is reloaded from the store.
func (s *Session) Drag(ctx context.Context, req DragRequest) (DragResult, error) {
	if !s.sensor.IsDrag(req.DeltaX, req.DeltaY) {
		if err := s.Select(req.Active.QuestionID); err != nil {
			return DragResult{}, err
		}
		return DragResult{Clicked: true}, nil
	}
	if req.Over == nil || req.Over.SectionID != req.Active.SectionID {
		return DragResult{}, nil
	}
	if err := s.begin(ActionReorder); err != nil {
		return DragResult{}, err
	}
	defer s.end(ActionReorder)

	s.mu.Lock()
	next, moved := s.moveWithinSection(req.Active, *req.Over)
	if !moved {
		s.mu.Unlock()
		return DragResult{}, nil
	}
	s.questions = next
	version := s.version
	updates := lo.Map(next, func(q models.Question, _ int) models.OrderUpdate {
		return models.OrderUpdate{ID: q.ID, Order: q.Order}
	})
	s.mu.Unlock()

	newVersion, err := s.backend.BulkUpdateQuestions(ctx, s.surveyID, version, updates)
	if err != nil {
		werr := s.failWrite("reorder questions", err)
		if lerr := s.load(ctx); lerr != nil {
			s.logger.Error("reload after reorder failure", zap.Error(lerr))
		}
		s.mu.Lock()
		s.inlineErr = werr
		s.mu.Unlock()
		return DragResult{}, werr
	}

	s.mu.Lock()
	s.version = newVersion
	s.inlineErr = nil
	s.mu.Unlock()

	s.refresh("questions_reordered")
	return DragResult{Moved: true}, nil
}

// moveWithinSection returns a reordered copy of the collection. The section's order
// values are reassigned to its new sequence, then the whole survey is restamped 0..N-1.
// Callers hold mu.
func (s *Session) moveWithinSection(active, over QuestionKey) ([]models.Question, bool) {
	all := sortedByOrder(s.questions)
	var (
		members []int
		keys    []uuid.UUID
	)
	for i, q := range all {
		if q.SectionID == active.SectionID {
			members = append(members, i)
			keys = append(keys, q.ID)
		}
	}
	moved, ok := reorder.MoveKey(keys, active.QuestionID, &over.QuestionID)
	if !ok {
		return nil, false
	}

	byID := lo.SliceToMap(all, func(q models.Question) (uuid.UUID, models.Question) { return q.ID, q })
	slots := lo.Map(members, func(i int, _ int) int { return all[i].Order })
	for n, id := range moved {
		q := byID[id]
		q.Order = slots[n]
		all[members[n]] = q
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Order < all[j].Order })
	reorder.Restamp(all, func(q *models.Question, i int) { q.Order = i })
	return all, true
}
