package editor

import (
	"context"

	"github.com/samber/lo"

	"github.com/aura-survey/backend/internal/models"
	"github.com/aura-survey/backend/internal/reorder"
)

// SectionEntry is one row of the section order dialog.
type SectionEntry struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// DialogView is the rendered section order dialog.
type DialogView struct {
	Entries []SectionEntry `json:"entries"`
	Dirty   bool           `json:"dirty"`
}

type dialogState struct {
	entries []SectionEntry
	dirty   bool
}

func (d *dialogState) view() *DialogView {
	return &DialogView{Entries: append([]SectionEntry(nil), d.entries...), Dirty: d.dirty}
}

// OpenSectionDialog lists the sections in display order.
func (s *Session) OpenSectionDialog() (*DialogView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries := lo.Map(GroupQuestions(s.questions, s.ranks), func(g Group, _ int) SectionEntry {
		return SectionEntry{Name: g.Name, QuestionCount: len(g.Questions)}
	})
	s.dialog = &dialogState{entries: entries}
	return s.dialog.view(), nil
}

// MoveSection moves a section within the open dialog. Question orders are not touched.
func (s *Session) MoveSection(active string, over *string) (*DialogView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == nil {
		return nil, ErrDialogClosed
	}
	names := lo.Map(s.dialog.entries, func(e SectionEntry, _ int) string { return e.Name })
	moved, ok := reorder.MoveKey(names, active, over)
	if ok {
		byName := lo.KeyBy(s.dialog.entries, func(e SectionEntry) string { return e.Name })
		s.dialog.entries = lo.Map(moved, func(n string, _ int) SectionEntry { return byName[n] })
		s.dialog.dirty = true
	}
	return s.dialog.view(), nil
}

// CloseSectionDialog discards the dialog without saving.
func (s *Session) CloseSectionDialog() {
	s.mu.Lock()
	s.dialog = nil
	s.mu.Unlock()
}

// SaveSectionOrder persists the dialog order as ranks 0..N-1 and closes the dialog.
// On failure the dialog stays open with an inline error.
func (s *Session) SaveSectionOrder(ctx context.Context) ([]models.SectionRank, error) {
	s.mu.Lock()
	if s.dialog == nil {
		s.mu.Unlock()
		return nil, ErrDialogClosed
	}
	ranks := lo.Map(s.dialog.entries, func(e SectionEntry, i int) models.SectionRank {
		return models.SectionRank{Name: e.Name, Order: i}
	})
	s.mu.Unlock()

	if err := s.begin(ActionSections); err != nil {
		return nil, err
	}
	defer s.end(ActionSections)

	if err := s.backend.UpdateSectionOrder(ctx, s.surveyID, ranks); err != nil {
		return nil, s.failWrite("update section order", err)
	}

	s.mu.Lock()
	s.inlineErr = nil
	s.ranks = lo.SliceToMap(ranks, func(r models.SectionRank) (string, int) { return r.Name, r.Order })
	s.dialog = nil
	s.mu.Unlock()

	s.refresh("sections_reordered")
	return ranks, nil
}
