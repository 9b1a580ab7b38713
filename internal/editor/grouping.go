package editor

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/aura-survey/backend/internal/models"
)

// Group is one sidebar section with its questions in order.
type Group struct {
	SectionID uuid.UUID         `json:"section_id"`
	Name      string            `json:"name"`
	Rank      *int              `json:"rank,omitempty"`
	Questions []models.Question `json:"questions"`
}

// QuestionKey identifies a sortable sidebar row.
type QuestionKey struct {
	SectionID  uuid.UUID `json:"section_id"`
	QuestionID uuid.UUID `json:"question_id"`
}

// GroupQuestions partitions questions by section label.
// Ranked sections come first by rank; unranked ones follow in order of first
// appearance. Questions inside a section keep their order.
func GroupQuestions(questions []models.Question, ranks map[string]int) []Group {
	sorted := sortedByOrder(questions)
	names := lo.Uniq(lo.Map(sorted, func(q models.Question, _ int) string { return sectionName(q) }))
	byName := lo.GroupBy(sorted, sectionName)

	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := ranks[names[i]]
		rj, jok := ranks[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return false
	})

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		qs := byName[name]
		g := Group{SectionID: qs[0].SectionID, Name: name, Questions: qs}
		if r, ok := ranks[name]; ok {
			g.Rank = lo.ToPtr(r)
		}
		groups = append(groups, g)
	}
	return groups
}

func sortedByOrder(questions []models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func sectionName(q models.Question) string {
	if q.Section == "" {
		return models.DefaultSection
	}
	return q.Section
}
