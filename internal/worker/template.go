package worker

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/editor"
	"github.com/aura-survey/backend/internal/models"
)

// TemplateFormatVersion is bumped whenever the export document changes shape.
const TemplateFormatVersion = 1

// TemplateDocument is the JSON snapshot written for a template export.
type TemplateDocument struct {
	FormatVersion int               `json:"format_version"`
	ExportedAt    time.Time         `json:"exported_at"`
	Survey        TemplateSurvey    `json:"survey"`
	Sections      []TemplateSection `json:"sections"`
}

// TemplateSurvey is the survey header of an export.
type TemplateSurvey struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Version     int        `json:"version"`
}

// TemplateSection is one section in display order.
type TemplateSection struct {
	Name      string             `json:"name"`
	Rank      *int               `json:"rank,omitempty"`
	Questions []TemplateQuestion `json:"questions"`
}

// TemplateQuestion carries the question and its typed config.
type TemplateQuestion struct {
	ID         uuid.UUID      `json:"id"`
	Text       string         `json:"question_text"`
	Type       string         `json:"question_type"`
	TypeID     catalog.Type   `json:"question_type_id"`
	IsRequired bool           `json:"is_required"`
	Order      int            `json:"order"`
	Config     catalog.Config `json:"config"`
}

// BuildTemplate lays a survey out the way the editor sidebar shows it.
func BuildTemplate(s *models.Survey, now time.Time) TemplateDocument {
	ranked := lo.Filter(s.Sections, func(sec models.Section, _ int) bool { return sec.Rank != nil })
	ranks := lo.SliceToMap(ranked, func(sec models.Section) (string, int) { return sec.Name, *sec.Rank })

	sections := lo.Map(editor.GroupQuestions(s.Questions, ranks), func(g editor.Group, _ int) TemplateSection {
		return TemplateSection{
			Name: g.Name,
			Rank: g.Rank,
			Questions: lo.Map(g.Questions, func(q models.Question, _ int) TemplateQuestion {
				return TemplateQuestion{
					ID:         q.ID,
					Text:       q.QuestionText,
					Type:       q.QuestionTypeID.String(),
					TypeID:     q.QuestionTypeID,
					IsRequired: q.IsRequired,
					Order:      q.Order,
					Config:     q.Config,
				}
			}),
		}
	})

	return TemplateDocument{
		FormatVersion: TemplateFormatVersion,
		ExportedAt:    now.UTC(),
		Survey: TemplateSurvey{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			StartDate:   s.StartDate,
			EndDate:     s.EndDate,
			Version:     s.Version,
		},
		Sections: sections,
	}
}
