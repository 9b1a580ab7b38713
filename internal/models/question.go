package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/catalog"
)

// DefaultSection is the label used when a question has no section.
const DefaultSection = "General"

// Question is one typed question of a survey.
// Order is unique and dense across the whole survey, not per section.
type Question struct {
	ID             uuid.UUID      `json:"id"`
	SurveyID       uuid.UUID      `json:"survey_id"`
	QuestionText   string         `json:"question_text"`
	QuestionTypeID catalog.Type   `json:"question_type_id"`
	SectionID      uuid.UUID      `json:"section_id"`
	Section        string         `json:"section"`
	IsRequired     bool           `json:"is_required"`
	Order          int            `json:"order"`
	Config         catalog.Config `json:"config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// UnmarshalJSON decodes config according to question_type_id.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var aux struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = Question(aux.plain)
	cfg, err := decodeConfig(q.QuestionTypeID, aux.Config)
	if err != nil {
		return err
	}
	q.Config = cfg
	return nil
}

// QuestionInput is the payload for creating a question.
type QuestionInput struct {
	QuestionText   string         `json:"question_text"`
	QuestionTypeID catalog.Type   `json:"question_type_id"`
	Section        string         `json:"section"`
	IsRequired     bool           `json:"is_required"`
	Order          int            `json:"order"`
	Config         catalog.Config `json:"config"`
}

// UnmarshalJSON decodes config according to question_type_id.
func (in *QuestionInput) UnmarshalJSON(data []byte) error {
	type plain QuestionInput
	var aux struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = QuestionInput(aux.plain)
	cfg, err := decodeConfig(in.QuestionTypeID, aux.Config)
	if err != nil {
		return err
	}
	in.Config = cfg
	return nil
}

// QuestionPatch is a partial update; nil fields are left unchanged.
// A type change without a config resets the config to the new type's defaults.
type QuestionPatch struct {
	QuestionText   *string         `json:"question_text,omitempty"`
	QuestionTypeID *catalog.Type   `json:"question_type_id,omitempty"`
	Section        *string         `json:"section,omitempty"`
	IsRequired     *bool           `json:"is_required,omitempty"`
	Config         catalog.Config  `json:"config,omitempty"`
	RawConfig      json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps config raw until the effective type is known.
func (p *QuestionPatch) UnmarshalJSON(data []byte) error {
	type plain QuestionPatch
	var aux struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = QuestionPatch(aux.plain)
	p.RawConfig = aux.Config
	if p.QuestionTypeID != nil && len(aux.Config) > 0 {
		cfg, err := catalog.DecodeConfig(*p.QuestionTypeID, aux.Config)
		if err != nil {
			return err
		}
		p.Config = cfg
	}
	return nil
}

// OrderUpdate assigns a new order to one question.
type OrderUpdate struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Order int       `json:"order"`
}

// decodeConfig tolerates types unknown to this build so records can still be listed.
func decodeConfig(t catalog.Type, raw json.RawMessage) (catalog.Config, error) {
	if !t.Valid() {
		return nil, nil
	}
	return catalog.DecodeConfig(t, raw)
}
