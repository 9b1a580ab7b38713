package models

import (
	"time"

	"github.com/google/uuid"
)

// Survey is a survey template with its questions and sections.
type Survey struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Version     int        `json:"version"`
	Questions   []Question `json:"questions"`
	Sections    []Section  `json:"sections"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SurveySummary is a survey row without its questions.
type SurveySummary struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	QuestionCount int        `json:"question_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Section groups questions. Rank is nil for sections that were never ordered.
type Section struct {
	ID        uuid.UUID `json:"id"`
	SurveyID  uuid.UUID `json:"survey_id"`
	Name      string    `json:"name"`
	Rank      *int      `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
}

// SectionRank is one entry of a persisted section ordering.
type SectionRank struct {
	Name  string `json:"name" binding:"required"`
	Order int    `json:"order"`
}
