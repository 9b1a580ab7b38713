package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option is one entry of an ordered {value,label} list (choices, items, matrix rows).
type Option struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label"`
}

// OptionList is an ordered list of options.
type OptionList []Option

// Config is the type-specific configuration of a question.
// Each catalog variant has exactly one implementation.
type Config interface {
	Type() Type
}

// ShortTextConfig configures a single-line text answer.
type ShortTextConfig struct {
	MaxLength   int    `json:"max_length" validate:"gt=0"`
	Placeholder string `json:"placeholder"`
}

// ParagraphConfig configures a multi-line text answer.
type ParagraphConfig struct {
	MaxLength   int    `json:"max_length" validate:"gt=0"`
	Placeholder string `json:"placeholder"`
}

// SingleChoiceConfig configures a radio group.
type SingleChoiceConfig struct {
	Options OptionList `json:"options" validate:"dive"`
}

// MultiSelectConfig configures a checkbox group.
type MultiSelectConfig struct {
	Options OptionList `json:"options" validate:"dive"`
}

// YesNoConfig configures a yes/no pair.
type YesNoConfig struct {
	YesLabel string `json:"yes_label" validate:"required"`
	NoLabel  string `json:"no_label" validate:"required"`
}

// Likert5Config configures the fixed 1-5 scale. ScaleLabels overrides individual labels.
type Likert5Config struct {
	ScaleLabels map[int]string `json:"scale_labels,omitempty"`
}

// Number types accepted by NumericConfig.
const (
	NumberInteger = "integer"
	NumberDecimal = "decimal"
)

// NumericConfig configures a bounded number input. Either bound may be unset.
type NumericConfig struct {
	NumberType string   `json:"number_type" validate:"oneof=integer decimal"`
	MinValue   *float64 `json:"min_value"`
	MaxValue   *float64 `json:"max_value"`
}

// PercentageConfig configures a per-item allocation that should sum to TotalPercentage.
type PercentageConfig struct {
	TotalPercentage float64    `json:"total_percentage" validate:"gt=0"`
	Items           OptionList `json:"items" validate:"dive"`
}

// FlexibleInputConfig configures per-item free text capture.
type FlexibleInputConfig struct {
	Items        OptionList `json:"items" validate:"dive"`
	Instructions string     `json:"instructions"`
	Placeholder  string     `json:"placeholder"`
}

// YearMatrixConfig configures a row x year grid of numeric cells. The year range is inclusive.
type YearMatrixConfig struct {
	StartYear int        `json:"start_year" validate:"gt=0"`
	EndYear   int        `json:"end_year" validate:"gtefield=StartYear"`
	Rows      OptionList `json:"rows" validate:"dive"`
}

func (*ShortTextConfig) Type() Type     { return ShortText }
func (*SingleChoiceConfig) Type() Type  { return SingleChoice }
func (*YesNoConfig) Type() Type         { return YesNo }
func (*Likert5Config) Type() Type       { return Likert5 }
func (*MultiSelectConfig) Type() Type   { return MultiSelect }
func (*ParagraphConfig) Type() Type     { return Paragraph }
func (*NumericConfig) Type() Type       { return Numeric }
func (*PercentageConfig) Type() Type    { return Percentage }
func (*FlexibleInputConfig) Type() Type { return FlexibleInput }
func (*YearMatrixConfig) Type() Type    { return YearMatrix }

// DefaultLikertLabels are used for any scale point without an override.
var DefaultLikertLabels = map[int]string{
	1: "None",
	2: "A little",
	3: "A moderate amount",
	4: "A lot",
	5: "A great deal",
}

// Label returns the label for scale point n (1..5).
func (c *Likert5Config) Label(n int) string {
	if l, ok := c.ScaleLabels[n]; ok && l != "" {
		return l
	}
	return DefaultLikertLabels[n]
}

// DefaultConfig returns a fresh config for t with every default applied.
func DefaultConfig(t Type) (Config, error) {
	switch t {
	case ShortText:
		return &ShortTextConfig{MaxLength: 255}, nil
	case SingleChoice:
		return &SingleChoiceConfig{Options: OptionList{}}, nil
	case YesNo:
		return &YesNoConfig{YesLabel: "Yes", NoLabel: "No"}, nil
	case Likert5:
		return &Likert5Config{}, nil
	case MultiSelect:
		return &MultiSelectConfig{Options: OptionList{}}, nil
	case Paragraph:
		return &ParagraphConfig{MaxLength: 2000}, nil
	case Numeric:
		return &NumericConfig{NumberType: NumberInteger}, nil
	case Percentage:
		return &PercentageConfig{TotalPercentage: 100, Items: OptionList{}}, nil
	case FlexibleInput:
		return &FlexibleInputConfig{Items: OptionList{}}, nil
	case YearMatrix:
		return &YearMatrixConfig{Rows: OptionList{}}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
}

// DecodeConfig decodes raw over the defaults of t. Empty or null input yields the defaults.
func DecodeConfig(t Type, raw json.RawMessage) (Config, error) {
	cfg, err := DefaultConfig(t)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", t, err)
	}
	return cfg, nil
}

// ItemList returns the editable ordered list of cfg and its field key, if it has one.
func ItemList(cfg Config) (*OptionList, string, bool) {
	switch c := cfg.(type) {
	case *SingleChoiceConfig:
		return &c.Options, "options", true
	case *MultiSelectConfig:
		return &c.Options, "options", true
	case *PercentageConfig:
		return &c.Items, "items", true
	case *FlexibleInputConfig:
		return &c.Items, "items", true
	case *YearMatrixConfig:
		return &c.Rows, "rows", true
	}
	return nil, "", false
}

// Years returns the inclusive year range of a matrix config.
func (c *YearMatrixConfig) Years() []int {
	if c.EndYear < c.StartYear {
		return nil
	}
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Contains reports whether value is one of the list's option values.
func (l OptionList) Contains(value string) bool {
	for _, o := range l {
		if o.Value == value {
			return true
		}
	}
	return false
}

// BlankAnswer is the value a respondent is considered to have given for an untouched question.
func BlankAnswer(t Type) any {
	switch t {
	case ShortText, Paragraph, SingleChoice, YesNo:
		return ""
	case Likert5:
		return 0
	case MultiSelect:
		return []string{}
	case Numeric:
		return nil
	case Percentage:
		return map[string]float64{}
	case FlexibleInput:
		return map[string]string{}
	case YearMatrix:
		return map[string]map[string]float64{}
	}
	return nil
}
