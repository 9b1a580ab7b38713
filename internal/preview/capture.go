package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

// Widget kinds.
const (
	WidgetText        = "text"
	WidgetTextarea    = "textarea"
	WidgetRadio       = "radio"
	WidgetYesNo       = "yes_no"
	WidgetLikert      = "likert"
	WidgetCheckboxes  = "checkboxes"
	WidgetNumber      = "number"
	WidgetPercentage  = "percentage"
	WidgetFlexible    = "flexible"
	WidgetYearMatrix  = "year_matrix"
	WidgetUnsupported = "unsupported"
)

// UnsupportedMessage is shown in place of a question whose type this build cannot render.
const UnsupportedMessage = "Question type not yet implemented"

var (
	// ErrInvalidAnswer is returned when a captured value does not fit the question.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrUnsupportedType is returned when capturing for a type that has no widget.
	ErrUnsupportedType = errors.New("question type not supported")
)

// Choice is one selectable value of a widget.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Widget describes how a question is rendered for capture.
type Widget struct {
	Kind         string           `json:"kind"`
	Placeholder  string           `json:"placeholder,omitempty"`
	MaxLength    int              `json:"max_length,omitempty"`
	Choices      []Choice         `json:"choices,omitempty"`
	Min          *float64         `json:"min,omitempty"`
	Max          *float64         `json:"max,omitempty"`
	Step         string           `json:"step,omitempty"`
	Items        []catalog.Option `json:"items,omitempty"`
	Total        float64          `json:"total,omitempty"`
	RunningTotal *float64         `json:"running_total,omitempty"`
	Instructions string           `json:"instructions,omitempty"`
	Years        []int            `json:"years,omitempty"`
	Rows         []catalog.Option `json:"rows,omitempty"`
	Message      string           `json:"message,omitempty"`
}

func optionChoices(l catalog.OptionList) []Choice {
	return lo.Map(l, func(o catalog.Option, _ int) Choice {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		return Choice{Value: o.Value, Label: label}
	})
}

func blankAnswer(q models.Question) any {
	if !supported(q) {
		return nil
	}
	return catalog.BlankAnswer(q.QuestionTypeID)
}

func supported(q models.Question) bool {
	return q.QuestionTypeID.Valid() && q.Config != nil && q.Config.Type() == q.QuestionTypeID
}

// RenderWidget returns the capture widget for q given its current answer.
func RenderWidget(q models.Question, answer any) Widget {
	if !supported(q) {
		return Widget{Kind: WidgetUnsupported, Message: UnsupportedMessage}
	}
	switch cfg := q.Config.(type) {
	case *catalog.ShortTextConfig:
		return Widget{Kind: WidgetText, Placeholder: cfg.Placeholder, MaxLength: cfg.MaxLength}
	case *catalog.ParagraphConfig:
		return Widget{Kind: WidgetTextarea, Placeholder: cfg.Placeholder, MaxLength: cfg.MaxLength}
	case *catalog.SingleChoiceConfig:
		return Widget{Kind: WidgetRadio, Choices: optionChoices(cfg.Options)}
	case *catalog.MultiSelectConfig:
		return Widget{Kind: WidgetCheckboxes, Choices: optionChoices(cfg.Options)}
	case *catalog.YesNoConfig:
		return Widget{Kind: WidgetYesNo, Choices: []Choice{{Value: "yes", Label: cfg.YesLabel}, {Value: "no", Label: cfg.NoLabel}}}
	case *catalog.Likert5Config:
		return Widget{Kind: WidgetLikert, Choices: lo.Map(lo.RangeFrom(1, 5), func(n int, _ int) Choice {
			return Choice{Value: strconv.Itoa(n), Label: cfg.Label(n)}
		})}
	case *catalog.NumericConfig:
		step := "1"
		if cfg.NumberType == catalog.NumberDecimal {
			step = "any"
		}
		return Widget{Kind: WidgetNumber, Min: cfg.MinValue, Max: cfg.MaxValue, Step: step}
	case *catalog.PercentageConfig:
		values, _ := answer.(map[string]float64)
		total := lo.Sum(lo.Values(values))
		return Widget{Kind: WidgetPercentage, Items: cfg.Items, Total: cfg.TotalPercentage, RunningTotal: &total}
	case *catalog.FlexibleInputConfig:
		return Widget{Kind: WidgetFlexible, Items: cfg.Items, Instructions: cfg.Instructions, Placeholder: cfg.Placeholder}
	case *catalog.YearMatrixConfig:
		return Widget{Kind: WidgetYearMatrix, Rows: cfg.Rows, Years: cfg.Years()}
	}
	return Widget{Kind: WidgetUnsupported, Message: UnsupportedMessage}
}

// Capture decodes and validates raw as an answer to q.
func Capture(q models.Question, raw json.RawMessage) (any, error) {
	if !supported(q) {
		return nil, ErrUnsupportedType
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	switch cfg := q.Config.(type) {
	case *catalog.ShortTextConfig:
		return captureText(raw, cfg.MaxLength)
	case *catalog.ParagraphConfig:
		return captureText(raw, cfg.MaxLength)
	case *catalog.SingleChoiceConfig:
		v, err := decode[string](raw)
		if err != nil {
			return nil, err
		}
		if v != "" && !cfg.Options.Contains(v) {
			return nil, fmt.Errorf("%w: %q is not an option", ErrInvalidAnswer, v)
		}
		return v, nil
	case *catalog.MultiSelectConfig:
		v, err := decode[[]string](raw)
		if err != nil {
			return nil, err
		}
		for _, s := range v {
			if !cfg.Options.Contains(s) {
				return nil, fmt.Errorf("%w: %q is not an option", ErrInvalidAnswer, s)
			}
		}
		if v == nil {
			v = []string{}
		}
		return lo.Uniq(v), nil
	case *catalog.YesNoConfig:
		v, err := decode[string](raw)
		if err != nil {
			return nil, err
		}
		if v != "" && v != "yes" && v != "no" {
			return nil, fmt.Errorf("%w: expected yes or no", ErrInvalidAnswer)
		}
		return v, nil
	case *catalog.Likert5Config:
		v, err := decode[int](raw)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 5 {
			return nil, fmt.Errorf("%w: scale is 1 to 5", ErrInvalidAnswer)
		}
		return v, nil
	case *catalog.NumericConfig:
		return captureNumber(raw, cfg)
	case *catalog.PercentageConfig:
		v, err := decode[map[string]float64](raw)
		if err != nil {
			return nil, err
		}
		for k, n := range v {
			if !cfg.Items.Contains(k) {
				return nil, fmt.Errorf("%w: %q is not an item", ErrInvalidAnswer, k)
			}
			if n < 0 || n > cfg.TotalPercentage {
				return nil, fmt.Errorf("%w: %q must be between 0 and %g", ErrInvalidAnswer, k, cfg.TotalPercentage)
			}
		}
		return lo.Assign(map[string]float64{}, v), nil
	case *catalog.FlexibleInputConfig:
		v, err := decode[map[string]string](raw)
		if err != nil {
			return nil, err
		}
		for k := range v {
			if !cfg.Items.Contains(k) {
				return nil, fmt.Errorf("%w: %q is not an item", ErrInvalidAnswer, k)
			}
		}
		return lo.Assign(map[string]string{}, v), nil
	case *catalog.YearMatrixConfig:
		return captureMatrix(raw, cfg)
	}
	return nil, ErrUnsupportedType
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	return v, nil
}

func captureText(raw json.RawMessage, maxLength int) (any, error) {
	v, err := decode[string](raw)
	if err != nil {
		return nil, err
	}
	if maxLength > 0 && utf8.RuneCountInString(v) > maxLength {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidAnswer, maxLength)
	}
	return v, nil
}

func captureNumber(raw json.RawMessage, cfg *catalog.NumericConfig) (any, error) {
	v, err := decode[*float64](raw)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	n := *v
	if cfg.NumberType == catalog.NumberInteger && n != math.Trunc(n) {
		return nil, fmt.Errorf("%w: a whole number is required", ErrInvalidAnswer)
	}
	if cfg.MinValue != nil && n < *cfg.MinValue {
		return nil, fmt.Errorf("%w: minimum is %g", ErrInvalidAnswer, *cfg.MinValue)
	}
	if cfg.MaxValue != nil && n > *cfg.MaxValue {
		return nil, fmt.Errorf("%w: maximum is %g", ErrInvalidAnswer, *cfg.MaxValue)
	}
	return n, nil
}

func captureMatrix(raw json.RawMessage, cfg *catalog.YearMatrixConfig) (any, error) {
	v, err := decode[map[string]map[string]float64](raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64, len(v))
	for row, cells := range v {
		if !cfg.Rows.Contains(row) {
			return nil, fmt.Errorf("%w: %q is not a row", ErrInvalidAnswer, row)
		}
		for year := range cells {
			y, err := strconv.Atoi(year)
			if err != nil || y < cfg.StartYear || y > cfg.EndYear {
				return nil, fmt.Errorf("%w: %q is outside %d-%d", ErrInvalidAnswer, year, cfg.StartYear, cfg.EndYear)
			}
		}
		out[row] = lo.Assign(map[string]float64{}, cells)
	}
	return out, nil
}
