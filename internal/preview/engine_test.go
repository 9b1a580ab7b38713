package preview

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

func newQuestion(t catalog.Type, cfg catalog.Config, required bool) models.Question {
	return models.Question{ID: uuid.New(), QuestionText: t.DisplayName(), QuestionTypeID: t, IsRequired: required, Config: cfg}
}

func textQuestion(required bool) models.Question {
	return newQuestion(catalog.ShortText, &catalog.ShortTextConfig{MaxLength: 5}, required)
}

func twoByTwo() []Section {
	return []Section{
		{Name: "Intro", Questions: []models.Question{textQuestion(true), textQuestion(false)}},
		{Name: "Closing", Questions: []models.Question{textQuestion(true), textQuestion(true)}},
	}
}

func TestStats(t *testing.T) {
	e := NewEngine(uuid.New(), "Survey", append(twoByTwo(), Section{Name: "Empty"}))
	v := e.View()
	want := Stats{SectionCount: 2, QuestionCount: 4, EstimatedMinutes: 4}
	if v.Stats != want {
		t.Errorf("expected %+v, got %+v", want, v.Stats)
	}
	if v.Mode != ModeOverview || v.Flow != nil {
		t.Errorf("expected overview, got %s", v.Mode)
	}
	if v.Sections[0].RequiredCount != 1 || v.Sections[1].RequiredCount != 2 {
		t.Errorf("unexpected required counts %+v", v.Sections)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		index, total, want int
	}{
		{0, 4, 25},
		{1, 4, 50},
		{3, 4, 100},
		{0, 3, 33},
		{1, 3, 67},
		{0, 0, 0},
	}
	for _, test := range tests {
		if got := Progress(test.index, test.total); got != test.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", test.index, test.total, got, test.want)
		}
	}
}

func TestFlowNavigation(t *testing.T) {
	qs := []models.Question{textQuestion(false), textQuestion(false), textQuestion(false), textQuestion(false)}
	e := NewEngine(uuid.New(), "Survey", []Section{{Name: "Main", Questions: qs}})

	if _, err := e.Next(); !errors.Is(err, ErrNotInFlow) {
		t.Fatalf("expected ErrNotInFlow, got %v", err)
	}
	if _, err := e.EnterSection("Missing"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
	v, err := e.EnterSection("Main")
	if err != nil {
		t.Fatal(err)
	}
	if v.Flow.Index != 0 || v.Flow.CanGoBack {
		t.Errorf("expected first question, got %+v", v.Flow)
	}
	v, _ = e.Previous()
	if v.Flow.Index != 0 {
		t.Errorf("previous on first question must stay, got %d", v.Flow.Index)
	}
	v, _ = e.Next()
	if v.Flow.Index != 1 || v.Flow.Progress != 50 || v.Flow.NextLabel != "Next" {
		t.Errorf("unexpected flow %+v", v.Flow)
	}
	e.Next()
	v, _ = e.Next()
	if v.Flow.NextLabel != "Finish" || v.Flow.Progress != 100 {
		t.Errorf("expected finish on last question, got %+v", v.Flow)
	}
	v, _ = e.Next()
	if v.Mode != ModeOverview {
		t.Errorf("finish should return to overview, got %s", v.Mode)
	}

	e.EnterSection("Main")
	e.Next()
	if v = e.SaveAndExit(); v.Mode != ModeOverview {
		t.Errorf("save and exit should return to overview, got %s", v.Mode)
	}
}

func TestPercentageRunningTotal(t *testing.T) {
	cfg := &catalog.PercentageConfig{TotalPercentage: 100, Items: catalog.OptionList{{Value: "A"}, {Value: "B"}, {Value: "C"}}}
	q := newQuestion(catalog.Percentage, cfg, false)
	e := NewEngine(uuid.New(), "Survey", []Section{{Name: "Budget", Questions: []models.Question{q}}})
	e.EnterSection("Budget")

	v, err := e.Capture(q.ID, json.RawMessage(`{"A":30,"B":50}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.Flow.Widget.RunningTotal == nil || *v.Flow.Widget.RunningTotal != 80 || v.Flow.Widget.Total != 100 {
		t.Errorf("expected running total 80 of 100, got %+v", v.Flow.Widget)
	}

	if _, err := e.Capture(q.ID, json.RawMessage(`{"Z":10}`)); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
	got := e.Responses()[q.ID].(map[string]float64)
	if !reflect.DeepEqual(got, map[string]float64{"A": 30, "B": 50}) {
		t.Errorf("rejected capture changed responses: %v", got)
	}
}

func TestUnknownTypePlaceholder(t *testing.T) {
	q := models.Question{ID: uuid.New(), QuestionText: "Legacy", QuestionTypeID: catalog.Type(42)}
	e := NewEngine(uuid.New(), "Survey", []Section{{Name: "Old", Questions: []models.Question{q}}})
	v, _ := e.EnterSection("Old")
	if v.Flow.Widget.Kind != WidgetUnsupported || v.Flow.Widget.Message != UnsupportedMessage {
		t.Errorf("expected placeholder widget, got %+v", v.Flow.Widget)
	}
	if _, err := e.Capture(q.ID, json.RawMessage(`"x"`)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	v, _ = e.Next()
	if v.Mode != ModeOverview {
		t.Error("navigation must continue past an unsupported question")
	}
}

func TestCaptureValidation(t *testing.T) {
	low, high := 1.0, 10.0
	choice := catalog.OptionList{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}}
	tests := []struct {
		name  string
		q     models.Question
		value string
		ok    bool
	}{
		{"text", textQuestion(false), `"hello"`, true},
		{"text too long", textQuestion(false), `"hello world"`, false},
		{"choice", newQuestion(catalog.SingleChoice, &catalog.SingleChoiceConfig{Options: choice}, false), `"b"`, true},
		{"choice not an option", newQuestion(catalog.SingleChoice, &catalog.SingleChoiceConfig{Options: choice}, false), `"z"`, false},
		{"multi", newQuestion(catalog.MultiSelect, &catalog.MultiSelectConfig{Options: choice}, false), `["a","b"]`, true},
		{"multi bad", newQuestion(catalog.MultiSelect, &catalog.MultiSelectConfig{Options: choice}, false), `["a","z"]`, false},
		{"yes", newQuestion(catalog.YesNo, &catalog.YesNoConfig{YesLabel: "Yes", NoLabel: "No"}, false), `"yes"`, true},
		{"maybe", newQuestion(catalog.YesNo, &catalog.YesNoConfig{YesLabel: "Yes", NoLabel: "No"}, false), `"maybe"`, false},
		{"likert", newQuestion(catalog.Likert5, &catalog.Likert5Config{}, false), `4`, true},
		{"likert out of range", newQuestion(catalog.Likert5, &catalog.Likert5Config{}, false), `6`, false},
		{"integer", newQuestion(catalog.Numeric, &catalog.NumericConfig{NumberType: catalog.NumberInteger, MinValue: &low, MaxValue: &high}, false), `7`, true},
		{"integer fraction", newQuestion(catalog.Numeric, &catalog.NumericConfig{NumberType: catalog.NumberInteger}, false), `7.5`, false},
		{"decimal above max", newQuestion(catalog.Numeric, &catalog.NumericConfig{NumberType: catalog.NumberDecimal, MaxValue: &high}, false), `10.5`, false},
		{"number cleared", newQuestion(catalog.Numeric, &catalog.NumericConfig{NumberType: catalog.NumberDecimal}, false), `null`, true},
		{"flexible", newQuestion(catalog.FlexibleInput, &catalog.FlexibleInputConfig{Items: choice}, false), `{"a":"note"}`, true},
		{"matrix", newQuestion(catalog.YearMatrix, &catalog.YearMatrixConfig{StartYear: 2020, EndYear: 2022, Rows: choice}, false), `{"a":{"2021":3}}`, true},
		{"matrix year outside", newQuestion(catalog.YearMatrix, &catalog.YearMatrixConfig{StartYear: 2020, EndYear: 2022, Rows: choice}, false), `{"a":{"2019":3}}`, false},
	}
	for _, test := range tests {
		_, err := Capture(test.q, json.RawMessage(test.value))
		if test.ok && err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
		}
		if !test.ok && !errors.Is(err, ErrInvalidAnswer) {
			t.Errorf("%s: expected ErrInvalidAnswer, got %v", test.name, err)
		}
	}
}

func TestBlankAnswers(t *testing.T) {
	q := newQuestion(catalog.MultiSelect, &catalog.MultiSelectConfig{}, false)
	e := NewEngine(uuid.New(), "Survey", []Section{{Name: "S", Questions: []models.Question{q}}})
	v, _ := e.EnterSection("S")
	if got, ok := v.Flow.Answer.([]string); !ok || len(got) != 0 {
		t.Errorf("expected empty selection, got %#v", v.Flow.Answer)
	}
}

func TestLikertWidgetLabels(t *testing.T) {
	q := newQuestion(catalog.Likert5, &catalog.Likert5Config{ScaleLabels: map[int]string{5: "Always"}}, false)
	w := RenderWidget(q, 0)
	if len(w.Choices) != 5 || w.Choices[0].Label != "None" || w.Choices[4].Label != "Always" {
		t.Errorf("unexpected likert choices %+v", w.Choices)
	}
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale := r.Create(uuid.New(), "A", twoByTwo())
	now = now.Add(2 * time.Minute)
	fresh := r.Create(uuid.New(), "B", twoByTwo())

	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected one expired preview, got %d", n)
	}
	if _, ok := r.Get(stale.ID()); ok {
		t.Error("stale preview should be gone")
	}
	if _, ok := r.Get(fresh.ID()); !ok {
		t.Error("fresh preview should remain")
	}
}
