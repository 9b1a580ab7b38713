package editor

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/catalog"
	"github.com/aura-survey/backend/internal/models"
)

func question(text, section string, order int) models.Question {
	return models.Question{
		ID:             uuid.New(),
		QuestionText:   text,
		QuestionTypeID: catalog.ShortText,
		Section:        section,
		Order:          order,
		Config:         &catalog.ShortTextConfig{MaxLength: 255},
	}
}

func loaded(t *testing.T, f *fakeBackend) *Session {
	t.Helper()
	var refreshed []string
	s := NewSession(f.survey.ID, f, Options{OnRefresh: func(_ uuid.UUID, reason string) {
		refreshed = append(refreshed, reason)
	}})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func orders(qs []models.Question) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.Order
	}
	return out
}

func texts(qs []models.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.QuestionText
	}
	return out
}

func assertDense(t *testing.T, qs []models.Question) {
	t.Helper()
	for i, q := range qs {
		if q.Order != i {
			t.Fatalf("orders not dense: %v", orders(qs))
		}
	}
}

func TestAddSingleChoiceThenDelete(t *testing.T) {
	f := newFakeBackend()
	s := loaded(t, f)
	ctx := context.Background()

	if err := s.StartAdd(); err != nil {
		t.Fatal(err)
	}
	text, section, typ := "Which region?", "Intro", catalog.SingleChoice
	if err := s.UpdateDraft(DraftPatch{QuestionText: &text, QuestionTypeID: &typ, Section: &section}); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := s.EditDraftConfig(catalog.Edit{Op: catalog.OpAddItem}); err != nil {
			t.Fatal(err)
		}
	}
	gets := f.count("get")
	saved, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.count("get") != gets+1 {
		t.Errorf("expected a reload after save, got %d get calls", f.count("get")-gets)
	}

	if f.lastInput.Order != 0 || f.lastInput.Section != "Intro" || f.lastInput.QuestionTypeID != catalog.SingleChoice {
		t.Errorf("unexpected create input %+v", f.lastInput)
	}
	cfg := f.lastInput.Config.(*catalog.SingleChoiceConfig)
	if len(cfg.Options) != 2 || cfg.Options[1].Value != "option_2" {
		t.Errorf("unexpected options %+v", cfg.Options)
	}

	v := s.View()
	if len(v.Sections) != 1 || v.Sections[0].Name != "Intro" || len(v.Sections[0].Questions) != 1 {
		t.Fatalf("unexpected sidebar %+v", v.Sections)
	}
	if v.Panel.Mode != PanelEmpty || v.Panel.Draft != nil {
		t.Fatalf("expected empty panel after save, got %+v", v.Panel)
	}

	if err := s.DeleteQuestion(ctx, saved.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if f.count("delete") != 0 {
		t.Fatal("unconfirmed delete reached the store")
	}
	if err := s.DeleteQuestion(ctx, saved.ID, true); err != nil {
		t.Fatal(err)
	}
	v = s.View()
	if v.Panel.Mode != PanelEmpty || len(v.Sections) != 0 {
		t.Errorf("expected empty pane and sidebar, got %+v", v)
	}
}

func TestSaveValidationSkipsStore(t *testing.T) {
	f := newFakeBackend()
	s := loaded(t, f)
	ctx := context.Background()
	_ = s.StartAdd()

	_, err := s.Save(ctx)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "question_text" {
		t.Fatalf("expected question_text validation error, got %v", err)
	}

	text := "  Name  "
	_ = s.UpdateDraft(DraftPatch{QuestionText: &text})
	_, err = s.Save(ctx)
	if !errors.As(err, &verr) || verr.Field != "question_type_id" {
		t.Fatalf("expected question_type_id validation error, got %v", err)
	}

	typ := catalog.YearMatrix
	_ = s.UpdateDraft(DraftPatch{QuestionTypeID: &typ})
	_ = s.EditDraftConfig(catalog.Edit{Op: catalog.OpSet, Field: "start_year", Value: json.RawMessage(`2024`)})
	_ = s.EditDraftConfig(catalog.Edit{Op: catalog.OpSet, Field: "end_year", Value: json.RawMessage(`2020`)})
	_, err = s.Save(ctx)
	if !errors.As(err, &verr) || verr.Field != "config" {
		t.Fatalf("expected config validation error, got %v", err)
	}

	if f.count("create") != 0 {
		t.Errorf("expected no store call, got %d", f.count("create"))
	}
}

func TestTypeChangeResetsConfig(t *testing.T) {
	s := loaded(t, newFakeBackend())
	_ = s.StartAdd()
	typ := catalog.SingleChoice
	_ = s.UpdateDraft(DraftPatch{QuestionTypeID: &typ})
	_ = s.EditDraftConfig(catalog.Edit{Op: catalog.OpAddItem})

	typ = catalog.Numeric
	_ = s.UpdateDraft(DraftPatch{QuestionTypeID: &typ})
	d := s.View().Panel.Draft
	if cfg, ok := d.Config.(*catalog.NumericConfig); !ok || cfg.NumberType != catalog.NumberInteger {
		t.Errorf("expected default numeric config, got %#v", d.Config)
	}
}

func TestEditAndCancel(t *testing.T) {
	q := question("Age", "About you", 0)
	f := newFakeBackend(q)
	s := loaded(t, f)

	if err := s.StartEdit(q.ID); err != nil {
		t.Fatal(err)
	}
	s.Cancel()
	if p := s.View().Panel; p.Mode != PanelViewing || *p.QuestionID != q.ID {
		t.Fatalf("cancel should return to view, got %+v", p)
	}

	_ = s.StartEdit(q.ID)
	text := "Your age"
	_ = s.UpdateDraft(DraftPatch{QuestionText: &text})
	if _, err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.Questions()[0].QuestionText; got != "Your age" {
		t.Errorf("expected updated text, got %q", got)
	}
	if f.count("update") != 1 {
		t.Errorf("expected one update call, got %d", f.count("update"))
	}
	if p := s.View().Panel; p.Mode != PanelEmpty {
		t.Errorf("expected empty panel after save, got %+v", p)
	}
}

func TestSaveReloadPicksUpStoreFields(t *testing.T) {
	f := newFakeBackend()
	s := loaded(t, f)
	ctx := context.Background()

	_ = s.StartAdd()
	text, typ := "Household size", catalog.Numeric
	_ = s.UpdateDraft(DraftPatch{QuestionText: &text, QuestionTypeID: &typ})

	// Another editor bumps the version while the draft is open.
	f.mu.Lock()
	f.survey.Version = 7
	f.mu.Unlock()

	if _, err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	if v := s.View().Version; v != 7 {
		t.Errorf("expected version 7 after reload, got %d", v)
	}
	qs := s.Questions()
	if len(qs) != 1 || qs[0].SectionID == uuid.Nil {
		t.Fatalf("expected reloaded question with section id, got %+v", qs)
	}
}

func TestSaveReloadFailureKeepsWrite(t *testing.T) {
	f := newFakeBackend()
	s := loaded(t, f)
	ctx := context.Background()

	_ = s.StartAdd()
	text, typ := "Household size", catalog.Numeric
	_ = s.UpdateDraft(DraftPatch{QuestionText: &text, QuestionTypeID: &typ})

	f.mu.Lock()
	f.failGet = true
	f.mu.Unlock()

	saved, err := s.Save(ctx)
	if err != nil || saved == nil {
		t.Fatalf("write succeeded, expected no error, got %v", err)
	}
	v := s.View()
	if v.LoadError == "" {
		t.Error("expected the reload failure to surface as a load error")
	}
	if v.Panel.Mode != PanelEmpty {
		t.Errorf("expected empty panel, got %+v", v.Panel)
	}
	if f.count("create") != 1 {
		t.Errorf("expected one create call, got %d", f.count("create"))
	}
}

func TestDragWithinSection(t *testing.T) {
	qs := []models.Question{
		question("a1", "A", 0),
		question("b1", "B", 1),
		question("a2", "A", 2),
		question("b2", "B", 3),
		question("a3", "A", 4),
	}
	f := newFakeBackend(qs...)
	s := loaded(t, f)
	all := s.Questions()
	a1, a3 := all[0], all[4]

	res, err := s.Drag(context.Background(), DragRequest{
		Active: QuestionKey{SectionID: a3.SectionID, QuestionID: a3.ID},
		Over:   &QuestionKey{SectionID: a1.SectionID, QuestionID: a1.ID},
		DeltaY: -40,
	})
	if err != nil || !res.Moved {
		t.Fatalf("expected move, got %+v %v", res, err)
	}

	got := s.Questions()
	assertDense(t, got)
	if want := []string{"a3", "b1", "a1", "b2", "a2"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("expected %v, got %v", want, texts(got))
	}
	if len(f.lastBulk) != 5 {
		t.Errorf("expected full order update, got %d entries", len(f.lastBulk))
	}
	if s.View().Version != 2 {
		t.Errorf("expected version 2, got %d", s.View().Version)
	}
}

func TestDragAcrossSectionsIsNoop(t *testing.T) {
	f := newFakeBackend(question("a1", "A", 0), question("b1", "B", 1))
	s := loaded(t, f)
	all := s.Questions()

	res, err := s.Drag(context.Background(), DragRequest{
		Active: QuestionKey{SectionID: all[0].SectionID, QuestionID: all[0].ID},
		Over:   &QuestionKey{SectionID: all[1].SectionID, QuestionID: all[1].ID},
		DeltaX: 50,
	})
	if err != nil || res.Moved || res.Clicked {
		t.Fatalf("expected no-op, got %+v %v", res, err)
	}
	if f.count("bulk") != 0 {
		t.Error("no-op drop reached the store")
	}
}

func TestShortDragSelects(t *testing.T) {
	f := newFakeBackend(question("a1", "A", 0), question("a2", "A", 1))
	s := loaded(t, f)
	q := s.Questions()[1]

	res, err := s.Drag(context.Background(), DragRequest{
		Active: QuestionKey{SectionID: q.SectionID, QuestionID: q.ID},
		DeltaX: 2, DeltaY: 2,
	})
	if err != nil || !res.Clicked {
		t.Fatalf("expected click, got %+v %v", res, err)
	}
	if p := s.View().Panel; p.Mode != PanelViewing || *p.QuestionID != q.ID {
		t.Errorf("expected selection, got %+v", p)
	}
}

func TestReorderFailureReloads(t *testing.T) {
	f := newFakeBackend(question("a1", "A", 0), question("a2", "A", 1), question("a3", "A", 2))
	f.failBulk = true
	s := loaded(t, f)
	all := s.Questions()

	_, err := s.Drag(context.Background(), DragRequest{
		Active: QuestionKey{SectionID: all[2].SectionID, QuestionID: all[2].ID},
		Over:   &QuestionKey{SectionID: all[0].SectionID, QuestionID: all[0].ID},
		DeltaY: -30,
	})
	var berr *BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if f.count("get") != 2 {
		t.Errorf("expected reload, got %d loads", f.count("get"))
	}
	if want := []string{"a1", "a2", "a3"}; !reflect.DeepEqual(texts(s.Questions()), want) {
		t.Errorf("expected store order %v after reload, got %v", want, texts(s.Questions()))
	}
	if s.View().InlineError == "" {
		t.Error("expected inline error")
	}
}

func TestLoadFailureBlocksEditing(t *testing.T) {
	f := newFakeBackend()
	f.failGet = true
	s := NewSession(f.survey.ID, f, Options{})
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if s.View().LoadError == "" {
		t.Error("expected page-level error in view")
	}
	if err := s.StartAdd(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}

	f.failGet = false
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.View().LoadError != "" {
		t.Error("reload should clear the page-level error")
	}
}

func TestBusyActionRejected(t *testing.T) {
	s := loaded(t, newFakeBackend())
	_ = s.StartAdd()
	text, typ := "Name", catalog.ShortText
	_ = s.UpdateDraft(DraftPatch{QuestionText: &text, QuestionTypeID: &typ})

	if err := s.begin(ActionSave); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if busy := s.View().Busy; !reflect.DeepEqual(busy, []string{ActionSave}) {
		t.Errorf("expected save busy, got %v", busy)
	}
	s.end(ActionSave)
}

func TestSectionDialog(t *testing.T) {
	f := newFakeBackend(question("a1", "Intro", 0), question("b1", "Background", 1), question("c1", "Closing", 2))
	s := loaded(t, f)
	ctx := context.Background()

	if _, err := s.MoveSection("Closing", nil); !errors.Is(err, ErrDialogClosed) {
		t.Fatalf("expected ErrDialogClosed, got %v", err)
	}
	d, err := s.OpenSectionDialog()
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Entries) != 3 || d.Entries[0].QuestionCount != 1 {
		t.Fatalf("unexpected entries %+v", d.Entries)
	}
	over := "Intro"
	if _, err := s.MoveSection("Closing", &over); err != nil {
		t.Fatal(err)
	}
	ranks, err := s.SaveSectionOrder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.SectionRank{{Name: "Closing", Order: 0}, {Name: "Intro", Order: 1}, {Name: "Background", Order: 2}}
	if !reflect.DeepEqual(ranks, want) {
		t.Errorf("expected %v, got %v", want, ranks)
	}
	names := []string{}
	for _, g := range s.View().Sections {
		names = append(names, g.Name)
	}
	if !reflect.DeepEqual(names, []string{"Closing", "Intro", "Background"}) {
		t.Errorf("sidebar not reordered: %v", names)
	}
	if got := orders(s.Questions()); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("question orders must not change, got %v", got)
	}
	if s.View().Dialog != nil {
		t.Error("dialog should close after save")
	}
}

func TestSuggestSections(t *testing.T) {
	s := loaded(t, newFakeBackend(question("a", "Intro", 0), question("b", "Income", 1), question("c", "Closing", 2)))
	if got := s.SuggestSections("in"); !reflect.DeepEqual(got, []string{"Intro", "Income"}) {
		t.Errorf("unexpected suggestions %v", got)
	}
	if got := s.SuggestSections(""); len(got) != 3 {
		t.Errorf("empty prefix should list all sections, got %v", got)
	}
}
