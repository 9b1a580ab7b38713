package catalog

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCatalogIdsAndNamesAgree(t *testing.T) {
	all := All()
	if len(all) != 10 {
		t.Fatalf("expected 10 question types, got %d", len(all))
	}
	for _, info := range all {
		byName, err := Lookup(info.Name)
		if err != nil {
			t.Fatalf("lookup %q: %v", info.Name, err)
		}
		byID, err := LookupID(info.ID)
		if err != nil {
			t.Fatalf("lookup id %d: %v", info.ID, err)
		}
		if byName != byID {
			t.Errorf("name %q resolves to %v but id %d resolves to %v", info.Name, byName, info.ID, byID)
		}
		if byID.Name() != info.Name || byID.DisplayName() != info.DisplayName {
			t.Errorf("type %d reports %q/%q", info.ID, byID.Name(), byID.DisplayName())
		}
		if _, err := DefaultConfig(byID); err != nil {
			t.Errorf("no default config for %s: %v", byID, err)
		}
		if _, err := Fields(byID); err != nil {
			t.Errorf("no form for %s: %v", byID, err)
		}
	}
	if _, err := Lookup("rating"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := LookupID(11); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestTypeJSON(t *testing.T) {
	tests := []struct {
		input      string
		expected   Type
		shouldFail bool
	}{
		{`2`, SingleChoice, false},
		{`"single_choice"`, SingleChoice, false},
		{`"year_matrix"`, YearMatrix, false},
		{`null`, 0, false},
		{`0`, 0, true},
		{`"nope"`, 0, true},
		{`true`, 0, true},
	}
	for _, test := range tests {
		var got Type
		err := json.Unmarshal([]byte(test.input), &got)
		if test.shouldFail {
			if err == nil {
				t.Errorf("expected error for %s, got %v", test.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for %s: %v", test.input, err)
			continue
		}
		if got != test.expected {
			t.Errorf("expected %v for %s, got %v", test.expected, test.input, got)
		}
	}

	raw, err := json.Marshal(Percentage)
	if err != nil || string(raw) != "8" {
		t.Errorf("expected percentage to encode as 8, got %s (%v)", raw, err)
	}
}

func TestDecodeConfigAppliesDefaults(t *testing.T) {
	cfg, err := DecodeConfig(YesNo, json.RawMessage(`{"yes_label":"Sure"}`))
	if err != nil {
		t.Fatal(err)
	}
	yn := cfg.(*YesNoConfig)
	if yn.YesLabel != "Sure" || yn.NoLabel != "No" {
		t.Errorf("unexpected labels %+v", yn)
	}

	cfg, err = DecodeConfig(Percentage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.(*PercentageConfig).TotalPercentage != 100 {
		t.Errorf("expected default total 100, got %v", cfg.(*PercentageConfig).TotalPercentage)
	}

	if _, err := DecodeConfig(Numeric, json.RawMessage(`{"min_value":"low"}`)); err == nil {
		t.Error("expected decode error for string bound")
	}
}

func TestValidate(t *testing.T) {
	min, max := 10.0, 5.0
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"short text default", &ShortTextConfig{MaxLength: 255}, false},
		{"short text zero length", &ShortTextConfig{}, true},
		{"choice ok", &SingleChoiceConfig{Options: OptionList{{Value: "a", Label: "Alpha"}}}, false},
		{"choice blank value", &SingleChoiceConfig{Options: OptionList{{Value: "", Label: "Alpha"}}}, true},
		{"choice duplicate", &MultiSelectConfig{Options: OptionList{{Value: "a"}, {Value: "a"}}}, true},
		{"numeric bad type", &NumericConfig{NumberType: "float"}, true},
		{"numeric inverted", &NumericConfig{NumberType: NumberDecimal, MinValue: &min, MaxValue: &max}, true},
		{"numeric open", &NumericConfig{NumberType: NumberInteger, MinValue: &min}, false},
		{"matrix ok", &YearMatrixConfig{StartYear: 2020, EndYear: 2020}, false},
		{"matrix inverted", &YearMatrixConfig{StartYear: 2021, EndYear: 2020}, true},
		{"likert bad key", &Likert5Config{ScaleLabels: map[int]string{6: "Too much"}}, true},
		{"percentage zero", &PercentageConfig{}, true},
	}
	for _, test := range tests {
		err := Validate(test.cfg)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: wantErr=%v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestLikertLabels(t *testing.T) {
	c := &Likert5Config{ScaleLabels: map[int]string{3: "Some"}}
	if c.Label(1) != "None" || c.Label(5) != "A great deal" || c.Label(3) != "Some" {
		t.Errorf("unexpected labels: %q %q %q", c.Label(1), c.Label(3), c.Label(5))
	}
}

func TestApplyItemEdits(t *testing.T) {
	var cfg Config = &SingleChoiceConfig{}

	cfg, err := Apply(cfg, Edit{Op: OpAddItem})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = Apply(cfg, Edit{Op: OpAddItem, Item: &Option{Label: "Beta"}})
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.(*SingleChoiceConfig).Options
	if len(opts) != 2 || opts[0].Value != "option_1" || opts[1].Value != "option_2" || opts[1].Label != "Beta" {
		t.Fatalf("unexpected options after add: %+v", opts)
	}

	cfg, err = Apply(cfg, Edit{Op: OpUpdateItem, Index: 0, Item: &Option{Value: "a", Label: "Alpha"}})
	if err != nil {
		t.Fatal(err)
	}
	before := cfg
	cfg, err = Apply(cfg, Edit{Op: OpRemoveItem, Index: 1})
	if err != nil {
		t.Fatal(err)
	}
	opts = cfg.(*SingleChoiceConfig).Options
	if len(opts) != 1 || opts[0].Value != "a" {
		t.Fatalf("unexpected options after remove: %+v", opts)
	}
	if len(before.(*SingleChoiceConfig).Options) != 2 {
		t.Error("apply modified its input")
	}

	if _, err := Apply(cfg, Edit{Op: OpRemoveItem, Index: 3}); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}
	if _, err := Apply(&YesNoConfig{}, Edit{Op: OpAddItem}); !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
}

func TestAddAfterRemoveSuggestsUnusedValue(t *testing.T) {
	var cfg Config = &SingleChoiceConfig{}
	var err error
	for range 2 {
		if cfg, err = Apply(cfg, Edit{Op: OpAddItem}); err != nil {
			t.Fatal(err)
		}
	}
	if cfg, err = Apply(cfg, Edit{Op: OpRemoveItem, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if cfg, err = Apply(cfg, Edit{Op: OpAddItem}); err != nil {
		t.Fatal(err)
	}

	opts := cfg.(*SingleChoiceConfig).Options
	if len(opts) != 2 || opts[0].Value != "option_2" || opts[1].Value != "option_3" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("suggested values should validate: %v", err)
	}
}

func TestSuggestValue(t *testing.T) {
	tests := []struct {
		name string
		list OptionList
		want string
	}{
		{"empty", nil, "option_1"},
		{"sequential", OptionList{{Value: "option_1"}}, "option_2"},
		{"gap taken", OptionList{{Value: "option_2"}, {Value: "option_3"}}, "option_4"},
		{"custom values", OptionList{{Value: "yes"}, {Value: "no"}}, "option_3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestValue(tt.list); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplySet(t *testing.T) {
	cfg, _ := DefaultConfig(Numeric)
	cfg, err := Apply(cfg, Edit{Op: OpSet, Field: "max_value", Value: json.RawMessage(`42.5`)})
	if err != nil {
		t.Fatal(err)
	}
	n := cfg.(*NumericConfig)
	if n.MaxValue == nil || *n.MaxValue != 42.5 || n.MinValue != nil {
		t.Errorf("unexpected numeric config %+v", n)
	}

	if _, err := Apply(cfg, Edit{Op: OpSet, Field: "options", Value: json.RawMessage(`[]`)}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if _, err := Apply(cfg, Edit{Op: OpSet, Field: "number_type", Value: json.RawMessage(`7`)}); err == nil {
		t.Error("expected type mismatch error")
	}
}
