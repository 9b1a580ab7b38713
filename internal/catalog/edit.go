package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo"
)

// FieldKind tells a client which input to render for a config field.
type FieldKind string

const (
	KindInteger FieldKind = "integer"
	KindNumber  FieldKind = "number"
	KindText    FieldKind = "text"
	KindSelect  FieldKind = "select"
	KindItems   FieldKind = "items"
	KindLabels  FieldKind = "labels"
)

// Field describes one input of a type's configuration sub-form.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Choices  []string  `json:"choices,omitempty"`
	Optional bool      `json:"optional,omitempty"`
}

// Fields returns the configuration sub-form for t.
func Fields(t Type) ([]Field, error) {
	switch t {
	case ShortText, Paragraph:
		return []Field{
			{Key: "max_length", Label: "Maximum length", Kind: KindInteger},
			{Key: "placeholder", Label: "Placeholder", Kind: KindText, Optional: true},
		}, nil
	case SingleChoice, MultiSelect:
		return []Field{{Key: "options", Label: "Options", Kind: KindItems}}, nil
	case YesNo:
		return []Field{
			{Key: "yes_label", Label: "Yes label", Kind: KindText},
			{Key: "no_label", Label: "No label", Kind: KindText},
		}, nil
	case Likert5:
		return []Field{{Key: "scale_labels", Label: "Scale labels", Kind: KindLabels, Optional: true}}, nil
	case Numeric:
		return []Field{
			{Key: "number_type", Label: "Number type", Kind: KindSelect, Choices: []string{NumberInteger, NumberDecimal}},
			{Key: "min_value", Label: "Minimum", Kind: KindNumber, Optional: true},
			{Key: "max_value", Label: "Maximum", Kind: KindNumber, Optional: true},
		}, nil
	case Percentage:
		return []Field{
			{Key: "total_percentage", Label: "Total percentage", Kind: KindNumber},
			{Key: "items", Label: "Items", Kind: KindItems},
		}, nil
	case FlexibleInput:
		return []Field{
			{Key: "items", Label: "Items", Kind: KindItems},
			{Key: "instructions", Label: "Instructions", Kind: KindText, Optional: true},
			{Key: "placeholder", Label: "Placeholder", Kind: KindText, Optional: true},
		}, nil
	case YearMatrix:
		return []Field{
			{Key: "start_year", Label: "Start year", Kind: KindInteger},
			{Key: "end_year", Label: "End year", Kind: KindInteger},
			{Key: "rows", Label: "Rows", Kind: KindItems},
		}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
}

// EditOp is a structural change to a config.
type EditOp string

const (
	OpSet        EditOp = "set"
	OpAddItem    EditOp = "add_item"
	OpUpdateItem EditOp = "update_item"
	OpRemoveItem EditOp = "remove_item"
)

// Edit is one change requested by the config sub-form.
// Set uses Field and Value; item operations use Index and Item.
type Edit struct {
	Op    EditOp          `json:"op" binding:"required"`
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
	Index int             `json:"index"`
	Item  *Option         `json:"item"`
}

var (
	ErrUnknownField  = errors.New("unknown config field")
	ErrNoItems       = errors.New("config has no item list")
	ErrIndexRange    = errors.New("item index out of range")
	ErrUnsupportedOp = errors.New("unsupported config edit")
)

// Apply returns a new config with e applied. cfg itself is never modified.
func Apply(cfg Config, e Edit) (Config, error) {
	next, err := clone(cfg)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpSet:
		return setField(next, e.Field, e.Value)
	case OpAddItem, OpUpdateItem, OpRemoveItem:
		list, key, ok := ItemList(next)
		if !ok {
			return nil, ErrNoItems
		}
		if e.Field != "" && e.Field != key {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
		}
		if err := editItems(list, e); err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, e.Op)
}

// SuggestValue returns the value proposed for a newly added item: the first
// option_<k>, counting up from len+1, not already in the list.
func SuggestValue(l OptionList) string {
	taken := lo.SliceToMap(l, func(o Option) (string, struct{}) { return o.Value, struct{}{} })
	for k := len(l) + 1; ; k++ {
		v := "option_" + strconv.Itoa(k)
		if _, ok := taken[v]; !ok {
			return v
		}
	}
}

func editItems(list *OptionList, e Edit) error {
	switch e.Op {
	case OpAddItem:
		item := Option{Value: SuggestValue(*list)}
		if e.Item != nil {
			item.Label = e.Item.Label
			if e.Item.Value != "" {
				item.Value = e.Item.Value
			}
		}
		*list = append(*list, item)
	case OpUpdateItem:
		if e.Index < 0 || e.Index >= len(*list) {
			return fmt.Errorf("%w: %d", ErrIndexRange, e.Index)
		}
		if e.Item == nil {
			return errors.New("update_item requires item")
		}
		(*list)[e.Index] = *e.Item
	case OpRemoveItem:
		if e.Index < 0 || e.Index >= len(*list) {
			return fmt.Errorf("%w: %d", ErrIndexRange, e.Index)
		}
		*list = append((*list)[:e.Index], (*list)[e.Index+1:]...)
	}
	return nil
}

func setField(cfg Config, key string, value json.RawMessage) (Config, error) {
	fields, err := Fields(cfg.Type())
	if err != nil {
		return nil, err
	}
	known := false
	for _, f := range fields {
		if f.Key == key && f.Kind != KindItems {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	obj[key] = value
	raw, err = json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	next, err := DefaultConfig(cfg.Type())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, fmt.Errorf("set %s: %w", key, err)
	}
	return next, nil
}

func clone(cfg Config) (Config, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(cfg.Type(), raw)
}
