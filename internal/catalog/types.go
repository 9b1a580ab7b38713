// Package catalog holds the closed set of question types and their configuration payloads.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Type identifies a question variant. The zero value means "no type selected".
type Type int

const (
	ShortText Type = iota + 1
	SingleChoice
	YesNo
	Likert5
	MultiSelect
	Paragraph
	Numeric
	Percentage
	FlexibleInput
	YearMatrix
)

// ErrUnknownType is returned when a name or id does not match any catalog entry.
var ErrUnknownType = errors.New("unknown question type")

// Info is the catalog entry served to clients.
type Info struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// entries is the only place ids and names are paired.
var entries = []Info{
	{ID: int(ShortText), Name: "short_text", DisplayName: "Short text"},
	{ID: int(SingleChoice), Name: "single_choice", DisplayName: "Single choice"},
	{ID: int(YesNo), Name: "yes_no", DisplayName: "Yes / No"},
	{ID: int(Likert5), Name: "likert5", DisplayName: "Likert (5 points)"},
	{ID: int(MultiSelect), Name: "multi_select", DisplayName: "Multiple select"},
	{ID: int(Paragraph), Name: "paragraph", DisplayName: "Paragraph"},
	{ID: int(Numeric), Name: "numeric", DisplayName: "Number"},
	{ID: int(Percentage), Name: "percentage", DisplayName: "Percentage split"},
	{ID: int(FlexibleInput), Name: "flexible_input", DisplayName: "Flexible input"},
	{ID: int(YearMatrix), Name: "year_matrix", DisplayName: "Year matrix"},
}

var byName = func() map[string]Type {
	m := make(map[string]Type, len(entries))
	for _, e := range entries {
		m[e.Name] = Type(e.ID)
	}
	return m
}()

// All returns the catalog in id order.
func All() []Info {
	out := make([]Info, len(entries))
	copy(out, entries)
	return out
}

// Lookup resolves a stable type name.
func Lookup(name string) (Type, error) {
	t, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// LookupID resolves a numeric type id.
func LookupID(id int) (Type, error) {
	t := Type(id)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return t, nil
}

// Valid reports whether t is one of the ten catalog variants.
func (t Type) Valid() bool {
	return t >= ShortText && t <= YearMatrix
}

// ID returns the numeric id.
func (t Type) ID() int { return int(t) }

// Name returns the stable name, or "" for an invalid type.
func (t Type) Name() string {
	if !t.Valid() {
		return ""
	}
	return entries[t-1].Name
}

// DisplayName returns the human label.
func (t Type) DisplayName() string {
	if !t.Valid() {
		return ""
	}
	return entries[t-1].DisplayName
}

func (t Type) String() string {
	if n := t.Name(); n != "" {
		return n
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// MarshalJSON encodes the numeric id; an unset type encodes as null.
func (t Type) MarshalJSON() ([]byte, error) {
	if t == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(t))), nil
}

// UnmarshalJSON accepts either the numeric id or the stable name.
func (t *Type) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = 0
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		v, err := LookupID(id)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("question type must be an id or a name: %w", err)
	}
	v, err := Lookup(name)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
