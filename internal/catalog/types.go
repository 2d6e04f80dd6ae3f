package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is a hardware family holding its own types and profiles.
type Category string

const (
	Hinge Category = "hinge"
	Lock  Category = "lock"
)

// Categories lists every category in display order.
var Categories = []Category{Hinge, Lock}

// ParseCategory accepts singular and plural spellings ("hinge", "hinges").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hinge", "hinges":
		return Hinge, nil
	case "lock", "locks":
		return Lock, nil
	default:
		return "", fmt.Errorf("unknown category %q (want hinge or lock)", s)
	}
}

// Type is a reusable, named G-code template for a category.
type Type struct {
	Name    string `json:"name"`
	GCode   string `json:"gcode"`
	Image   string `json:"image,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// Profile binds concrete variable values to a Type by name. The Type
// reference is weak: it may dangle after the Type is deleted or renamed.
type Profile struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	LVariables      Values `json:"l_variables"`
	CustomVariables Values `json:"custom_variables"`
	Image           string `json:"image,omitempty"`
}

// Variables returns the profile's L and custom variables as one value set.
// L-variables win if both maps carry the same name.
func (p Profile) Variables() map[string]string {
	out := make(map[string]string, len(p.LVariables)+len(p.CustomVariables))
	for k, v := range p.CustomVariables {
		out[k] = v
	}
	for k, v := range p.LVariables {
		out[k] = v
	}
	return out
}

// Values maps placeholder names to string values. Numbers and booleans in
// hand-edited documents are accepted and kept in their JSON text form.
type Values map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode variables: %w", err)
	}

	out := make(Values, len(raw))
	for name, msg := range raw {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			out[name] = s
			continue
		}
		text := string(bytes.TrimSpace(msg))
		if text == "null" {
			text = ""
		}
		out[name] = text
	}
	*v = out
	return nil
}

// Library is one category's types and profiles, keyed by name.
type Library struct {
	Types    map[string]Type    `json:"types"`
	Profiles map[string]Profile `json:"profiles"`
}

func newLibrary() Library {
	return Library{
		Types:    make(map[string]Type),
		Profiles: make(map[string]Profile),
	}
}

// FrameGCode holds the per-side frame templates.
type FrameGCode struct {
	Right string `json:"gcode_right"`
	Left  string `json:"gcode_left"`
}

// UnmarshalJSON implements json.Unmarshaler. Both gcode_right/gcode_left and
// right_gcode/left_gcode spellings are read.
func (f *FrameGCode) UnmarshalJSON(data []byte) error {
	var raw struct {
		GCodeRight *string `json:"gcode_right"`
		GCodeLeft  *string `json:"gcode_left"`
		RightGCode *string `json:"right_gcode"`
		LeftGCode  *string `json:"left_gcode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode frame gcode: %w", err)
	}

	*f = FrameGCode{
		Right: firstSet(raw.GCodeRight, raw.RightGCode),
		Left:  firstSet(raw.GCodeLeft, raw.LeftGCode),
	}
	return nil
}

func firstSet(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

// Document is the on-disk shape of profiles/current.json and saved snapshots.
type Document struct {
	Hinges     Library    `json:"hinges"`
	Locks      Library    `json:"locks"`
	FrameGCode FrameGCode `json:"frame_gcode"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() Document {
	return Document{
		Hinges: newLibrary(),
		Locks:  newLibrary(),
	}
}

func (d Document) clone() Document {
	return Document{
		Hinges:     d.Hinges.clone(),
		Locks:      d.Locks.clone(),
		FrameGCode: d.FrameGCode,
	}
}

func (l Library) clone() Library {
	out := Library{
		Types:    make(map[string]Type, len(l.Types)),
		Profiles: make(map[string]Profile, len(l.Profiles)),
	}
	for name, t := range l.Types {
		out.Types[name] = t
	}
	for name, p := range l.Profiles {
		p.LVariables = p.LVariables.clone()
		p.CustomVariables = p.CustomVariables.clone()
		out.Profiles[name] = p
	}
	return out
}

func (v Values) clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// normalize allocates nil maps left behind by partial documents.
func (d *Document) normalize() {
	for _, lib := range []*Library{&d.Hinges, &d.Locks} {
		if lib.Types == nil {
			lib.Types = make(map[string]Type)
		}
		if lib.Profiles == nil {
			lib.Profiles = make(map[string]Profile)
		}
		for name, t := range lib.Types {
			if t.Name == "" {
				t.Name = name
				lib.Types[name] = t
			}
		}
		for name, p := range lib.Profiles {
			if p.Name == "" {
				p.Name = name
				lib.Profiles[name] = p
			}
		}
	}
}
