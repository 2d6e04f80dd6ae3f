// Package slots tracks the six generated G-code outputs. Each slot keeps the
// auto-generated text and the text shown to the operator side by side; once
// the operator edits a slot it is locked against regeneration until reset.
package slots

import (
	"fmt"
)

// Content is the state of one slot.
type Content struct {
	Auto     string `json:"auto"`
	Manual   string `json:"manual"`
	IsManual bool   `json:"is_manual"`
}

// Snapshot is a copy of all six slots.
type Snapshot map[Slot]Content

// Tracker holds the auto and manual content of every slot. It is not safe
// for concurrent use.
type Tracker struct {
	slots map[Slot]*Content
}

// NewTracker creates a tracker with all six slots empty.
func NewTracker() *Tracker {
	t := &Tracker{slots: make(map[Slot]*Content, len(All))}
	for _, s := range All {
		t.slots[s] = &Content{}
	}
	return t
}

func (t *Tracker) slot(s Slot) (*Content, error) {
	c, ok := t.slots[s]
	if !ok {
		return nil, fmt.Errorf("%s: %w", s, ErrUnknownSlot)
	}
	return c, nil
}

// RegenerateAuto stores freshly generated text. The manual text follows it
// unless the slot has been edited by hand.
func (t *Tracker) RegenerateAuto(s Slot, text string) error {
	c, err := t.slot(s)
	if err != nil {
		return err
	}
	c.Auto = text
	if !c.IsManual {
		c.Manual = text
	}
	return nil
}

// RegenerateAll applies RegenerateAuto to every slot in outputs and returns
// the slots whose visible (manual) text changed.
func (t *Tracker) RegenerateAll(outputs map[Slot]string) []Slot {
	var changed []Slot
	for _, s := range All {
		text, ok := outputs[s]
		if !ok {
			continue
		}
		c := t.slots[s]
		before := c.Manual
		c.Auto = text
		if !c.IsManual {
			c.Manual = text
		}
		if c.Manual != before {
			changed = append(changed, s)
		}
	}
	return changed
}

// UserEdit replaces the manual text and locks the slot, even when the new
// text equals the auto text.
func (t *Tracker) UserEdit(s Slot, text string) error {
	c, err := t.slot(s)
	if err != nil {
		return err
	}
	c.Manual = text
	c.IsManual = true
	return nil
}

// ResetToAuto discards manual edits.
func (t *Tracker) ResetToAuto(s Slot) error {
	c, err := t.slot(s)
	if err != nil {
		return err
	}
	c.Manual = c.Auto
	c.IsManual = false
	return nil
}

// ManualContent returns the text shown for the slot.
func (t *Tracker) ManualContent(s Slot) string {
	if c, ok := t.slots[s]; ok {
		return c.Manual
	}
	return ""
}

// AutoContent returns the last generated text for the slot.
func (t *Tracker) AutoContent(s Slot) string {
	if c, ok := t.slots[s]; ok {
		return c.Auto
	}
	return ""
}

// IsModified reports whether the slot is locked by a manual edit.
func (t *Tracker) IsModified(s Slot) bool {
	if c, ok := t.slots[s]; ok {
		return c.IsManual
	}
	return false
}

// Snapshot copies the state of all six slots.
func (t *Tracker) Snapshot() Snapshot {
	out := make(Snapshot, len(t.slots))
	for s, c := range t.slots {
		out[s] = *c
	}
	return out
}

// Restore replaces slot state from a snapshot. Unknown slots are ignored and
// slots missing from the snapshot are reset to empty.
func (t *Tracker) Restore(snap Snapshot) {
	for _, s := range All {
		c := snap[s]
		t.slots[s] = &c
	}
}

// Named returns the snapshot keyed by slot name, the form used on disk.
func (s Snapshot) Named() map[string]Content {
	out := make(map[string]Content, len(s))
	for slot, c := range s {
		out[slot.String()] = c
	}
	return out
}

// FromNamed converts a name-keyed map back into a Snapshot, skipping
// names that are not slots.
func FromNamed(named map[string]Content) Snapshot {
	out := make(Snapshot, len(named))
	for name, c := range named {
		s, err := ParseSlot(name)
		if err != nil {
			continue
		}
		out[s] = c
	}
	return out
}

// ManualTexts returns the manual text of every slot keyed by slot name.
func (s Snapshot) ManualTexts() map[string]string {
	out := make(map[string]string, len(s))
	for slot, c := range s {
		out[slot.String()] = c.Manual
	}
	return out
}
