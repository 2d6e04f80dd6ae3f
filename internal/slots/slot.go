package slots

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSlot is returned when a slot name does not parse.
var ErrUnknownSlot = errors.New("unknown slot")

// Side is the hand of the generated program.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Sides lists both sides in output order.
var Sides = []Side{Left, Right}

// Kind is the generated program type.
type Kind string

const (
	Frame Kind = "frame"
	Lock  Kind = "lock"
	Hinge Kind = "hinge"
)

// Kinds lists every kind in output order.
var Kinds = []Kind{Frame, Lock, Hinge}

// Slot is one of the six side × kind generated outputs.
type Slot struct {
	Side Side
	Kind Kind
}

// All lists the six slots, left side first.
var All = func() []Slot {
	out := make([]Slot, 0, len(Sides)*len(Kinds))
	for _, side := range Sides {
		for _, kind := range Kinds {
			out = append(out, Slot{Side: side, Kind: kind})
		}
	}
	return out
}()

// String returns the slot name, e.g. "left_frame".
func (s Slot) String() string {
	return string(s.Side) + "_" + string(s.Kind)
}

// FileName is the export file name of the slot.
func (s Slot) FileName() string {
	return s.String() + ".txt"
}

// Valid reports whether s is one of the six slots.
func (s Slot) Valid() bool {
	for _, slot := range All {
		if slot == s {
			return true
		}
	}
	return false
}

// ParseSlot accepts "left_frame", "left-frame", "left/frame" and "left frame".
func ParseSlot(name string) (Slot, error) {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), func(r rune) bool {
		return r == '_' || r == '-' || r == '/' || r == ' '
	})
	if len(fields) != 2 {
		return Slot{}, fmt.Errorf("%q: %w", name, ErrUnknownSlot)
	}

	s := Slot{Side: Side(fields[0]), Kind: Kind(fields[1])}
	if !s.Valid() {
		return Slot{}, fmt.Errorf("%q: %w", name, ErrUnknownSlot)
	}
	return s, nil
}

// ParseSide accepts "left" or "right".
func ParseSide(name string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(name))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	default:
		return "", fmt.Errorf("unknown side %q (want left or right)", name)
	}
}
