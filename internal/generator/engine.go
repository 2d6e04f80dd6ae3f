package generator

import (
	"cnc-frame-wizard/internal/catalog"
	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/gcode"
	"cnc-frame-wizard/internal/slots"

	"github.com/rs/zerolog/log"
)

// Inputs is everything one generation pass reads besides the catalog.
// A nil profile means no profile of that category is selected.
type Inputs struct {
	Frame        *frame.Configuration
	HingeProfile *catalog.Profile
	LockProfile  *catalog.Profile
}

// Ready reports whether the inputs carry the frame configuration and both
// selected profiles that generation requires.
func (in Inputs) Ready() bool {
	return in.Frame != nil && in.HingeProfile != nil && in.LockProfile != nil
}

// Engine resolves the six slot templates against the catalog and the frame
// namespace.
type Engine struct {
	store *catalog.Store
}

// NewEngine creates an engine reading templates from store.
func NewEngine(store *catalog.Store) *Engine {
	return &Engine{store: store}
}

// GenerateAll produces the text of all six slots. It returns ok=false, and
// no outputs, when the frame configuration or a selected profile is missing.
func (e *Engine) GenerateAll(in Inputs) (outputs map[slots.Slot]string, ok bool) {
	if !in.Ready() {
		log.Debug().
			Bool("frame", in.Frame != nil).
			Bool("hinge_profile", in.HingeProfile != nil).
			Bool("lock_profile", in.LockProfile != nil).
			Msg("Skipping generation, inputs incomplete")
		return nil, false
	}

	dollar := gcode.PrefixDollar(frame.Recompute(*in.Frame).Strings())

	outputs = make(map[slots.Slot]string, len(slots.All))
	for _, s := range slots.All {
		outputs[s] = e.generate(s, in, dollar)
	}
	return outputs, true
}

func (e *Engine) generate(s slots.Slot, in Inputs, dollar map[string]string) string {
	template := e.Template(s, in)
	if template == "" {
		return ""
	}
	return gcode.Resolve(template, e.values(s, in, dollar))
}

// Template returns the raw template feeding a slot, or "" when none is
// available (no profile, dangling type, or no frame template for the side).
func (e *Engine) Template(s slots.Slot, in Inputs) string {
	switch s.Kind {
	case slots.Frame:
		fg := e.store.FrameGCode()
		if s.Side == slots.Left {
			return fg.Left
		}
		return fg.Right
	case slots.Lock:
		if in.LockProfile == nil {
			return ""
		}
		return e.store.ProfileGCode(catalog.Lock, *in.LockProfile)
	case slots.Hinge:
		if in.HingeProfile == nil {
			return ""
		}
		return e.store.ProfileGCode(catalog.Hinge, *in.HingeProfile)
	default:
		return ""
	}
}

// Values returns the substitution set used for a slot: the slot's profile
// variables merged with the '$'-prefixed frame namespace.
func (e *Engine) Values(s slots.Slot, in Inputs) map[string]string {
	if in.Frame == nil {
		return profileValues(profileFor(s, in))
	}
	dollar := gcode.PrefixDollar(frame.Recompute(*in.Frame).Strings())
	return e.values(s, in, dollar)
}

func (e *Engine) values(s slots.Slot, in Inputs, dollar map[string]string) map[string]string {
	return gcode.Merge(profileValues(profileFor(s, in)), dollar)
}

// profileFor returns the profile whose variables feed a slot. Frame slots
// read only the frame namespace.
func profileFor(s slots.Slot, in Inputs) *catalog.Profile {
	switch s.Kind {
	case slots.Lock:
		return in.LockProfile
	case slots.Hinge:
		return in.HingeProfile
	default:
		return nil
	}
}

// profileValues flattens a profile's stored variables. Names carrying the
// '$' sigil are dropped so a profile cannot shadow the frame namespace.
func profileValues(p *catalog.Profile) map[string]string {
	if p == nil {
		return nil
	}
	vars := p.Variables()
	for name := range vars {
		if gcode.Classify(name) == gcode.DollarVariable {
			delete(vars, name)
		}
	}
	return vars
}
