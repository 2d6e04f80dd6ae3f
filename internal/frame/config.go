// Package frame holds the door frame configuration supplied by the operator
// and derives the flat dollar-variable namespace that G-code templates read
// through {$name} placeholders.
//
// Numbers are substituted in their shortest exact form: a height of 2100 is
// written as "2100", never "2100.0", and 12.5 as "12.5". Templates that
// relied on a trailing ".0" need updating.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FrameWidth is the fixed frame width in millimetres.
const FrameWidth = 1200

// MaxHinges is the number of hinge slots a frame can carry.
const MaxHinges = 4

// PMCount is the number of PM positions a frame carries.
const PMCount = 4

// ErrInvalidOrientation is returned for orientations other than left or right.
var ErrInvalidOrientation = errors.New("orientation must be left or right")

// Orientation is the hand of the door.
type Orientation string

const (
	Left  Orientation = "left"
	Right Orientation = "right"
)

// Component identifiers used in the execution order list.
const (
	ComponentLock = "lock"
)

// HingeComponent returns the execution order identifier of hinge i (1-based).
func HingeComponent(i int) string {
	return fmt.Sprintf("hinge%d", i)
}

// Configuration is the frame setup: dimensions, machine offsets and the
// positions, active flags and machining order of the hardware cut-outs.
// Positions are measured in millimetres from the top of the frame.
type Configuration struct {
	Height         float64     `yaml:"height" json:"height"`
	XOffset        float64     `yaml:"x_offset" json:"x_offset"`
	YOffset        float64     `yaml:"y_offset" json:"y_offset"`
	ZOffset        float64     `yaml:"z_offset" json:"z_offset"`
	PMPositions    []float64   `yaml:"pm_positions" json:"pm_positions"`
	LockPosition   float64     `yaml:"lock_position" json:"lock_position"`
	LockYOffset    float64     `yaml:"lock_y_offset" json:"lock_y_offset"`
	LockActive     bool        `yaml:"lock_active" json:"lock_active"`
	HingeCount     int         `yaml:"hinge_count" json:"hinge_count"`
	HingePositions []float64   `yaml:"hinge_positions" json:"hinge_positions"`
	HingeActive    []bool      `yaml:"hinge_active" json:"hinge_active"`
	HingeYOffset   float64     `yaml:"hinge_y_offset" json:"hinge_y_offset"`
	Orientation    Orientation `yaml:"orientation" json:"orientation"`
	ExecutionOrder []string    `yaml:"execution_order" json:"execution_order"`
}

// Default returns a configuration for a 2100mm frame with three hinges and
// the lock, all active and machined top to bottom.
func Default() Configuration {
	return Configuration{
		Height:         2100,
		PMPositions:    []float64{0, 0, 0, 0},
		LockPosition:   1050,
		LockActive:     true,
		HingeCount:     3,
		HingePositions: []float64{250, 1050, 1850},
		HingeActive:    []bool{true, true, true},
		Orientation:    Right,
		ExecutionOrder: []string{"hinge1", "lock", "hinge2", "hinge3"},
	}
}

// Validate checks the fields the namespace cannot default.
func (c Configuration) Validate() error {
	switch c.Orientation {
	case Left, Right, "":
	default:
		return fmt.Errorf("orientation %q: %w", c.Orientation, ErrInvalidOrientation)
	}
	if c.HingeCount < 0 || c.HingeCount > MaxHinges {
		return fmt.Errorf("hinge_count %d out of range 0..%d", c.HingeCount, MaxHinges)
	}
	return nil
}

// HingeIsActive reports whether hinge i (1-based) is both within the hinge
// count and checked active.
func (c Configuration) HingeIsActive(i int) bool {
	idx := i - 1
	return idx >= 0 && idx < c.HingeCount && idx < len(c.HingeActive) && c.HingeActive[idx]
}

// ComponentIsActive reports whether a component identifier names an active
// component of this configuration.
func (c Configuration) ComponentIsActive(id string) bool {
	if id == ComponentLock {
		return c.LockActive
	}
	for i := 1; i <= MaxHinges; i++ {
		if id == HingeComponent(i) {
			return c.HingeIsActive(i)
		}
	}
	return false
}

// ActiveComponents lists the active component identifiers in canonical
// order (lock first, then hinges).
func (c Configuration) ActiveComponents() []string {
	var out []string
	if c.LockActive {
		out = append(out, ComponentLock)
	}
	for i := 1; i <= MaxHinges; i++ {
		if c.HingeIsActive(i) {
			out = append(out, HingeComponent(i))
		}
	}
	return out
}

// Load reads a YAML frame configuration. A missing file yields Default and
// found=false.
func Load(path string) (cfg Configuration, found bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), false, nil
	}
	if err != nil {
		return Configuration{}, false, fmt.Errorf("read frame configuration: %w", err)
	}

	cfg, err = Decode(data)
	if err != nil {
		return Configuration{}, true, err
	}
	return cfg, true, nil
}

// Decode parses a YAML (or JSON) frame configuration. An empty document
// decodes to Default.
func Decode(data []byte) (Configuration, error) {
	var cfg Configuration
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return Configuration{}, fmt.Errorf("decode frame configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	if cfg.Orientation == "" {
		cfg.Orientation = Right
	}
	return cfg, nil
}

// Encode renders the configuration as YAML.
func Encode(cfg Configuration) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode frame configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frame configuration: %w", err)
	}
	return buf.Bytes(), nil
}
