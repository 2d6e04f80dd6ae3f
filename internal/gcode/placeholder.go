package gcode

import (
	"regexp"
	"strings"
)

// Kind classifies a placeholder name into one of the variable namespaces.
type Kind int

const (
	// CustomVariable is any name that is neither an L-variable nor a dollar variable.
	CustomVariable Kind = iota
	// LVariable is a name of the form L<digits>, e.g. L1 or L24.
	LVariable
	// DollarVariable is a name starting with '$', drawn from the frame namespace.
	DollarVariable
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case LVariable:
		return "l"
	case DollarVariable:
		return "dollar"
	default:
		return "custom"
	}
}

// DollarPrefix is the sigil that marks frame namespace placeholders.
const DollarPrefix = "$"

var lVariableRe = regexp.MustCompile(`^L[0-9]+$`)

// Placeholder is one distinct variable referenced by a template.
type Placeholder struct {
	Name       string
	Kind       Kind
	Default    string
	HasDefault bool
}

// Classify returns the namespace a placeholder name belongs to. An L<digits>
// name is always an L-variable, even when a profile stores it as custom.
func Classify(name string) Kind {
	switch {
	case strings.HasPrefix(name, DollarPrefix):
		return DollarVariable
	case lVariableRe.MatchString(name):
		return LVariable
	default:
		return CustomVariable
	}
}

// Scan returns the distinct placeholders in template in first-seen order.
// When a name appears more than once, the first occurrence's default is kept.
func Scan(template string) []Placeholder {
	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var out []Placeholder
	for _, m := range matches {
		name := template[m[2]:m[3]]
		if seen[name] {
			continue
		}
		seen[name] = true

		p := Placeholder{Name: name, Kind: Classify(name)}
		if m[4] >= 0 {
			p.Default = template[m[4]:m[5]]
			p.HasDefault = true
		}
		out = append(out, p)
	}
	return out
}

// Filter returns the placeholders of the given kind.
func Filter(placeholders []Placeholder, kind Kind) []Placeholder {
	var out []Placeholder
	for _, p := range placeholders {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// PrefixDollar returns a copy of values with every key prefixed by '$', the
// form in which the frame namespace is presented to Resolve.
func PrefixDollar(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[DollarPrefix+k] = v
	}
	return out
}
